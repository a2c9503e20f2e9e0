package verify

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestIsTrusted(t *testing.T) {
	r, err := NewRegistry("")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	cases := []struct {
		url  string
		want bool
	}{
		{"https://www.coursera.org/verify/ABC123", true},
		{"https://coursera.org/verify/ABC123", true}, // www optional
		{"https://www.udemy.com/certificate/UC-1", true},
		{"https://credentials.edx.org/credentials/x", true}, // exact subdomain entry
		{"https://learning.linkedin.com/x", true},           // dotted suffix
		{"https://evil-coursera.org/verify/ABC123", false},  // suffix must be dotted
		{"https://coursera.org.evil.com/verify/A", false},
		{"https://example.com/certificate", false},
		{"not a url", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := r.IsTrusted(tc.url); got != tc.want {
			t.Errorf("IsTrusted(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestCandidateURLsOrderAndDedupe(t *testing.T) {
	r, err := NewRegistry("")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	urls := r.CandidateURLs("https://www.udemy.com/certificate/UC-abc", "UC-abc", "Udemy")
	want := []string{
		"https://www.udemy.com/certificate/UC-abc", // extracted first, template duplicate collapsed
		"https://ude.my/UC-abc",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("CandidateURLs = %v, want %v", urls, want)
	}
}

func TestCandidateURLsPlatformTemplates(t *testing.T) {
	r, err := NewRegistry("")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	urls := r.CandidateURLs("", "ABC123", "Coursera Inc")
	want := []string{
		"https://www.coursera.org/verify/ABC123",
		"https://www.coursera.org/account/accomplishments/certificate/ABC123",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("CandidateURLs = %v, want %v", urls, want)
	}

	if got := r.CandidateURLs("", "", "Coursera"); len(got) != 0 {
		t.Errorf("templates need a certificate id, got %v", got)
	}
	if got := r.CandidateURLs("", "ABC", ""); len(got) != 0 {
		t.Errorf("templates need an issuer, got %v", got)
	}
}

func TestRegistryCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuers.csv")
	csv := "Organization Name,Verification URL\n" +
		"Example University,verify.example.edu/certs\n" +
		"No URL Org,\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if !r.IsTrusted("https://verify.example.edu/certs/123") {
		t.Error("CSV domain not trusted")
	}

	urls := r.CandidateURLs("", "123", "Example University")
	if len(urls) != 1 || urls[0] != "https://verify.example.edu/certs/123" {
		t.Errorf("CandidateURLs = %v", urls)
	}
}

func TestRegistryCSVWithByteOrderMark(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuers.csv")
	csv := "\uFEFFOrganization Name,Verification URL\n" +
		"Example University,verify.example.edu/certs\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if urls := r.CandidateURLs("", "123", "Example University"); len(urls) != 1 {
		t.Errorf("BOM-prefixed header not recognized, CandidateURLs = %v", urls)
	}
}

func TestRegistryMissingCSVKeepsDefaults(t *testing.T) {
	r, err := NewRegistry("/does/not/exist.csv")
	if err == nil {
		t.Error("expected an error for a missing csv")
	}
	if r == nil || !r.IsTrusted("https://www.coursera.org/verify/x") {
		t.Error("built-in defaults lost when the csv is missing")
	}
}
