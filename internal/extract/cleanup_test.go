package extract

import (
	"reflect"
	"testing"

	"github.com/avashisht/veridoc/internal/model"
)

func TestStripPhrases(t *testing.T) {
	cases := []struct{ in, want string }{
		{"This is to certify that Jane Doe", "Jane Doe"},
		{"Certificate of Completion Jane Doe", "Jane Doe"},
		{"Jane Doe has successfully completed", "Jane Doe"},
		{"Jane Doe", "Jane Doe"},
		{"  awarded to Jane Doe  ", "Jane Doe"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := stripPhrases(tc.in); got != tc.want {
			t.Errorf("stripPhrases(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStripIssuerPrefix(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Issued by Udemy", "Udemy"},
		{"Powered by Coursera", "Coursera"},
		{"via LinkedIn Learning", "LinkedIn Learning"},
		{"Offered through edX", "edX"},
		{"Coursera", "Coursera"},
		{"Aviatrix Academy", "Aviatrix Academy"}, // "via" inside a word is not a lead-in
		{"  Udemy  ", "Udemy"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := stripIssuerPrefix(tc.in); got != tc.want {
			t.Errorf("stripIssuerPrefix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanIDConfusables(t *testing.T) {
	cases := []struct{ in, want string }{
		{"UC-12O45-9", "UC-12045-9"},   // O between digits becomes zero
		{"UC-1l345", "UC-11345"},       // l between digits becomes one
		{"UC-1|345", "UC-11345"},       // pipe between digits becomes one
		{"5é7", "567"},
		{"1ö2", "1o2"},
		{"3ï4", "3i4"},
		{"ABC OIL 123", "ABCOIL123"},   // whitespace stripped, letters not flanked by digits kept
		{"O12345", "O12345"},           // leading O has no left digit
		{"9I9", "919"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := cleanID(tc.in); got != tc.want {
			t.Errorf("cleanID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIDShapeRules(t *testing.T) {
	cases := []struct {
		id, issuer string
		dropped    bool
	}{
		{"UC-a1b2c3d4e5f6g7h8", "Udemy", false},
		{"a1b2c3d4e5f6g7h8", "Udemy", true},  // missing UC- prefix, rejected not corrected
		{"UC-123", "Udemy", true},            // too short
		{"ABCDEF123456", "Coursera", false},  // 12 alphanumerics
		{"ABC123", "Coursera", true},
		{"12345678", "LinkedIn Learning", false},
		{"1234567", "LinkedIn Learning", true},
		{"12345678901234567890", "edX", false},
		{"1234567890", "edX", true},
		{"x", "Unknown University", false}, // no platform rule for unknown issuers
		{"0004", "Unknown University", true},  // short numeric references are never ids
		{"123456", "", true},
		{"1234567", "", false},
	}
	for _, tc := range cases {
		cleaned, _ := CleanFields(model.ExtractedFields{CertificateID: tc.id, IssuerName: tc.issuer})
		if dropped := cleaned.CertificateID == ""; dropped != tc.dropped {
			t.Errorf("id %q issuer %q: dropped = %v, want %v", tc.id, tc.issuer, dropped, tc.dropped)
		}
		if !tc.dropped && cleaned.CertificateID != tc.id {
			t.Errorf("id %q issuer %q: rewritten to %q, ids are dropped, never corrected", tc.id, tc.issuer, cleaned.CertificateID)
		}
	}
}

func TestCleanFieldsIdempotent(t *testing.T) {
	in := model.ExtractedFields{
		CandidateName: "This is to certify that Jane Doe",
		CertificateID: "UC-12O45-9abcdef01",
		IssuerName:    " Udemy ",
		IssuerURL:     "https://www.udemy.com/certificate/UC-12045/.",
	}

	once, _ := CleanFields(in)
	twice, _ := CleanFields(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("cleanup not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestExpandShortLink(t *testing.T) {
	certID := "UC-a1b2c3d4e5f6g7h8"
	cases := []struct{ raw, id, want string }{
		{"https://ude.my/" + certID, certID, "https://www.udemy.com/certificate/" + certID},
		{"https://lnkd.in/abc123", "12345678", "https://www.linkedin.com/learning/certificates/12345678"},
		{"https://ude.my/" + certID, "", "https://ude.my/" + certID}, // no id, nothing to build from
		{"https://coursera.org/verify/ABCDEF123456", certID, "https://coursera.org/verify/ABCDEF123456"},
		{"not a url", certID, "not a url"},
	}
	for _, tc := range cases {
		if got := ExpandShortLink(tc.raw, tc.id); got != tc.want {
			t.Errorf("ExpandShortLink(%q, %q) = %q, want %q", tc.raw, tc.id, got, tc.want)
		}
	}
}

func TestCleanFieldsDropNote(t *testing.T) {
	_, notes := CleanFields(model.ExtractedFields{CertificateID: "123", IssuerName: "Udemy"})
	if len(notes) != 1 {
		t.Fatalf("notes = %v, want one drop note", notes)
	}
}
