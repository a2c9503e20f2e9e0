package verify

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// Per-platform verification URL templates. The issuer name from extraction is
// fuzzy-matched against the keys; {id} is replaced with the cleaned
// certificate identifier.
var urlPatterns = []struct {
	platform string
	patterns []string
}{
	{"coursera", []string{
		"https://www.coursera.org/verify/{id}",
		"https://www.coursera.org/account/accomplishments/certificate/{id}",
	}},
	{"udemy", []string{
		"https://www.udemy.com/certificate/{id}",
		"https://ude.my/{id}",
	}},
	{"edx", []string{
		"https://credentials.edx.org/credentials/{id}",
	}},
	{"linkedin", []string{
		"https://www.linkedin.com/learning/certificates/{id}",
	}},
	{"google", []string{
		"https://skillshop.exceedlms.com/student/award/{id}",
	}},
	{"ibm", []string{
		"https://www.credly.com/badges/{id}",
		"https://www.credly.com/organizations/ibm/badges/{id}",
	}},
	{"microsoft", []string{
		"https://learn.microsoft.com/en-us/users/{id}/transcript",
	}},
	{"credly", []string{
		"https://www.credly.com/badges/{id}",
	}},
}

// defaultTrustedDomains covers the major certificate platforms even when no
// CSV is configured.
var defaultTrustedDomains = []string{
	"ude.my", "udemy.com", "coursera.org", "edx.org",
	"credentials.edx.org", "linkedin.com", "google.com",
	"skillshop.exceedlms.com", "credly.com",
	"learn.microsoft.com",
}

// Registry is the trusted-issuer registry: organization name to verification
// URL, plus the trusted-domain set behind the gate. Loaded once at startup
// and immutable afterward, so it is shared across requests without locks.
type Registry struct {
	orgMap         map[string]string
	trustedDomains map[string]bool
}

// NewRegistry builds a registry from the optional CSV at path. A missing or
// unreadable CSV leaves the built-in platform defaults in place.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{
		orgMap:         make(map[string]string),
		trustedDomains: make(map[string]bool),
	}
	for _, d := range defaultTrustedDomains {
		r.trustedDomains[d] = true
	}

	if path == "" {
		return r, nil
	}
	f, err := os.Open(path)
	if err != nil {
		// The registry still works on built-ins.
		return r, fmt.Errorf("open registry csv: %w", err)
	}
	defer f.Close()

	if err := r.loadCSV(f); err != nil {
		return r, fmt.Errorf("load registry csv: %w", err)
	}
	return r, nil
}

// loadCSV reads "Organization Name","Verification URL" rows.
func (r *Registry) loadCSV(src io.Reader) error {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	orgCol, urlCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case "Organization Name":
			orgCol = i
		case "Verification URL":
			urlCol = i
		}
	}
	if urlCol < 0 {
		return fmt.Errorf("missing Verification URL column")
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		if urlCol >= len(row) {
			continue
		}
		rawURL := strings.TrimSpace(row[urlCol])
		if rawURL == "" {
			continue
		}
		if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
			rawURL = "https://" + rawURL
		}

		if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
			r.trustedDomains[normalizeHost(parsed.Host)] = true
		}
		if orgCol >= 0 && orgCol < len(row) {
			if org := strings.ToLower(strings.TrimSpace(row[orgCol])); org != "" {
				r.orgMap[org] = rawURL
			}
		}
	}
	return nil
}

// IsTrusted reports whether the URL's host ("www." stripped) is an exact or
// dotted-suffix match of a trusted domain. This is the gate that keeps the
// verifier from fetching attacker-controlled pages: a failing candidate costs
// zero network calls.
func (r *Registry) IsTrusted(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := normalizeHost(parsed.Host)
	if r.trustedDomains[host] {
		return true
	}
	for trusted := range r.trustedDomains {
		if strings.HasSuffix(host, "."+trusted) {
			return true
		}
	}
	return false
}

// CandidateURLs generates verification URL candidates in priority order:
// the URL found on the document, the registry's exact-organization URL, then
// the platform templates. Duplicates collapse to their first position.
func (r *Registry) CandidateURLs(extractedURL, certID, orgName string) []string {
	var urls []string
	if extractedURL != "" {
		urls = append(urls, extractedURL)
	}

	if orgName != "" && certID != "" {
		orgLower := strings.ToLower(orgName)

		if base, ok := r.orgMap[orgLower]; ok {
			if strings.HasSuffix(base, "/") {
				urls = append(urls, base+certID)
			} else {
				urls = append(urls, base+"/"+certID)
			}
		}

		for _, entry := range urlPatterns {
			if strings.Contains(orgLower, entry.platform) {
				for _, p := range entry.patterns {
					urls = append(urls, strings.ReplaceAll(p, "{id}", certID))
				}
				break
			}
		}
	}

	return dedupe(urls)
}

// dedupe removes duplicates while preserving first-seen order.
func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := urls[:0]
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	if idx := strings.Index(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return strings.TrimPrefix(host, "www.")
}
