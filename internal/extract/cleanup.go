package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/avashisht/veridoc/internal/model"
)

// Boilerplate the OCR or the model tends to glue onto the recipient name.
var namePhrases = []string{
	"this is to certify that",
	"this certificate is awarded to",
	"certificate of completion",
	"certificate of achievement",
	"is hereby awarded to",
	"awarded to",
	"presented to",
	"has successfully completed",
	"successfully completed",
}

// Lead-in phrases that precede the actual issuer name. Only the text after
// the first match is kept.
var issuerPhrases = []string{
	"issued by",
	"offered by",
	"powered by",
	"provided by",
	"in partnership with",
	"through",
	"via",
}

// Short-link hosts certificates print instead of the canonical verification
// URL, with the template keyed on the cleaned certificate id.
var shortLinkTemplates = map[string]string{
	"ude.my":  "https://www.udemy.com/certificate/%s",
	"lnkd.in": "https://www.linkedin.com/learning/certificates/%s",
}

// CleanFields applies the deterministic post-extraction cleanup. Pure and
// idempotent: cleaning an already-clean struct changes nothing. Returned
// notes describe values that were dropped rather than corrected.
func CleanFields(f model.ExtractedFields) (model.ExtractedFields, []string) {
	var notes []string

	f.CandidateName = stripPhrases(f.CandidateName)
	f.IssuerName = stripIssuerPrefix(f.IssuerName)
	f.IssuerURL = strings.Trim(strings.TrimSpace(f.IssuerURL), ".,;")

	f.CertificateID = cleanID(f.CertificateID)
	if f.CertificateID != "" {
		if reason := idShapeViolation(f.CertificateID, f.IssuerName); reason != "" {
			notes = append(notes, fmt.Sprintf("dropped certificate id %q: %s", f.CertificateID, reason))
			f.CertificateID = ""
		}
	}
	return f, notes
}

// stripPhrases removes certificate boilerplate from around a name.
func stripPhrases(name string) string {
	s := strings.TrimSpace(name)
	lowered := strings.ToLower(s)
	for _, phrase := range namePhrases {
		for {
			idx := strings.Index(lowered, phrase)
			if idx < 0 {
				break
			}
			s = strings.TrimSpace(s[:idx] + s[idx+len(phrase):])
			lowered = strings.ToLower(s)
		}
	}
	return strings.Trim(s, " ,.:")
}

// stripIssuerPrefix drops the lead-in before the issuer name: "Issued by
// Udemy" becomes "Udemy". Only the first matching phrase counts, and only
// when it sits on a word boundary, so "Via University" keeps its Via.
func stripIssuerPrefix(issuer string) string {
	s := strings.TrimSpace(issuer)
	lowered := strings.ToLower(s)
	for _, phrase := range issuerPhrases {
		idx := strings.Index(lowered, phrase)
		if idx < 0 {
			continue
		}
		end := idx + len(phrase)
		if idx > 0 && isWordRune(rune(lowered[idx-1])) {
			continue
		}
		if end >= len(lowered) || isWordRune(rune(lowered[end])) {
			continue
		}
		return strings.Trim(s[end:], " ,.:")
	}
	return s
}

// cleanID strips whitespace and repairs OCR character-for-digit confusions,
// but only where the character sits between two digits. "Olga" keeps its O;
// the O in "UC-12O45" becomes a zero.
func cleanID(id string) string {
	compact := strings.Join(strings.Fields(id), "")
	if compact == "" {
		return ""
	}

	runes := []rune(compact)
	for i := 1; i < len(runes)-1; i++ {
		if !isDigit(runes[i-1]) || !isDigit(runes[i+1]) {
			continue
		}
		switch runes[i] {
		case 'O', 'o':
			runes[i] = '0'
		case 'l', 'I', '|':
			runes[i] = '1'
		case 'é':
			runes[i] = '6'
		case 'ö':
			runes[i] = 'o'
		case 'ï':
			runes[i] = 'i'
		}
	}
	return string(runes)
}

// idShapeViolation checks the identifier against the issuing platform's known
// shape. A failing identifier is dropped, never rewritten: synthesizing a
// plausible-looking id would defeat the verification step downstream.
func idShapeViolation(id, issuer string) string {
	if len(id) <= 6 && allDigits(id) {
		return "short numeric references are not certificate ids"
	}
	issuer = strings.ToLower(issuer)
	switch {
	case strings.Contains(issuer, "udemy"):
		if !strings.HasPrefix(id, "UC-") || len(id) <= 15 {
			return "udemy ids start with UC- and are longer than 15 characters"
		}
	case strings.Contains(issuer, "coursera"):
		if alnumLen(id) < 12 {
			return "coursera ids have at least 12 alphanumeric characters"
		}
	case strings.Contains(issuer, "edx"):
		if alnumLen(id) < 20 {
			return "edx ids have at least 20 alphanumeric characters"
		}
	case strings.Contains(issuer, "linkedin"):
		if alnumLen(id) < 8 {
			return "linkedin ids have at least 8 alphanumeric characters"
		}
	}
	return ""
}

// ExpandShortLink rewrites known short-link hosts (ude.my, lnkd.in) to the
// platform's canonical verification URL using the cleaned certificate id.
// Unknown hosts pass through untouched, as does any short link seen without
// an id to build the canonical URL from.
func ExpandShortLink(raw, certID string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	tmpl, ok := shortLinkTemplates[strings.ToLower(u.Host)]
	if !ok || certID == "" {
		return raw
	}
	return fmt.Sprintf(tmpl, certID)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isWordRune(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func allDigits(s string) bool {
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

func alnumLen(s string) int {
	n := 0
	for _, r := range s {
		if isWordRune(r) {
			n++
		}
	}
	return n
}
