package model

// RiskTier classifies the fused manipulation score.
type RiskTier string

const (
	RiskPass    RiskTier = "pass"
	RiskWarning RiskTier = "warning"
	RiskHigh    RiskTier = "high_risk"
)

// ManipulationVerdict is the forensics cascade output: exactly one per
// document, including on total collaborator failure.
type ManipulationVerdict struct {
	Score    float64  `json:"manipulation_score"` // fused, in [0,1]
	Risk     RiskTier `json:"risk"`
	Status   string   `json:"status"`
	Evidence []string `json:"evidence,omitempty"` // ordered, human-readable
	Signals  []Signal `json:"signals,omitempty"`

	// Optional deep/LLM opinion details, absent when the stage did not run.
	DeepAnalysis  string   `json:"deep_analysis,omitempty"`
	DeepReasoning string   `json:"deep_reasoning,omitempty"`
	DeepScore     *float64 `json:"deep_score,omitempty"`
}

// ExtractedFields holds identity fields recovered from the document. Every
// field is optional; an empty struct is a valid terminal state, not an error.
type ExtractedFields struct {
	CandidateName  string `json:"candidate_name,omitempty"`
	CertificateID  string `json:"certificate_id,omitempty"`
	IssuerName     string `json:"issuer_name,omitempty"`
	IssuerURL      string `json:"issuer_url,omitempty"`
	RawTextSnippet string `json:"raw_text_snippet,omitempty"`

	// Incomplete marks a degraded extraction (OCR or LLM timeout). The fields
	// above may still be partially populated.
	Incomplete bool     `json:"incomplete,omitempty"`
	Faults     []string `json:"faults,omitempty"`
}

// VerificationVerdict is the verification cascade output.
type VerificationVerdict struct {
	IsVerified    bool           `json:"is_verified"`
	TrustedDomain bool           `json:"trusted_domain"`
	Confidence    float64        `json:"confidence_score"`
	Method        string         `json:"method"` // "dom_text_match", "dom_text_match_retry", "visual_ocr", "failed", ...
	URL           string         `json:"verification_url,omitempty"`
	Message       string         `json:"message"`
	Attempts      []MatchAttempt `json:"attempts,omitempty"`
}

// Final verdict tags for a document.
const (
	VerdictVerified   = "VERIFIED"
	VerdictUnverified = "UNVERIFIED"
	VerdictFlagged    = "FLAGGED"
)

// Report is the single response produced per document.
type Report struct {
	Filename     string              `json:"filename,omitempty"`
	FinalVerdict string              `json:"final_verdict"`
	Forensics    ManipulationVerdict `json:"forensics"`
	Extraction   ExtractedFields     `json:"extraction"`
	Verification VerificationVerdict `json:"verification"`
}
