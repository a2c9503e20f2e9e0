package model

import "time"

// Signal is the result of one detection stage. It is immutable once created:
// stages return a value, never mutate a shared one.
type Signal struct {
	Method     string                 `json:"method"`               // stage identifier, e.g. "residue", "deep", "ocr_primary"
	Score      float64                `json:"score"`                // confidence in [0,1]
	Suspicious bool                   `json:"suspicious"`           // whether the stage flags the document
	Elapsed    time.Duration          `json:"elapsed_ns"`           // stage wall time
	Metrics    map[string]interface{} `json:"metrics,omitempty"`    // raw per-stage diagnostics
	Err        string                 `json:"error,omitempty"`      // captured stage fault, empty on success
	Skipped    bool                   `json:"skipped,omitempty"`    // collaborator unavailable, stage not run
}

// Failed reports whether the stage recorded a fault.
func (s Signal) Failed() bool {
	return s.Err != ""
}

// MatchAttempt records one fetch-and-match try during verification.
type MatchAttempt struct {
	URL        string  `json:"url"`
	Method     string  `json:"method"` // "dom_text_match", "dom_text_match_retry", "visual_ocr"
	Similarity float64 `json:"similarity"`
	Matched    bool    `json:"matched"`
	Err        string  `json:"error,omitempty"`
}
