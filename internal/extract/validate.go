package extract

import (
	"net/http"
	"strings"

	"github.com/avashisht/veridoc/internal/model"
)

// ValidateDocument rejects inputs the OCR ladder cannot work with. A rejection
// is fatal: the caller returns it to the client instead of degrading.
func ValidateDocument(doc model.Document, cfg model.ExtractionConfig) error {
	if len(doc.Bytes) == 0 {
		return &model.InputValidationError{Reason: "empty document"}
	}
	if cfg.MaxImageBytes > 0 && len(doc.Bytes) > cfg.MaxImageBytes {
		return model.NewInputValidationError("document is %d bytes, limit is %d", len(doc.Bytes), cfg.MaxImageBytes)
	}
	if doc.MediaType != "" && !doc.IsImage() {
		return model.NewInputValidationError("unsupported media type %s", doc.MediaType)
	}

	// Sniff the real content type; the client-declared one is advisory.
	detected := http.DetectContentType(doc.Bytes)
	if !strings.HasPrefix(detected, "image/") {
		return &model.InputValidationError{Reason: "unsupported format " + detected}
	}
	return nil
}
