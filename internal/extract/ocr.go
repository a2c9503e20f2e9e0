package extract

import "context"

// RecognizeOptions tunes a single OCR pass. A zero value means engine
// defaults.
type RecognizeOptions struct {
	// PSM is the Tesseract page-segmentation mode. 0 leaves the engine
	// default; 6 assumes a uniform text block; 11 finds sparse text.
	PSM int
}

// OCREngine recognizes text in an image. Implementations must be safe for
// concurrent use.
type OCREngine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, opts RecognizeOptions) (string, error)
}
