package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avashisht/veridoc/internal/model"
	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine is the primary OCR engine, backed by a local Tesseract
// install through gosseract. Each pass uses a fresh client; the client is not
// safe for concurrent use, fresh ones are.
type TesseractEngine struct {
	run      func(image []byte, opts RecognizeOptions) (string, error)
	language string
}

// NewTesseractEngine constructs the default OCR engine.
func NewTesseractEngine() *TesseractEngine {
	e := &TesseractEngine{language: "eng"}
	e.run = e.recognize
	return e
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize runs one OCR pass over the image, bounded by the context. The
// underlying cgo call cannot be interrupted, so on expiry the pass is left to
// finish in the background and the stage reports a timeout.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, opts RecognizeOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	budget := "the stage deadline"
	if dl, ok := ctx.Deadline(); ok {
		budget = time.Until(dl).Round(time.Millisecond).String()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := e.run(image, opts)
		done <- result{text, err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &model.TimeoutError{Op: "tesseract recognize", Timeout: budget}
		}
		return "", ctx.Err()
	}
}

func (e *TesseractEngine) recognize(image []byte, opts RecognizeOptions) (string, error) {
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(e.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if opts.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
			return "", fmt.Errorf("set page segmentation mode %d: %w", opts.PSM, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
