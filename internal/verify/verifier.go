package verify

import (
	"context"
	"fmt"

	"github.com/avashisht/veridoc/internal/cascade"
	"github.com/avashisht/veridoc/internal/extract"
	"github.com/avashisht/veridoc/internal/model"
)

// Match method tags, in escalation order.
const (
	MethodDOMText      = "dom_text_match"
	MethodDOMTextRetry = "dom_text_match_retry"
	MethodVisualOCR    = "visual_ocr"
	MethodFailed       = "failed"
)

// TextFetcher is the fast page-text fetch.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// RenderedFetcher is the browser fetch with screenshot capture.
type RenderedFetcher interface {
	FetchRendered(ctx context.Context, url string) (string, []byte, error)
}

// Verifier runs the web-verification cascade: candidate URL generation, the
// trust gate, then per-candidate fetch-and-match with escalation from plain
// GET to a rendered browser session to screenshot OCR.
type Verifier struct {
	cfg      model.VerifyConfig
	registry *Registry
	fast     TextFetcher
	browser  RenderedFetcher    // nil disables the rendered rungs
	ocr      extract.OCREngine  // nil disables the visual rung
	engine   *cascade.Engine
}

// NewVerifier wires the verification cascade. browser and ocr may be nil.
func NewVerifier(cfg model.VerifyConfig, registry *Registry, fast TextFetcher, browser RenderedFetcher, ocr extract.OCREngine) *Verifier {
	return &Verifier{
		cfg:      cfg,
		registry: registry,
		fast:     fast,
		browser:  browser,
		ocr:      ocr,
		engine:   cascade.NewEngine(cascade.FailOpen),
	}
}

// Verify checks the extracted fields against the issuing platform's own site.
func (v *Verifier) Verify(ctx context.Context, fields model.ExtractedFields) model.VerificationVerdict {
	if fields.CandidateName == "" {
		return model.VerificationVerdict{
			Method:  "validation_error",
			Message: "No candidate name to verify.",
		}
	}

	urls := v.registry.CandidateURLs(fields.IssuerURL, fields.CertificateID, fields.IssuerName)
	if len(urls) == 0 {
		return model.VerificationVerdict{
			Method:  "url_error",
			Message: "No verification URL could be generated.",
		}
	}

	// The gate decides before any network traffic: an untrusted first
	// candidate means the whole verdict is a security refusal.
	if !v.registry.IsTrusted(urls[0]) {
		return model.VerificationVerdict{
			Method:  "security_check",
			URL:     urls[0],
			Message: "Untrusted domain.",
		}
	}

	if v.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.cfg.Deadline)
		defer cancel()
	}

	max := v.cfg.MaxCandidates
	if max <= 0 || max > len(urls) {
		max = len(urls)
	}

	var (
		attempts  []model.MatchAttempt
		bestScore float64
		bestURL   = urls[0]
	)
	for _, url := range urls[:max] {
		verdict, candAttempts := v.checkCandidate(ctx, url, fields.CandidateName)
		attempts = append(attempts, candAttempts...)
		for _, a := range candAttempts {
			if a.Similarity > bestScore {
				bestScore = a.Similarity
				bestURL = a.URL
			}
		}
		if verdict != nil {
			verdict.Attempts = attempts
			return *verdict
		}
		if ctx.Err() != nil {
			break
		}
	}

	return model.VerificationVerdict{
		TrustedDomain: true,
		Confidence:    bestScore,
		Method:        MethodFailed,
		URL:           bestURL,
		Message:       fmt.Sprintf("Verification failed. Best match: %.0f%%.", bestScore*100),
		Attempts:      attempts,
	}
}

// checkCandidate walks the match ladder for one URL. A non-nil verdict means
// an accepted match and stops the candidate loop.
func (v *Verifier) checkCandidate(ctx context.Context, url, name string) (*model.VerificationVerdict, []model.MatchAttempt) {
	var shot []byte

	fastRung := func(ctx context.Context, _ model.Document) (model.Signal, error) {
		text, err := v.fast.FetchText(ctx, url)
		if err != nil {
			return model.Signal{}, err
		}
		// A thin page means client-side rendering; let the browser rung
		// decide, whatever the text similarity says.
		if len(text) < v.cfg.ShortTextFloor {
			return model.Signal{Metrics: map[string]interface{}{"thin": true}}, nil
		}
		matched, score := FuzzyMatch(name, text, v.cfg.TextMatchThreshold)
		return model.Signal{Score: score, Suspicious: matched}, nil
	}

	renderedRung := func(ctx context.Context, _ model.Document) (model.Signal, error) {
		if v.browser == nil {
			return model.Signal{Skipped: true}, nil
		}
		text, screenshot, err := v.browser.FetchRendered(ctx, url)
		if err != nil {
			return model.Signal{}, err
		}
		shot = screenshot
		matched, score := FuzzyMatch(name, text, v.cfg.TextMatchThreshold)
		return model.Signal{Score: score, Suspicious: matched}, nil
	}

	visualRung := func(ctx context.Context, _ model.Document) (model.Signal, error) {
		if v.ocr == nil || len(shot) == 0 {
			return model.Signal{Skipped: true}, nil
		}
		text, err := v.ocr.Recognize(ctx, shot, extract.RecognizeOptions{})
		if err != nil {
			return model.Signal{}, err
		}
		matched, score := FuzzyMatch(name, text, v.cfg.OCRMatchThreshold)
		return model.Signal{Score: score, Suspicious: matched}, nil
	}

	stages := []cascade.Stage{
		{Name: MethodDOMText, Run: fastRung},
		{Name: MethodDOMTextRetry, Run: renderedRung},
		{Name: MethodVisualOCR, Run: visualRung},
	}
	escalate := func(signals []model.Signal) bool {
		return !signals[len(signals)-1].Suspicious
	}

	signals, _ := v.engine.Run(ctx, model.Document{}, stages, escalate)

	attempts := make([]model.MatchAttempt, 0, len(signals))
	for _, sig := range signals {
		if sig.Skipped {
			continue
		}
		attempts = append(attempts, model.MatchAttempt{
			URL:        url,
			Method:     sig.Method,
			Similarity: sig.Score,
			Matched:    sig.Suspicious,
			Err:        sig.Err,
		})
		if sig.Suspicious {
			return &model.VerificationVerdict{
				IsVerified:    true,
				TrustedDomain: true,
				Confidence:    sig.Score,
				Method:        sig.Method,
				URL:           url,
				Message:       fmt.Sprintf("Verified via %s. Match: %.0f%%.", sig.Method, sig.Score*100),
			}, attempts
		}
	}
	return nil, attempts
}
