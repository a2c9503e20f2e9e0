package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/avashisht/veridoc/internal/cache"
	"github.com/avashisht/veridoc/internal/extract"
	"github.com/avashisht/veridoc/internal/forensics"
	"github.com/avashisht/veridoc/internal/llm"
	"github.com/avashisht/veridoc/internal/model"
	"github.com/avashisht/veridoc/internal/verify"
	"github.com/avashisht/veridoc/internal/worker"
)

// ForensicsRunner produces the tamper verdict for a document.
type ForensicsRunner interface {
	Analyze(ctx context.Context, doc model.Document) (model.ManipulationVerdict, error)
}

// FieldExtractor recovers identity fields from a document.
type FieldExtractor interface {
	Extract(ctx context.Context, doc model.Document) (model.ExtractedFields, error)
}

// WebVerifier checks extracted fields against the issuer's site.
type WebVerifier interface {
	Verify(ctx context.Context, fields model.ExtractedFields) model.VerificationVerdict
}

// Pipeline orchestrates the three cascades over one document: tamper
// forensics, field extraction, and web verification. It produces exactly one
// Report per document; only input validation surfaces as an error.
type Pipeline struct {
	config    *model.Config
	forensics ForensicsRunner
	extractor FieldExtractor
	verifier  WebVerifier
	pool      *worker.ForensicsPool
	verbose   bool
}

// NewPipeline wires a pipeline from configuration. Optional collaborators
// that fail to come up (language model, deep detector, registry CSV) degrade
// with a warning instead of failing startup.
func NewPipeline(cfg *model.Config) *Pipeline {
	var provider llm.Provider
	if cfg.LLM.Provider != "" {
		p, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: language model disabled: %v\n", err)
		} else {
			provider = p
		}
	}

	var vision llm.VisionProvider
	if vp, ok := provider.(llm.VisionProvider); ok {
		vision = vp
	}
	deep := forensics.NewDeepDetector(cfg.Deep, vision)
	analyzer := forensics.NewAnalyzer(cfg.Forensics, deep)
	pool := worker.NewForensicsPool(cfg.Concurrency.ForensicsWorkers, analyzer.Analyze)

	var secondary extract.OCREngine
	if cfg.Extraction.SecondaryOCRURL != "" {
		secondary = extract.NewRemoteEngine(cfg.Extraction.SecondaryOCRURL, cfg.Extraction.OCRTimeout)
	}
	tesseract := extract.NewTesseractEngine()
	extractor := extract.NewExtractor(cfg.Extraction, tesseract, secondary, provider)

	registry, err := verify.NewRegistry(cfg.Registry.CSVPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: issuer registry degraded to built-ins: %v\n", err)
	}

	var pageCache cache.Cache
	if cfg.Cache.Enabled {
		pageCache = cache.NewMemoryCache(cfg.Cache.TTL, 2*cfg.Cache.TTL)
	}
	limiter := worker.NewLimiter(cfg.HTTP.RatePerSecond, cfg.HTTP.RateBurst)
	var robots *verify.RobotsGate
	if cfg.HTTP.RespectRobots {
		robots = verify.NewRobotsGate(cfg.HTTP.UserAgent, 5*time.Second)
	}
	fast := verify.NewFetcher(cfg.HTTP, cfg.Cache.TTL, pageCache, limiter, robots)
	browser := verify.NewBrowser(cfg.Verify, cfg.HTTP.UserAgent)
	verifier := verify.NewVerifier(cfg.Verify, registry, fast, browser, tesseract)

	return &Pipeline{
		config:    cfg,
		forensics: pool,
		extractor: extractor,
		verifier:  verifier,
		pool:      pool,
	}
}

// SetVerbose toggles progress logging to stderr.
func (p *Pipeline) SetVerbose(v bool) { p.verbose = v }

// Close releases the pipeline's workers.
func (p *Pipeline) Close() {
	if p.pool != nil {
		p.pool.Shutdown()
	}
}

// Process runs all three cascades over the document and assembles the final
// verdict. Forensics is CPU-bound and runs on the worker pool concurrently
// with the I/O-bound extraction.
func (p *Pipeline) Process(ctx context.Context, doc model.Document) (*model.Report, error) {
	if err := extract.ValidateDocument(doc, p.config.Extraction); err != nil {
		return nil, err
	}

	p.logf("Analyzing %s (%d bytes)", doc.Filename, doc.Size())

	type forensicsOut struct {
		verdict model.ManipulationVerdict
		err     error
	}
	forensicsCh := make(chan forensicsOut, 1)
	go func() {
		v, err := p.forensics.Analyze(ctx, doc)
		forensicsCh <- forensicsOut{v, err}
	}()

	fields, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	p.logf("Extraction: name=%q id=%q issuer=%q incomplete=%v",
		fields.CandidateName, fields.CertificateID, fields.IssuerName, fields.Incomplete)

	fr := <-forensicsCh
	if fr.err != nil {
		// The pool only fails on cancellation or shutdown; the report still
		// carries a verdict.
		fr.verdict = model.ManipulationVerdict{
			Risk:   model.RiskPass,
			Status: "Unknown - Forensic Analysis Unavailable",
		}
	}
	p.logf("Forensics: score=%.2f risk=%s", fr.verdict.Score, fr.verdict.Risk)

	verification := p.verifier.Verify(ctx, fields)
	p.logf("Verification: verified=%v method=%s confidence=%.2f",
		verification.IsVerified, verification.Method, verification.Confidence)

	report := &model.Report{
		Filename:     doc.Filename,
		FinalVerdict: finalVerdict(fr.verdict, verification),
		Forensics:    fr.verdict,
		Extraction:   fields,
		Verification: verification,
	}
	return report, nil
}

// finalVerdict folds the cascade outcomes into the document verdict.
// Forensic high risk outranks a successful web verification: a tampered
// document can still point at a real certificate page.
func finalVerdict(f model.ManipulationVerdict, v model.VerificationVerdict) string {
	switch {
	case f.Risk == model.RiskHigh:
		return model.VerdictFlagged
	case v.IsVerified:
		return model.VerdictVerified
	default:
		return model.VerdictUnverified
	}
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
