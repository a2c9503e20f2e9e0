package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/avashisht/veridoc/internal/model"
)

type fakeForensics struct {
	verdict model.ManipulationVerdict
	err     error
}

func (f *fakeForensics) Analyze(ctx context.Context, doc model.Document) (model.ManipulationVerdict, error) {
	return f.verdict, f.err
}

type fakeExtractor struct {
	fields model.ExtractedFields
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, doc model.Document) (model.ExtractedFields, error) {
	return f.fields, f.err
}

type fakeVerifier struct {
	verdict model.VerificationVerdict
	calls   int
}

func (f *fakeVerifier) Verify(ctx context.Context, fields model.ExtractedFields) model.VerificationVerdict {
	f.calls++
	return f.verdict
}

func testDoc(t *testing.T) model.Document {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{220, 220, 220, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return model.Document{Bytes: buf.Bytes(), MediaType: "image/png", Filename: "cert.png"}
}

func testPipeline(f ForensicsRunner, e FieldExtractor, v WebVerifier) *Pipeline {
	cfg := model.DefaultConfig()
	return &Pipeline{config: cfg, forensics: f, extractor: e, verifier: v}
}

func TestProcessVerified(t *testing.T) {
	p := testPipeline(
		&fakeForensics{verdict: model.ManipulationVerdict{Score: 0.1, Risk: model.RiskPass}},
		&fakeExtractor{fields: model.ExtractedFields{CandidateName: "Jane Doe", IssuerName: "Coursera"}},
		&fakeVerifier{verdict: model.VerificationVerdict{IsVerified: true, Method: "dom_text_match", Confidence: 1.0}},
	)

	report, err := p.Process(context.Background(), testDoc(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.FinalVerdict != model.VerdictVerified {
		t.Errorf("FinalVerdict = %q", report.FinalVerdict)
	}
	if report.Filename != "cert.png" {
		t.Errorf("Filename = %q", report.Filename)
	}
}

func TestProcessFlaggedOutranksVerified(t *testing.T) {
	// A tampered document can still point at a real certificate page; the
	// forensic verdict wins.
	p := testPipeline(
		&fakeForensics{verdict: model.ManipulationVerdict{Score: 0.9, Risk: model.RiskHigh}},
		&fakeExtractor{fields: model.ExtractedFields{CandidateName: "Jane Doe"}},
		&fakeVerifier{verdict: model.VerificationVerdict{IsVerified: true}},
	)

	report, err := p.Process(context.Background(), testDoc(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.FinalVerdict != model.VerdictFlagged {
		t.Errorf("FinalVerdict = %q", report.FinalVerdict)
	}
}

func TestProcessUnverified(t *testing.T) {
	p := testPipeline(
		&fakeForensics{verdict: model.ManipulationVerdict{Risk: model.RiskWarning}},
		&fakeExtractor{fields: model.ExtractedFields{CandidateName: "Jane Doe", Incomplete: true}},
		&fakeVerifier{verdict: model.VerificationVerdict{Method: "failed", Confidence: 0.4}},
	)

	report, err := p.Process(context.Background(), testDoc(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.FinalVerdict != model.VerdictUnverified {
		t.Errorf("FinalVerdict = %q", report.FinalVerdict)
	}
	if !report.Extraction.Incomplete {
		t.Error("degraded extraction state lost in the report")
	}
}

func TestProcessRejectsInvalidInput(t *testing.T) {
	verifier := &fakeVerifier{}
	p := testPipeline(&fakeForensics{}, &fakeExtractor{}, verifier)

	var invalid *model.InputValidationError
	if _, err := p.Process(context.Background(), model.Document{}); !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InputValidationError", err)
	}
	if verifier.calls != 0 {
		t.Error("verification ran for an invalid document")
	}
}

func TestProcessExtractionErrorPropagates(t *testing.T) {
	p := testPipeline(
		&fakeForensics{},
		&fakeExtractor{err: &model.InputValidationError{Reason: "unsupported format"}},
		&fakeVerifier{},
	)

	if _, err := p.Process(context.Background(), testDoc(t)); err == nil {
		t.Fatal("expected extraction error to propagate")
	}
}

func TestProcessForensicsFailureStillReports(t *testing.T) {
	p := testPipeline(
		&fakeForensics{err: errors.New("pool shut down")},
		&fakeExtractor{fields: model.ExtractedFields{CandidateName: "Jane Doe"}},
		&fakeVerifier{verdict: model.VerificationVerdict{IsVerified: true}},
	)

	report, err := p.Process(context.Background(), testDoc(t))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.Forensics.Status == "" {
		t.Error("missing fallback forensics status")
	}
	if report.FinalVerdict != model.VerdictVerified {
		t.Errorf("FinalVerdict = %q", report.FinalVerdict)
	}
}
