package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/avashisht/veridoc/internal/cascade"
	"github.com/avashisht/veridoc/internal/llm"
	"github.com/avashisht/veridoc/internal/model"
)

// Keyword groups for the completeness heuristic: a usable OCR result mentions
// a certificate, names a known platform, and has prose around the fields.
var (
	certKeywords = []string{"certificate", "certification", "certify", "credential", "completion", "achievement"}
	orgKeywords  = []string{"coursera", "udemy", "edx", "linkedin", "google", "ibm", "microsoft", "credly", "university", "institute", "academy"}
)

// Extractor runs the field-extraction cascade: OCR retry ladder, optional
// secondary engine merge, QR scan, language-model structuring, deterministic
// cleanup. A degraded result is marked Incomplete, never an error; only input
// validation is fatal.
type Extractor struct {
	cfg       model.ExtractionConfig
	primary   OCREngine
	secondary OCREngine    // nil when no sidecar is configured
	provider  llm.Provider // nil when structuring is disabled
	ladder    *cascade.Engine
}

// NewExtractor wires the extraction cascade. secondary and provider may be
// nil.
func NewExtractor(cfg model.ExtractionConfig, primary, secondary OCREngine, provider llm.Provider) *Extractor {
	return &Extractor{
		cfg:       cfg,
		primary:   primary,
		secondary: secondary,
		provider:  provider,
		ladder:    cascade.NewEngine(cascade.FailOpen),
	}
}

// Extract recovers identity fields from the document.
func (x *Extractor) Extract(ctx context.Context, doc model.Document) (model.ExtractedFields, error) {
	if err := ValidateDocument(doc, x.cfg); err != nil {
		return model.ExtractedFields{}, err
	}

	if x.cfg.OCRTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.cfg.OCRTimeout)
		defer cancel()
	}

	var faults []string

	preprocessed, err := Preprocess(doc.Bytes, x.cfg.UpscaleFloor)
	if err != nil {
		faults = append(faults, "preprocess: "+err.Error())
		preprocessed = doc.Bytes
	}

	text, ladderFaults := x.runLadder(ctx, doc, preprocessed)
	faults = append(faults, ladderFaults...)

	// The secondary engine is costly: it only runs when the primary ladder
	// came back without the fields the structuring step needs.
	if x.secondary != nil && !x.textComplete(text) {
		merged, fault := x.mergeSecondary(ctx, doc.Bytes, text)
		if fault != "" {
			faults = append(faults, fault)
		} else {
			text = merged
		}
	}

	qrPayload, err := ScanQR(doc.Bytes)
	if err != nil {
		faults = append(faults, "qr scan: "+err.Error())
	}
	if qrPayload != "" {
		text = strings.TrimSpace(text + "\n" + qrAnnotation(qrPayload))
	}

	fields, structFaults := x.structure(ctx, text)
	faults = append(faults, structFaults...)

	fields, notes := CleanFields(fields)
	faults = append(faults, notes...)

	if IsHTTPURL(qrPayload) {
		// A machine-readable URL beats an OCR-recovered one.
		fields.IssuerURL = qrPayload
	}
	if fields.IssuerURL != "" {
		fields.IssuerURL = ExpandShortLink(fields.IssuerURL, fields.CertificateID)
	}

	fields.RawTextSnippet = snippet(text, x.cfg.SnippetLength)
	fields.Faults = faults
	fields.Incomplete = len(structFaults) > 0 || !x.textComplete(text)
	return fields, nil
}

// Page-segmentation modes for the retry ladder.
const (
	psmDefault     = 0
	psmSingleBlock = 6
	psmSparseText  = 11
)

const quadrantRung = "ocr_quadrant"

// Corner text shorter than this is treated as noise rather than an id.
const minQuadrantChars = 5

// runLadder walks the OCR retry ladder until a rung recovers enough text.
// Later rungs only run when earlier ones came back thin, each targeting a
// specific failure: dense layouts, preprocessing artifacts, scattered text.
// The final rung re-scans the top-right corner, where several platforms
// print the credential id; its output is appended to the recovered text, not
// compared against it.
func (x *Extractor) runLadder(ctx context.Context, doc model.Document, preprocessed []byte) (string, []string) {
	rung := func(image []byte, opts RecognizeOptions) cascade.StageFunc {
		return func(ctx context.Context, _ model.Document) (model.Signal, error) {
			out, err := x.primary.Recognize(ctx, image, opts)
			if err != nil {
				return model.Signal{}, err
			}
			return model.Signal{
				Score:   completenessScore(out, x.cfg.MinWordCount),
				Metrics: map[string]interface{}{"text": out},
			}, nil
		}
	}

	stages := []cascade.Stage{
		{Name: "ocr_standard", Run: rung(preprocessed, RecognizeOptions{})},
		{Name: "ocr_block", Run: rung(preprocessed, RecognizeOptions{PSM: psmSingleBlock})},
		{Name: "ocr_raw", Run: rung(doc.Bytes, RecognizeOptions{})},
		{Name: "ocr_sparse", Run: rung(preprocessed, RecognizeOptions{PSM: psmSparseText})},
	}
	if crop, err := TopRightQuadrant(doc.Bytes); err == nil {
		stages = append(stages, cascade.Stage{Name: quadrantRung, Run: rung(crop, RecognizeOptions{})})
	}

	escalate := func(signals []model.Signal) bool {
		last := signals[len(signals)-1]
		if last.Failed() {
			return true
		}
		return len(strings.TrimSpace(stageText(last))) < x.cfg.MinTextLength
	}

	signals, _ := x.ladder.Run(ctx, doc, stages, escalate)

	var best, corner string
	var faults []string
	for _, sig := range signals {
		if sig.Failed() {
			faults = append(faults, sig.Method+": "+sig.Err)
			continue
		}
		t := stageText(sig)
		if sig.Method == quadrantRung {
			corner = strings.TrimSpace(t)
			continue
		}
		if betterText(t, best) {
			best = t
		}
	}
	if len(corner) > minQuadrantChars {
		best = strings.TrimSpace(best + "\n" + corner)
	}
	return best, faults
}

// mergeSecondary appends the secondary engine's novel tokens to the primary
// text. Below the novelty floor the secondary output is assumed redundant.
func (x *Extractor) mergeSecondary(ctx context.Context, image []byte, primary string) (string, string) {
	out, err := x.secondary.Recognize(ctx, image, RecognizeOptions{})
	if err != nil {
		var unavailable *model.CollaboratorUnavailable
		if errors.As(err, &unavailable) {
			return primary, ""
		}
		return primary, "secondary ocr: " + err.Error()
	}

	seen := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(primary)) {
		seen[tok] = true
	}
	var novel []string
	for _, tok := range strings.Fields(out) {
		if !seen[strings.ToLower(tok)] {
			novel = append(novel, tok)
		}
	}
	if len(novel) <= x.cfg.NovelTokenFloor {
		return primary, ""
	}
	return strings.TrimSpace(primary + "\n" + strings.Join(novel, " ")), ""
}

// structure runs the language-model field structuring over the OCR text.
func (x *Extractor) structure(ctx context.Context, text string) (model.ExtractedFields, []string) {
	if len(strings.TrimSpace(text)) < x.cfg.MinTextLength {
		return model.ExtractedFields{}, []string{"too little text recovered from document"}
	}
	if x.provider == nil {
		return model.ExtractedFields{}, []string{"field structuring disabled: no language model configured"}
	}

	fields, err := StructureFields(ctx, x.provider, text)
	if err != nil {
		return model.ExtractedFields{}, []string{"structure fields: " + err.Error()}
	}
	return fields, nil
}

// textComplete is the completeness heuristic that decides whether the
// secondary engine still has something to add.
func (x *Extractor) textComplete(text string) bool {
	lowered := strings.ToLower(text)
	if !containsAny(lowered, certKeywords) || !containsAny(lowered, orgKeywords) {
		return false
	}
	return len(strings.Fields(text)) > x.cfg.MinWordCount
}

// qrAnnotation labels the decoded QR payload for the structuring model.
func qrAnnotation(payload string) string {
	note := "[QR CODE DATA FOUND]: " + payload
	lowered := strings.ToLower(payload)
	if strings.Contains(lowered, "ude.my") || strings.Contains(lowered, "udemy.com") {
		note += "\nThe certificate id is the UC- code in the QR URL above."
	}
	return note
}

func stageText(sig model.Signal) string {
	t, _ := sig.Metrics["text"].(string)
	return t
}

// betterText prefers the candidate when it is longer.
func betterText(candidate, current string) bool {
	return len(strings.Fields(candidate)) > len(strings.Fields(current))
}

func completenessScore(text string, minWords int) float64 {
	if minWords <= 0 {
		minWords = 1
	}
	score := float64(len(strings.Fields(text))) / float64(minWords)
	if score > 1 {
		score = 1
	}
	return score
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func snippet(text string, limit int) string {
	trimmed := strings.TrimSpace(text)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit]
}
