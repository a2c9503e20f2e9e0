package forensics

import (
	"context"
	"fmt"

	"github.com/avashisht/veridoc/internal/cascade"
	"github.com/avashisht/veridoc/internal/model"
)

// Stage method names.
const (
	StageMetadata = "metadata"
	StageResidue  = "residue"
	StageDeep     = "deep"
)

// Analyzer runs the tamper-detection cascade:
//
//	1. metadata probe (instant, evidence only)
//	2. statistical residue analysis
//	3. deep detector opinion, only when the residue stage is suspicious
//
// Apart from the black-box deep call it is a pure function of the document
// bytes. CPU-bound: callers run it off the request path.
type Analyzer struct {
	cfg    model.ForensicsConfig
	engine *cascade.Engine
	deep   *DeepDetector
}

// NewAnalyzer creates a forensics analyzer. deep may be an unavailable handle;
// the cascade then degrades to statistics-only.
func NewAnalyzer(cfg model.ForensicsConfig, deep *DeepDetector) *Analyzer {
	return &Analyzer{
		cfg:    cfg,
		engine: cascade.NewEngine(cascade.FailOpen),
		deep:   deep,
	}
}

// Analyze produces exactly one verdict for the document, also on total
// collaborator failure.
func (a *Analyzer) Analyze(ctx context.Context, doc model.Document) model.ManipulationVerdict {
	if a.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Deadline)
		defer cancel()
	}

	stages := []cascade.Stage{
		{Name: StageMetadata, Run: a.metadataStage},
		{Name: StageResidue, Run: a.residueStage},
		{Name: StageDeep, Run: a.deepStage},
	}

	signals, _ := a.engine.Run(ctx, doc, stages, a.escalate)
	return a.verdict(signals)
}

func (a *Analyzer) metadataStage(ctx context.Context, doc model.Document) (model.Signal, error) {
	probe := ProbeMetadata(doc.Bytes)
	return model.Signal{
		Method:     StageMetadata,
		Suspicious: probe.Suspicious,
		Metrics: map[string]interface{}{
			"editors": probe.EditorsDetected,
		},
	}, nil
}

func (a *Analyzer) residueStage(ctx context.Context, doc model.Document) (model.Signal, error) {
	res, err := AnalyzeResidue(doc.Bytes, a.cfg.RecompressQuality)
	if err != nil {
		return model.Signal{Method: StageResidue}, err
	}
	return model.Signal{
		Method:     StageResidue,
		Score:      res.Score,
		Suspicious: res.Score > a.cfg.EscalateThreshold,
		Metrics: map[string]interface{}{
			"single_scale_max": res.SingleScaleMax,
			"baseline":         res.Baseline,
			"digital_origin":   res.DigitalOrigin,
			"sub_scores":       res.SubScores,
		},
	}, nil
}

func (a *Analyzer) deepStage(ctx context.Context, doc model.Document) (model.Signal, error) {
	if ok, reason := a.deep.Available(); !ok {
		return model.Signal{
			Method:  StageDeep,
			Skipped: true,
			Metrics: map[string]interface{}{"reason": reason},
		}, nil
	}

	opinion, err := a.deep.Score(ctx, doc.Bytes, doc.MediaType)
	if err != nil {
		// Documented zero-score fallback: the fault is recorded on the
		// signal and the fused score falls back to statistics-only.
		return model.Signal{Method: StageDeep}, err
	}
	return model.Signal{
		Method:     StageDeep,
		Score:      opinion.Score,
		Suspicious: opinion.Score > a.cfg.EscalateThreshold,
		Metrics: map[string]interface{}{
			"analysis":  opinion.Analysis,
			"reasoning": opinion.Reasoning,
		},
	}, nil
}

// escalate decides whether the next (more expensive) stage runs. The deep
// stage is only worth its cost when the residue statistics are already
// suspicious or a single scale is near-certain.
func (a *Analyzer) escalate(signals []model.Signal) bool {
	last := signals[len(signals)-1]
	switch last.Method {
	case StageMetadata:
		// The probe is advisory; the residue stage always runs.
		return true
	case StageResidue:
		if last.Failed() {
			return false
		}
		return last.Score > a.cfg.EscalateThreshold || singleScaleMax(last) > a.cfg.HardIndicator
	default:
		return false
	}
}

func (a *Analyzer) verdict(signals []model.Signal) model.ManipulationVerdict {
	weights := cascade.Weights{
		StageResidue: a.cfg.ResidueWeight,
		StageDeep:    a.cfg.DeepWeight,
	}
	fused := cascade.Combine(signals, weights, a.cfg.HardIndicator)

	var (
		evidence      []string
		residueFailed = true
		hardHit       bool
	)
	verdict := model.ManipulationVerdict{Signals: signals}

	for _, sig := range signals {
		switch sig.Method {
		case StageMetadata:
			probe := MetadataResult{Suspicious: sig.Suspicious}
			if eds, ok := sig.Metrics["editors"].([]string); ok {
				probe.EditorsDetected = eds
			}
			evidence = append(evidence, probe.Evidence()...)
		case StageResidue:
			if !sig.Failed() {
				residueFailed = false
				evidence = append(evidence, fmt.Sprintf("Residue score: %.2f", sig.Score))
				if singleScaleMax(sig) > a.cfg.HardIndicator {
					hardHit = true
					evidence = append(evidence, fmt.Sprintf("Hard indicator: single-scale score %.2f", singleScaleMax(sig)))
				}
			} else {
				evidence = append(evidence, "Residue analysis failed: "+sig.Err)
			}
		case StageDeep:
			switch {
			case sig.Skipped:
				evidence = append(evidence, "Deep analysis unavailable (statistics only)")
			case sig.Failed():
				evidence = append(evidence, "Deep analysis failed, zero-score fallback: "+sig.Err)
			default:
				score := sig.Score
				verdict.DeepScore = &score
				verdict.DeepAnalysis, _ = sig.Metrics["analysis"].(string)
				verdict.DeepReasoning, _ = sig.Metrics["reasoning"].(string)
				evidence = append(evidence, fmt.Sprintf("Deep score: %.2f", sig.Score))
			}
		}
	}

	verdict.Score = fused
	verdict.Evidence = evidence

	switch {
	case residueFailed && verdict.DeepScore == nil:
		// Total collaborator failure still yields a verdict, never a fault.
		verdict.Risk = model.RiskPass
		verdict.Status = "Unknown - Forensic Analysis Unavailable"
	case hardHit || fused > a.cfg.HighRiskCutoff:
		verdict.Risk = model.RiskHigh
		verdict.Status = "High Risk - Possible Digital Manipulation Detected"
	case fused > a.cfg.WarningCutoff:
		verdict.Risk = model.RiskWarning
		verdict.Status = "Medium Risk - Some Irregularities Detected"
	default:
		verdict.Risk = model.RiskPass
		verdict.Status = "Pass - Integrity Intact"
	}

	return verdict
}

func singleScaleMax(sig model.Signal) float64 {
	if v, ok := sig.Metrics["single_scale_max"].(float64); ok {
		return v
	}
	return 0
}
