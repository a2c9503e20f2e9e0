package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/avashisht/veridoc/internal/model"
)

// StageFunc runs one detection stage against a document. The context carries
// the cascade's remaining deadline budget; the stage must bound any blocking
// collaborator call with it.
type StageFunc func(ctx context.Context, doc model.Document) (model.Signal, error)

// Stage is one ordered step of a cascade.
type Stage struct {
	Name string
	Run  StageFunc
}

// EscalateFunc decides, from the signals computed so far, whether the next
// stage should run. It never sees future stages.
type EscalateFunc func(signals []model.Signal) bool

// Policy selects how a stage fault affects the rest of the cascade.
type Policy int

const (
	// FailOpen captures the fault as a zero-score signal and continues to the
	// escalation decision. This is the default for detection cascades: one
	// broken collaborator must not take the pipeline down.
	FailOpen Policy = iota

	// FailClosed aborts the whole cascade on the first stage fault. Selected
	// per use-site where a later stage cannot run meaningfully without the
	// earlier one.
	FailClosed
)

// Engine runs an ordered stage list with conditional escalation under a
// shared deadline budget.
type Engine struct {
	policy Policy
}

// NewEngine creates an engine with the given fault policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Run executes stages strictly in order, evaluating escalate after each one.
// It returns the signals produced and whether the cascade stopped before
// exhausting the stage list (escalation declined or deadline spent).
//
// Every stage call is isolated: a returned error or a panic becomes a signal
// with Err set and Score 0. Each stage sees the remaining budget, not a fresh
// timeout, so the cascade as a whole never exceeds ctx's deadline.
func (e *Engine) Run(ctx context.Context, doc model.Document, stages []Stage, escalate EscalateFunc) ([]model.Signal, bool) {
	signals := make([]model.Signal, 0, len(stages))

	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			// Budget exhausted before this stage started.
			signals = append(signals, model.Signal{
				Method: stage.Name,
				Err:    fmt.Sprintf("deadline exhausted before stage: %v", err),
			})
			return signals, true
		}

		sig := e.runStage(ctx, doc, stage)
		signals = append(signals, sig)

		if sig.Failed() && e.policy == FailClosed {
			return signals, true
		}

		// The decision after the last stage is moot.
		if i == len(stages)-1 {
			break
		}
		if escalate != nil && !escalate(signals) {
			return signals, true
		}
	}

	return signals, false
}

// runStage invokes one stage with panic isolation and timing.
func (e *Engine) runStage(ctx context.Context, doc model.Document, stage Stage) (sig model.Signal) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			sig = model.Signal{
				Method:  stage.Name,
				Elapsed: time.Since(start),
				Err:     fmt.Sprintf("stage panic: %v", r),
			}
		}
	}()

	out, err := stage.Run(ctx, doc)
	if out.Method == "" {
		out.Method = stage.Name
	}
	if out.Elapsed == 0 {
		out.Elapsed = time.Since(start)
	}
	if err != nil {
		out.Score = 0
		out.Err = err.Error()
	}
	return out
}

// Always is an escalation predicate that runs every stage unconditionally.
func Always([]model.Signal) bool { return true }
