package cascade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avashisht/veridoc/internal/model"
)

func constStage(name string, score float64) Stage {
	return Stage{
		Name: name,
		Run: func(ctx context.Context, doc model.Document) (model.Signal, error) {
			return model.Signal{Method: name, Score: score}, nil
		},
	}
}

func TestEngine_RunsStagesInOrder(t *testing.T) {
	engine := NewEngine(FailOpen)

	var order []string
	stages := []Stage{}
	for _, name := range []string{"first", "second", "third"} {
		n := name
		stages = append(stages, Stage{
			Name: n,
			Run: func(ctx context.Context, doc model.Document) (model.Signal, error) {
				order = append(order, n)
				return model.Signal{Method: n, Score: 0.5}, nil
			},
		})
	}

	signals, stopped := engine.Run(context.Background(), model.Document{}, stages, Always)
	if stopped {
		t.Error("expected full run, got early stop")
	}
	if len(signals) != 3 {
		t.Fatalf("expected 3 signals, got %d", len(signals))
	}
	for i, name := range []string{"first", "second", "third"} {
		if order[i] != name {
			t.Errorf("stage %d ran as %q, want %q", i, order[i], name)
		}
		if signals[i].Method != name {
			t.Errorf("signal %d method %q, want %q", i, signals[i].Method, name)
		}
	}
}

func TestEngine_EscalationStops(t *testing.T) {
	engine := NewEngine(FailOpen)

	secondRan := false
	stages := []Stage{
		constStage("cheap", 0.1),
		{
			Name: "expensive",
			Run: func(ctx context.Context, doc model.Document) (model.Signal, error) {
				secondRan = true
				return model.Signal{Method: "expensive", Score: 0.9}, nil
			},
		},
	}

	// Escalate only when the cheap score exceeds 0.4.
	escalate := func(signals []model.Signal) bool {
		return signals[len(signals)-1].Score > 0.4
	}

	signals, stopped := engine.Run(context.Background(), model.Document{}, stages, escalate)
	if !stopped {
		t.Error("expected early stop")
	}
	if secondRan {
		t.Error("expensive stage ran despite low cheap score")
	}
	if len(signals) != 1 {
		t.Errorf("expected 1 signal, got %d", len(signals))
	}
}

func TestEngine_EscalationMonotonicity(t *testing.T) {
	engine := NewEngine(FailOpen)
	escalate := func(signals []model.Signal) bool {
		return signals[len(signals)-1].Score > 0.4
	}

	for _, tc := range []struct {
		score      float64
		wantSecond bool
	}{
		{0.39, false},
		{0.41, true},
		{0.95, true},
	} {
		secondRan := false
		stages := []Stage{
			constStage("cheap", tc.score),
			{
				Name: "deep",
				Run: func(ctx context.Context, doc model.Document) (model.Signal, error) {
					secondRan = true
					return model.Signal{Method: "deep", Score: 0.5}, nil
				},
			},
		}
		engine.Run(context.Background(), model.Document{}, stages, escalate)
		if secondRan != tc.wantSecond {
			t.Errorf("score %.2f: deep stage ran=%v, want %v", tc.score, secondRan, tc.wantSecond)
		}
	}
}

func TestEngine_FailOpenCapturesError(t *testing.T) {
	engine := NewEngine(FailOpen)

	stages := []Stage{
		{
			Name: "broken",
			Run: func(ctx context.Context, doc model.Document) (model.Signal, error) {
				return model.Signal{Method: "broken", Score: 0.8}, errors.New("collaborator down")
			},
		},
		constStage("next", 0.2),
	}

	signals, stopped := engine.Run(context.Background(), model.Document{}, stages, Always)
	if stopped {
		t.Error("fail-open cascade should continue past a fault")
	}
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	if !signals[0].Failed() {
		t.Error("expected first signal to carry the fault")
	}
	if signals[0].Score != 0 {
		t.Errorf("faulted signal score = %v, want 0", signals[0].Score)
	}
}

func TestEngine_FailOpenCapturesPanic(t *testing.T) {
	engine := NewEngine(FailOpen)

	stages := []Stage{
		{
			Name: "panics",
			Run: func(ctx context.Context, doc model.Document) (model.Signal, error) {
				panic("boom")
			},
		},
		constStage("next", 0.2),
	}

	signals, _ := engine.Run(context.Background(), model.Document{}, stages, Always)
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	if !signals[0].Failed() {
		t.Error("expected panic captured as fault")
	}
}

func TestEngine_FailClosedAborts(t *testing.T) {
	engine := NewEngine(FailClosed)

	secondRan := false
	stages := []Stage{
		{
			Name: "broken",
			Run: func(ctx context.Context, doc model.Document) (model.Signal, error) {
				return model.Signal{}, errors.New("fatal")
			},
		},
		{
			Name: "next",
			Run: func(ctx context.Context, doc model.Document) (model.Signal, error) {
				secondRan = true
				return model.Signal{Method: "next"}, nil
			},
		},
	}

	signals, stopped := engine.Run(context.Background(), model.Document{}, stages, Always)
	if !stopped {
		t.Error("fail-closed cascade should abort on fault")
	}
	if secondRan {
		t.Error("stage after fault ran under fail-closed policy")
	}
	if len(signals) != 1 {
		t.Errorf("expected 1 signal, got %d", len(signals))
	}
}

func TestEngine_DeadlineBudgetShared(t *testing.T) {
	engine := NewEngine(FailOpen)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	thirdRan := false
	stages := []Stage{
		{
			Name: "slow",
			Run: func(ctx context.Context, doc model.Document) (model.Signal, error) {
				select {
				case <-time.After(200 * time.Millisecond):
				case <-ctx.Done():
				}
				return model.Signal{Method: "slow", Score: 0.5}, nil
			},
		},
		{
			Name: "late",
			Run: func(ctx context.Context, doc model.Document) (model.Signal, error) {
				thirdRan = true
				return model.Signal{Method: "late"}, nil
			},
		},
	}

	signals, stopped := engine.Run(ctx, model.Document{}, stages, Always)
	if !stopped {
		t.Error("expected early stop once budget spent")
	}
	if thirdRan {
		t.Error("stage ran after the shared deadline expired")
	}
	// The deadline signal for the unrun stage is recorded, not dropped.
	last := signals[len(signals)-1]
	if !last.Failed() {
		t.Error("expected deadline recorded as a fault on the unrun stage")
	}
}
