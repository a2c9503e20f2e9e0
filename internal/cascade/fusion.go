package cascade

import "github.com/avashisht/veridoc/internal/model"

// Weights maps stage method names to fusion weights. Signals without an entry
// do not participate in the weighted sum.
type Weights map[string]float64

// Combine fuses stage signals into one bounded score.
//
// Default rule: weighted sum over present signals. A signal is present when it
// completed without fault and was not skipped; weights of absent signals are
// dropped and the remainder renormalized to sum to 1, so a missing deep
// opinion does not silently halve a residue score.
//
// Override rule: strong unambiguous evidence must not be diluted by weak
// counter-evidence. If any single present signal's score reaches ceiling, the
// fused result is clamped up to at least that score. Ceiling <= 0 disables
// the override.
//
// The result is monotonic in every input score and always lies in [0,1].
func Combine(signals []model.Signal, weights Weights, ceiling float64) float64 {
	var sum, weightTotal float64
	var peak float64

	for _, sig := range signals {
		if sig.Failed() || sig.Skipped {
			continue
		}
		w, ok := weights[sig.Method]
		if !ok || w <= 0 {
			continue
		}
		score := clamp01(sig.Score)
		sum += score * w
		weightTotal += w
		if score > peak {
			peak = score
		}
	}

	if weightTotal == 0 {
		return 0
	}
	fused := sum / weightTotal

	if ceiling > 0 && peak >= ceiling && peak > fused {
		fused = peak
	}
	return clamp01(fused)
}

// CombineValues fuses parallel score/weight slices; used for sub-score
// decompositions inside a single stage where there is no Signal wrapper.
// Missing entries are expressed by a zero weight.
func CombineValues(scores, weights []float64) float64 {
	var sum, weightTotal float64
	for i, score := range scores {
		if i >= len(weights) || weights[i] <= 0 {
			continue
		}
		sum += clamp01(score) * weights[i]
		weightTotal += weights[i]
	}
	if weightTotal == 0 {
		return 0
	}
	return clamp01(sum / weightTotal)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
