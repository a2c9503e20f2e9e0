package forensics

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoding
	"math"
	"sort"

	"github.com/avashisht/veridoc/internal/cascade"
)

// Block grid sizes for the two-scale residue decomposition. The coarse grid
// establishes the document-wide recompression baseline; the fine grid exposes
// localized splices that average away at the coarse scale.
const (
	largeBlock = 32
	smallBlock = 16
)

// Residue sub-score fusion weights, in sub-score order: outlier ratio,
// extreme-value deviation, inter-percentile gap, coefficient of variation,
// maximum-block deviation.
var residueWeights = []float64{0.30, 0.25, 0.20, 0.15, 0.10}

// A baseline mean residue above this marks a non-digital-origin image (photo
// of a certificate, scan) where the five-part decomposition over-triggers.
const highBaselineResidue = 8.0

// ResidueResult carries the statistical residue analysis of one image.
type ResidueResult struct {
	Score          float64            // fused statistical score in [0,1]
	SingleScaleMax float64            // highest individual sub-score
	Baseline       float64            // mean large-block residue
	SubScores      map[string]float64 // named sub-scores
	DigitalOrigin  bool               // whether the full decomposition applied
}

// AnalyzeResidue re-encodes the image at a fixed JPEG quality, computes the
// pixel residue map, and derives block statistics at two scales. It is a pure
// function of the input bytes: identical input yields identical sub-scores.
func AnalyzeResidue(data []byte, quality int) (*ResidueResult, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if quality <= 0 || quality > 100 {
		quality = 90
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("re-encode image: %w", err)
	}
	recompressed, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode re-encoded image: %w", err)
	}

	diff := residueMap(img, recompressed)
	if len(diff.values) == 0 {
		return nil, fmt.Errorf("empty residue map")
	}

	largeMeans := blockMeans(diff, largeBlock)
	smallMeans := blockMeans(diff, smallBlock)
	if len(largeMeans) == 0 || len(smallMeans) == 0 {
		return nil, fmt.Errorf("image too small for block analysis")
	}

	baseline := mean(largeMeans)

	// Non-digital origin: recompression residue is high everywhere, so the
	// decomposition would read ordinary sensor noise as tampering. Compare the
	// fine grid against the coarse baseline directly instead.
	if baseline > highBaselineResidue {
		p95 := percentile(smallMeans, 95)
		score := clamp((p95 - baseline) / (baseline * 3))
		return &ResidueResult{
			Score:          score,
			SingleScaleMax: score,
			Baseline:       baseline,
			DigitalOrigin:  false,
			SubScores:      map[string]float64{"baseline_comparison": score},
		}, nil
	}

	subs := subScores(smallMeans, baseline)
	scores := []float64{
		subs["outlier_ratio"],
		subs["extreme_deviation"],
		subs["percentile_gap"],
		subs["coefficient_variation"],
		subs["max_deviation"],
	}

	maxSub := 0.0
	for _, s := range scores {
		if s > maxSub {
			maxSub = s
		}
	}

	return &ResidueResult{
		Score:          cascade.CombineValues(scores, residueWeights),
		SingleScaleMax: maxSub,
		Baseline:       baseline,
		DigitalOrigin:  true,
		SubScores:      subs,
	}, nil
}

// subScores derives the five-part decomposition of the fine-grid residue
// against the coarse baseline.
func subScores(blocks []float64, baseline float64) map[string]float64 {
	sorted := append([]float64(nil), blocks...)
	sort.Float64s(sorted)

	m := mean(blocks)
	sd := stddev(blocks, m)

	// Outlier ratio: fine blocks whose residue dwarfs the document baseline.
	outlierCutoff := baseline*2 + 1
	outliers := 0
	for _, b := range blocks {
		if b > outlierCutoff {
			outliers++
		}
	}
	outlierRatio := clamp(float64(outliers) / float64(len(blocks)) * 10)

	// Extreme-value deviation of the upper tail above the baseline.
	p99 := percentileSorted(sorted, 99)
	extremeDeviation := clamp((p99 - baseline) / 25)

	// Inter-percentile gap: a wide 95th-75th spread means the residue is not
	// uniform across the document.
	gap := percentileSorted(sorted, 95) - percentileSorted(sorted, 75)
	percentileGap := clamp(gap / 20)

	// Coefficient of variation of the fine-grid means.
	var coefVar float64
	if m > 0 {
		coefVar = clamp(sd / m / 2)
	}

	// Worst single block against the baseline.
	maxDeviation := clamp((sorted[len(sorted)-1] - baseline) / 50)

	return map[string]float64{
		"outlier_ratio":         outlierRatio,
		"extreme_deviation":     extremeDeviation,
		"percentile_gap":        percentileGap,
		"coefficient_variation": coefVar,
		"max_deviation":         maxDeviation,
	}
}

// grayMap is a row-major luminance residue map.
type grayMap struct {
	w, h   int
	values []float64
}

// residueMap computes the absolute luminance difference between the original
// and the recompressed image over their shared bounds.
func residueMap(a, b image.Image) grayMap {
	bounds := a.Bounds().Intersect(b.Bounds())
	w, h := bounds.Dx(), bounds.Dy()
	out := grayMap{w: w, h: h, values: make([]float64, 0, w*h)}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.values = append(out.values, math.Abs(luma(a.At(x, y))-luma(b.At(x, y))))
		}
	}
	return out
}

func luma(c interface {
	RGBA() (r, g, b, a uint32)
}) float64 {
	r, g, b, _ := c.RGBA()
	// 16-bit channels scaled to 8-bit luminance.
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
}

// blockMeans partitions the residue map into size×size blocks and returns the
// mean residue of each full block. Partial edge blocks are ignored.
func blockMeans(m grayMap, size int) []float64 {
	cols := m.w / size
	rows := m.h / size
	if cols == 0 || rows == 0 {
		return nil
	}

	means := make([]float64, 0, cols*rows)
	for by := 0; by < rows; by++ {
		for bx := 0; bx < cols; bx++ {
			var sum float64
			for y := by * size; y < (by+1)*size; y++ {
				row := y * m.w
				for x := bx * size; x < (bx+1)*size; x++ {
					sum += m.values[row+x]
				}
			}
			means = append(means, sum/float64(size*size))
		}
	}
	return means
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func stddev(v []float64, m float64) float64 {
	if len(v) < 2 {
		return 0
	}
	var sum float64
	for _, x := range v {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(v)))
}

func percentile(v []float64, p float64) float64 {
	sorted := append([]float64(nil), v...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
