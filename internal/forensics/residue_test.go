package forensics

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func uniformImage(w, h int, gray uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{gray, gray, gray, 255})
		}
	}
	return img
}

func noisyImage(w, h int, seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	return img
}

func TestAnalyzeResidueDeterministic(t *testing.T) {
	data := encodePNG(t, noisyImage(128, 128, 42))

	first, err := AnalyzeResidue(data, 90)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := AnalyzeResidue(data, 90)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.Score != second.Score || first.SingleScaleMax != second.SingleScaleMax || first.Baseline != second.Baseline {
		t.Errorf("same bytes produced different results: %+v vs %+v", first, second)
	}
	for k, v := range first.SubScores {
		if second.SubScores[k] != v {
			t.Errorf("sub-score %s differs: %v vs %v", k, v, second.SubScores[k])
		}
	}
}

func TestAnalyzeResidueBounds(t *testing.T) {
	for _, data := range [][]byte{
		encodePNG(t, uniformImage(96, 96, 180)),
		encodePNG(t, noisyImage(96, 96, 7)),
	} {
		res, err := AnalyzeResidue(data, 90)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		if res.Score < 0 || res.Score > 1 {
			t.Errorf("score out of range: %v", res.Score)
		}
		if res.SingleScaleMax < 0 || res.SingleScaleMax > 1 {
			t.Errorf("single-scale score out of range: %v", res.SingleScaleMax)
		}
	}
}

func TestAnalyzeResidueUniformLow(t *testing.T) {
	data := encodePNG(t, uniformImage(128, 128, 128))

	res, err := AnalyzeResidue(data, 90)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Score > 0.2 {
		t.Errorf("flat image scored %.2f, expected near zero", res.Score)
	}
}

func TestAnalyzeResidueRejectsBadBytes(t *testing.T) {
	if _, err := AnalyzeResidue([]byte("definitely not an image"), 90); err == nil {
		t.Fatal("expected decode error")
	}
}
