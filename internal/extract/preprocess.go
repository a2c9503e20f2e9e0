package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	_ "image/jpeg" // register JPEG decoding

	xdraw "golang.org/x/image/draw"
)

// Enhancement parameters tuned for low-resolution certificate screenshots.
const (
	contrastFactor   = 2.5
	brightnessFactor = 1.2
	sharpenFactor    = 2.0
)

// Preprocess prepares an image for OCR: small images are doubled with a
// Catmull-Rom resampler, then converted to grayscale and pushed through
// contrast, brightness, and sharpen passes. The ladder falls back to the raw
// bytes when preprocessing fails.
func Preprocess(data []byte, upscaleFloor int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if w, h := b.Dx(), b.Dy(); upscaleFloor > 0 && w < upscaleFloor && h < upscaleFloor {
		dst := image.NewRGBA(image.Rect(0, 0, w*2, h*2))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
		img = dst
		b = dst.Bounds()
	}

	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}

	adjusted := adjust(gray, contrastFactor, brightnessFactor)
	sharpened := sharpen(adjusted, sharpenFactor)

	var buf bytes.Buffer
	if err := png.Encode(&buf, sharpened); err != nil {
		return nil, fmt.Errorf("encode preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}

// adjust applies contrast around the mid-gray pivot, then a brightness
// multiplier.
func adjust(src *image.Gray, contrast, brightness float64) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(b)
	for i, v := range src.Pix {
		f := float64(v)
		f = (f-128)*contrast + 128
		f *= brightness
		out.Pix[i] = clampByte(f)
	}
	return out
}

// sharpen blends the image against its 3x3 box blur: out = src + factor*(src-blur).
func sharpen(src *image.Gray, factor float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, n float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					sum += float64(src.Pix[ny*src.Stride+nx])
					n++
				}
			}
			blur := sum / n
			orig := float64(src.Pix[y*src.Stride+x])
			out.Pix[y*out.Stride+x] = clampByte(blur + factor*(orig-blur))
		}
	}
	return out
}

// TopRightQuadrant crops the region where several platforms print the
// credential identifier. Used as the last rung of the OCR retry ladder.
func TopRightQuadrant(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	rect := image.Rect(b.Min.X+b.Dx()/2, b.Min.Y, b.Max.X, b.Min.Y+b.Dy()/4)

	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Copy(crop, image.Point{}, img, rect, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

func clampByte(f float64) uint8 {
	switch {
	case f < 0:
		return 0
	case f > 255:
		return 255
	default:
		return uint8(f + 0.5)
	}
}
