package extract

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ScanQR looks for a QR code in the document and returns its payload.
// Certificates commonly embed their verification URL this way; a decoded URL
// outranks any OCR-recovered one. Most documents carry no code, so a miss is
// an ordinary empty result.
func ScanQR(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("build bitmap: %w", err)
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		// NotFoundException for codeless documents.
		return "", nil
	}
	return strings.TrimSpace(result.GetText()), nil
}

// IsHTTPURL reports whether a QR payload is a fetchable link.
func IsHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
