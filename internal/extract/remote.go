package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteEngine is the secondary OCR engine: an HTTP sidecar running a
// different recognition model than Tesseract. Its output is merged into the
// primary text when it contributes enough novel tokens.
type RemoteEngine struct {
	endpoint string
	client   *http.Client
}

// NewRemoteEngine creates a client for the secondary OCR service.
func NewRemoteEngine(endpoint string, timeout time.Duration) *RemoteEngine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteEngine{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (e *RemoteEngine) Name() string { return "remote_ocr" }

type remoteOCRRequest struct {
	Image     string `json:"image"` // base64
	MediaType string `json:"media_type,omitempty"`
}

type remoteOCRResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Recognize sends the image to the sidecar. Options are ignored: the remote
// model has no page-segmentation knob.
func (e *RemoteEngine) Recognize(ctx context.Context, image []byte, _ RecognizeOptions) (string, error) {
	payload, err := json.Marshal(remoteOCRRequest{
		Image:     base64.StdEncoding.EncodeToString(image),
		MediaType: http.DetectContentType(image),
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/ocr", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("remote ocr request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("remote ocr returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out remoteOCRResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("remote ocr: %s", out.Error)
	}
	return strings.TrimSpace(out.Text), nil
}
