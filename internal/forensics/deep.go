package forensics

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/avashisht/veridoc/internal/llm"
	"github.com/avashisht/veridoc/internal/model"
)

// DeepOpinion is the output of the deep manipulation detector.
type DeepOpinion struct {
	Score     float64 // manipulation probability in [0,1]
	Analysis  string  // free-text assessment, may be empty
	Reasoning string  // free-text reasoning, may be empty
}

// DeepScorer is the black-box deep-detector contract.
type DeepScorer interface {
	Score(ctx context.Context, image []byte, mediaType string) (*DeepOpinion, error)
}

type deepState int

const (
	deepUninitialized deepState = iota
	deepReady
	deepUnavailable
)

// DeepDetector is a lazily initialized handle around the configured deep
// scorer. Initialization happens once, on first use, under a concurrency-safe
// guard; an unconfigurable detector stays Unavailable with a recorded reason
// and the forensics cascade silently degrades to statistics-only.
type DeepDetector struct {
	cfg    model.DeepConfig
	vision llm.VisionProvider

	once   sync.Once
	state  deepState
	scorer DeepScorer
	reason string
}

// NewDeepDetector wires a detector handle. vision may be nil.
func NewDeepDetector(cfg model.DeepConfig, vision llm.VisionProvider) *DeepDetector {
	return &DeepDetector{cfg: cfg, vision: vision}
}

// Available reports whether the detector can score images, initializing it on
// first call.
func (d *DeepDetector) Available() (bool, string) {
	d.init()
	return d.state == deepReady, d.reason
}

// Score runs the deep detector against the image.
func (d *DeepDetector) Score(ctx context.Context, image []byte, mediaType string) (*DeepOpinion, error) {
	d.init()
	if d.state != deepReady {
		return nil, &model.CollaboratorUnavailable{Name: "deep detector", Reason: d.reason}
	}
	return d.scorer.Score(ctx, image, mediaType)
}

func (d *DeepDetector) init() {
	d.once.Do(func() {
		switch {
		case d.cfg.Endpoint != "":
			d.scorer = newRemoteDeepScorer(d.cfg.Endpoint, time.Duration(d.cfg.Timeout)*time.Second)
			d.state = deepReady
		case d.cfg.UseLLM && d.vision != nil:
			d.scorer = &visionDeepScorer{provider: d.vision}
			d.state = deepReady
		default:
			d.state = deepUnavailable
			d.reason = "no deep detector endpoint or vision provider configured"
		}
	})
}

// remoteDeepScorer calls a detector sidecar service (e.g. a TruFor wrapper)
// over HTTP.
type remoteDeepScorer struct {
	endpoint   string
	httpClient *http.Client
}

type remoteScoreRequest struct {
	Image     string `json:"image"` // base64
	MediaType string `json:"media_type"`
}

type remoteScoreResponse struct {
	ManipulationScore float64 `json:"manipulation_score"`
	Analysis          string  `json:"analysis,omitempty"`
	Error             string  `json:"error,omitempty"`
}

func newRemoteDeepScorer(endpoint string, timeout time.Duration) *remoteDeepScorer {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &remoteDeepScorer{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *remoteDeepScorer) Score(ctx context.Context, image []byte, mediaType string) (*DeepOpinion, error) {
	payload, err := json.Marshal(remoteScoreRequest{
		Image:     base64.StdEncoding.EncodeToString(image),
		MediaType: mediaType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deep detector request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deep detector returned status %d", resp.StatusCode)
	}

	var out remoteScoreResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("deep detector error: %s", out.Error)
	}

	score := out.ManipulationScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return &DeepOpinion{Score: score, Analysis: out.Analysis}, nil
}

// visionDeepScorer asks a vision-capable LLM for a manipulation opinion.
type visionDeepScorer struct {
	provider llm.VisionProvider
}

const visionPrompt = `You are an image-forensics assistant. Examine this certificate image
for signs of digital manipulation: cloned regions, inconsistent text rendering,
mismatched fonts, splice seams, irregular compression artifacts around names,
dates, or identifiers.

Return ONLY valid JSON (no markdown, no backticks):
{
  "manipulation_score": <float 0.0-1.0>,
  "analysis": "<one-sentence assessment>",
  "reasoning": "<what you observed>"
}`

type visionOpinionPayload struct {
	ManipulationScore float64 `json:"manipulation_score"`
	Analysis          string  `json:"analysis"`
	Reasoning         string  `json:"reasoning"`
}

func (v *visionDeepScorer) Score(ctx context.Context, image []byte, mediaType string) (*DeepOpinion, error) {
	resp, err := v.provider.CompleteVision(ctx, visionPrompt, base64.StdEncoding.EncodeToString(image), mediaType)
	if err != nil {
		return nil, fmt.Errorf("vision opinion: %w", err)
	}

	var out visionOpinionPayload
	if err := llm.DecodeJSON(resp.Text, &out); err != nil {
		return nil, fmt.Errorf("vision opinion: %w", err)
	}

	score := out.ManipulationScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return &DeepOpinion{Score: score, Analysis: out.Analysis, Reasoning: out.Reasoning}, nil
}
