package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const msgpackContentType = "application/x-msgpack"

// Logits is the raw output of an image-classification model for one image
type Logits struct {
	Values []float64

	// Labels maps class index to a human-readable name; may be empty
	Labels []string
}

// Model produces class logits for preprocessed image input
type Model interface {
	Logits(ctx context.Context, pixels PixelValues) (*Logits, error)
}

// HTTPModelConfig configures an HTTPModel
type HTTPModelConfig struct {
	Endpoint string
	Model    string

	// TokenEnv names the environment variable holding a bearer token; optional
	TokenEnv string
	Timeout  time.Duration
}

// HTTPModel calls a model server that accepts MessagePack-encoded pixel
// tensors and answers with logits in MessagePack or JSON
type HTTPModel struct {
	endpoint string
	model    string
	token    string
	client   *http.Client
	logger   *zap.SugaredLogger
}

type inferenceRequest struct {
	Model       string    `json:"model"`
	Shape       []int     `json:"shape"`
	PixelValues []float32 `json:"pixel_values"`
}

type inferenceResponse struct {
	Logits [][]float64 `json:"logits"`
	Labels []string    `json:"labels,omitempty"`
}

// NewHTTPModel creates a model client from cfg
func NewHTTPModel(cfg HTTPModelConfig, logger *zap.SugaredLogger) *HTTPModel {
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	var token string
	if cfg.TokenEnv != "" {
		token = os.Getenv(cfg.TokenEnv)
	}
	return &HTTPModel{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		token:    token,
		client:   &http.Client{Timeout: t},
		logger:   logger,
	}
}

// Name returns the pretrained model identifier sent with each request
func (m *HTTPModel) Name() string { return m.model }

// Logits sends pixels to the model server and returns the first row of logits
func (m *HTTPModel) Logits(ctx context.Context, pixels PixelValues) (*Logits, error) {
	var body bytes.Buffer
	enc := msgpack.NewEncoder(&body)
	enc.SetCustomStructTag("json")
	err := enc.Encode(inferenceRequest{
		Model:       m.model,
		Shape:       pixels.Shape,
		PixelValues: pixels.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build inference request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", msgpackContentType)
	req.Header.Set("Accept", msgpackContentType+", application/json")
	req.Header.Set("X-Request-ID", requestID)
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	m.logger.Debugf("inference request %s to %s: %d in %v", requestID, m.endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model server returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var out inferenceResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), msgpackContentType) {
		dec := msgpack.NewDecoder(resp.Body)
		dec.SetCustomStructTag("json")
		err = dec.Decode(&out)
	} else {
		err = json.NewDecoder(resp.Body).Decode(&out)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}

	if len(out.Logits) == 0 || len(out.Logits[0]) == 0 {
		return nil, ErrEmptyLogits
	}
	return &Logits{Values: out.Logits[0], Labels: out.Labels}, nil
}
