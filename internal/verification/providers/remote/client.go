// Package remote talks to the inference server that hosts the face detector
// and the embedding models.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"faceverify/internal/verification/models"
	"faceverify/internal/verification/providers"
	"faceverify/internal/verification/quality"
)

const (
	defaultTimeout   = 5 * time.Second
	maxResponseBytes = 4 << 20

	errCodeModelNotLoaded = "model_not_loaded"
)

// Client is an HTTP client for the model server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("model server url is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type imageRequest struct {
	Model string `json:"model,omitempty"`
	Image string `json:"image"`
}

type detectResponse struct {
	Faces []struct {
		Box        [4]int       `json:"box"`
		Landmarks  [][2]float64 `json:"landmarks"`
		Confidence float64      `json:"confidence"`
	} `json:"faces"`
}

type embedResponse struct {
	Model     string    `json:"model"`
	Embedding []float64 `json:"embedding"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Detect implements quality.FaceDetector.
func (c *Client) Detect(ctx context.Context, img image.Image) ([]quality.Detection, error) {
	encoded, err := encodePNG(img)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, "detector", "encode image", err)
	}

	var resp detectResponse
	if err := c.post(ctx, "detector", "/v1/detect", imageRequest{Image: encoded}, &resp); err != nil {
		return nil, err
	}

	out := make([]quality.Detection, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		d := quality.Detection{
			Box:        image.Rect(f.Box[0], f.Box[1], f.Box[2], f.Box[3]),
			Confidence: f.Confidence,
		}
		for _, lm := range f.Landmarks {
			d.Landmarks = append(d.Landmarks, models.Point{X: lm[0], Y: lm[1]})
		}
		out = append(out, d)
	}
	return out, nil
}

// Health checks if the model server is available
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute health check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Embedder returns the embedding model named model on this server.
func (c *Client) Embedder(model string) *Embedder {
	return &Embedder{client: c, model: model}
}

// Embedder implements embedding.Embedder for one hosted model.
type Embedder struct {
	client *Client
	model  string
}

func (e *Embedder) Model() string { return e.model }

func (e *Embedder) Embed(ctx context.Context, crop *models.FaceCrop) ([]float64, error) {
	encoded, err := models.Memoize(ctx, crop, "png", func() (string, error) {
		return encodePNG(crop.Image)
	})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := e.client.post(ctx, e.model, "/v1/embed", imageRequest{Model: e.model, Image: encoded}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, providers.NewProviderError(providers.ErrorBadData, e.model, "empty embedding", nil)
	}
	return resp.Embedding, nil
}

func (c *Client) post(ctx context.Context, providerID, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return providers.NewProviderError(providers.ErrorInternal, providerID, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return providers.NewProviderError(providers.ErrorInternal, providerID, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", providerID, path, ctxErr)
		}
		return providers.NewProviderError(providers.ErrorProviderOutage, providerID, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return providers.NewProviderError(providers.ErrorProviderOutage, providerID, "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return c.statusError(ctx, providerID, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return providers.NewProviderError(providers.ErrorBadData, providerID, "decode response", err)
	}
	return nil
}

func (c *Client) statusError(ctx context.Context, providerID string, status int, raw []byte) error {
	var body errorResponse
	_ = json.Unmarshal(raw, &body)

	if c.logger != nil {
		c.logger.WarnContext(ctx, "model server returned error",
			"provider", providerID,
			"status", status,
			"error", body.Error,
		)
	}

	if status == http.StatusServiceUnavailable || body.Error == errCodeModelNotLoaded {
		return providers.NewProviderError(providers.ErrorProviderOutage, providerID, "model not loaded", providers.ErrModelNotLoaded)
	}

	msg := fmt.Sprintf("status %d", status)
	if body.Message != "" {
		msg += ": " + body.Message
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return providers.NewProviderError(providers.ErrorAuthentication, providerID, msg, nil)
	case status == http.StatusTooManyRequests:
		return providers.NewProviderError(providers.ErrorRateLimited, providerID, msg, nil)
	case status == http.StatusGatewayTimeout:
		return providers.NewProviderError(providers.ErrorTimeout, providerID, msg, nil)
	case status >= 500:
		return providers.NewProviderError(providers.ErrorProviderOutage, providerID, msg, nil)
	default:
		return providers.NewProviderError(providers.ErrorContractMismatch, providerID, msg, nil)
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
