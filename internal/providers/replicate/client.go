// Package replicate runs SDXL predictions on Replicate.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"headshotpro/internal/generation"
	"headshotpro/internal/infra"
)

const (
	ProviderID = "replicate"

	defaultBaseURL  = "https://api.replicate.com"
	modelVersion    = "stability-ai/sdxl:39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c55633708"
	userAgent       = "HeadshotPro-AI/1.0"
	promptSuffix    = ", person based on input image, high quality, professional photography"
	negativePrompt  = "blurry, low quality, distorted, deformed, ugly, disfigured, watermark, text"
	imageStrength   = 0.7
	defaultInterval = 5 * time.Second
	defaultMaxPolls = 120
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("replicate: api key is required")

// Options configures the Replicate client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	PollInterval   time.Duration
	MaxPolls       int
}

// Client implements generation.Provider by creating a prediction and polling
// it until it settles.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     infra.Logger
	interval   time.Duration
	maxPolls   int
}

type predictionInput struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Image          string  `json:"image,omitempty"`
	Strength       float64 `json:"strength,omitempty"`
	NumOutputs     int     `json:"num_outputs"`
}

type predictionRequest struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	Detail string          `json:"detail"`
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultInterval
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     infra.LoggerOrDiscard(opts.Logger),
		interval:   interval,
		maxPolls:   maxPolls,
	}
}

func (c *Client) ID() string { return ProviderID }

func (c *Client) IsConfigured() bool { return c.apiKey != "" }

// MaxDuration bounds the whole create-and-poll cycle.
func (c *Client) MaxDuration() time.Duration {
	return c.interval*time.Duration(c.maxPolls) + c.httpClient.Timeout
}

func (c *Client) Generate(ctx context.Context, in generation.GenerateInput) (generation.Output, error) {
	if !c.IsConfigured() {
		return generation.Output{}, ErrMissingAPIKey
	}
	input := predictionInput{
		Prompt:         strings.TrimSpace(in.Prompt) + promptSuffix,
		NegativePrompt: negativePrompt,
		NumOutputs:     1,
	}
	if in.InputImageURL != "" {
		input.Image = in.InputImageURL
		input.Strength = imageStrength
	}
	body, err := json.Marshal(predictionRequest{Version: modelVersion, Input: input})
	if err != nil {
		return generation.Output{}, fmt.Errorf("replicate: encode request: %w", err)
	}

	var created prediction
	if err := c.do(ctx, http.MethodPost, "/v1/predictions", body, &created); err != nil {
		return generation.Output{}, err
	}
	if created.ID == "" {
		return generation.Output{}, errors.New("replicate: prediction id missing")
	}
	c.logger.Debug().Str("prediction_id", created.ID).Str("mode", string(in.Mode())).Msg("replicate: prediction created")

	return c.poll(ctx, created.ID)
}

func (c *Client) poll(ctx context.Context, id string) (generation.Output, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.maxPolls; attempt++ {
		var p prediction
		if err := c.do(ctx, http.MethodGet, "/v1/predictions/"+id, nil, &p); err != nil {
			return generation.Output{}, err
		}
		switch p.Status {
		case "succeeded":
			url, err := firstOutput(p.Output)
			if err != nil {
				return generation.Output{}, err
			}
			return generation.Output{ImageURL: url}, nil
		case "failed", "canceled":
			if msg, ok := p.Error.(string); ok && msg != "" {
				return generation.Output{}, fmt.Errorf("replicate: %s", msg)
			}
			return generation.Output{}, errors.New("replicate: generation failed")
		}
		select {
		case <-ctx.Done():
			return generation.Output{}, ctx.Err()
		case <-ticker.C:
		}
	}
	return generation.Output{}, errors.New("replicate: prediction timed out")
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out *prediction) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replicate: request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var p prediction
		if json.Unmarshal(raw, &p) == nil && p.Detail != "" {
			return fmt.Errorf("replicate: %s", p.Detail)
		}
		return fmt.Errorf("replicate: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("replicate: decode response: %w", err)
	}
	return nil
}

// firstOutput accepts either a single URL or a list of URLs.
func firstOutput(raw json.RawMessage) (string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0] != "" {
		return list[0], nil
	}
	return "", errors.New("replicate: prediction returned no output")
}

var _ generation.Provider = (*Client)(nil)
