// Package v3 talks to the nano-banana image API hosted at api.gpt.ge.
package v3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"headshotpro/internal/generation"
	"headshotpro/internal/infra"
	"headshotpro/internal/storage"
)

const (
	ProviderID = "v3"

	defaultBaseURL    = "https://api.gpt.ge"
	defaultModel      = "nano-banana"
	userAgent         = "HeadshotPro-AI/1.0"
	textDefaultPrompt = "Generate a professional headshot photo"
	editDefaultPrompt = "Edit this image professionally"
	textDefaultSize   = "1024x1024"
	editDefaultSize   = "1:1"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("v3: api key is required")

// Options configures the V3 client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client implements generation.Provider for the V3 API. Text-to-image goes
// through go-openai's CreateImage. Image-to-image posts its own multipart form
// to the edits endpoint because the upstream selects its model from a "model"
// form field that go-openai's CreateEditImage never writes. Both paths decode
// into go-openai's response and error types.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	openai     *openai.Client
	logger     infra.Logger
}

type userAgentDoer struct {
	client *http.Client
}

func (d userAgentDoer) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	return d.client.Do(req)
}

// NewClient constructs a client with sane defaults.
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
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	apiKey := strings.TrimSpace(opts.APIKey)

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL + "/v1"
	cfg.HTTPClient = userAgentDoer{client: httpClient}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		openai:     openai.NewClientWithConfig(cfg),
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}
}

func (c *Client) ID() string { return ProviderID }

func (c *Client) IsConfigured() bool { return c.apiKey != "" }

// Generate runs a single synchronous generation.
func (c *Client) Generate(ctx context.Context, in generation.GenerateInput) (generation.Output, error) {
	if !c.IsConfigured() {
		return generation.Output{}, ErrMissingAPIKey
	}
	var (
		imageURL string
		err      error
	)
	if in.InputImageURL != "" {
		imageURL, err = c.edit(ctx, in)
	} else {
		imageURL, err = c.textToImage(ctx, in)
	}
	if err != nil {
		return generation.Output{}, err
	}
	return generation.Output{ImageURL: imageURL}, nil
}

func (c *Client) textToImage(ctx context.Context, in generation.GenerateInput) (string, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		prompt = textDefaultPrompt
	}
	size := in.Extra("size")
	if size == "" {
		size = textDefaultSize
	}
	c.logger.Debug().Str("mode", string(in.Mode())).Str("size", size).Msg("v3: text-to-image request")

	resp, err := c.openai.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.model,
		Size:           size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", providerError("generate", err)
	}
	return firstURL(resp)
}

func (c *Client) edit(ctx context.Context, in generation.GenerateInput) (string, error) {
	image, err := storage.Download(ctx, c.httpClient, in.InputImageURL)
	if err != nil {
		return "", fmt.Errorf("v3: input image: %w", err)
	}
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		prompt = editDefaultPrompt
	}
	size := in.Extra("size")
	if size == "" {
		size = editDefaultSize
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", fileName(in.InputImageURL))
	if err != nil {
		return "", fmt.Errorf("v3: build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("v3: build form: %w", err)
	}
	fields := [][2]string{
		{"prompt", prompt},
		{"model", c.model},
		{"response_format", "url"},
		{"size", size},
	}
	for _, f := range fields {
		if err := form.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("v3: build form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("v3: build form: %w", err)
	}

	endpoint := c.baseURL + "/v1/images/edits"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("v3: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug().Str("mode", string(in.Mode())).Str("size", size).Int("image_bytes", len(image)).Msg("v3: image-to-image request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("v3: request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("v3: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp openai.ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != nil {
			errResp.Error.HTTPStatusCode = resp.StatusCode
			return "", providerError("edit", errResp.Error)
		}
		return "", fmt.Errorf("v3: status %d", resp.StatusCode)
	}
	var out openai.ImageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("v3: decode response: %w", err)
	}
	return firstURL(out)
}

// providerError surfaces the upstream message when the API returned one.
func providerError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("v3: %s", apiErr.Message)
	}
	return fmt.Errorf("v3: %s: %w", op, err)
}

func firstURL(resp openai.ImageResponse) (string, error) {
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("v3: no image data in response")
	}
	return resp.Data[0].URL, nil
}

func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "image.jpg"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "image.jpg"
	}
	return name
}

var _ generation.Provider = (*Client)(nil)
