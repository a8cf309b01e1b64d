// Package generation runs headshot generation jobs from submission to a
// terminal state.
package generation

import (
	"context"
	"fmt"

	"headshotpro/internal/domain"
)

// GenerateInput is what a backend needs to produce one image.
type GenerateInput struct {
	InputImageURL string
	Prompt        string
	StyleID       string
	UserID        string
	Extras        map[string]any
}

// Mode reports text-to-image or image-to-image from the presence of an input image.
func (in GenerateInput) Mode() domain.GenerationMode {
	return domain.ModeFor(in.InputImageURL)
}

// Extra returns Extras[key] as a string, or "" when absent.
func (in GenerateInput) Extra(key string) string {
	v, ok := in.Extras[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Output is a backend's successful result: a URL the image can be fetched from.
type Output struct {
	ImageURL string
}

// Provider is a synchronous image generation backend.
type Provider interface {
	ID() string
	IsConfigured() bool
	Generate(ctx context.Context, in GenerateInput) (Output, error)
}
