package domain

import "time"

// GenerationStatus enumerates generation lifecycle states. Only processing,
// completed and failed are ever stored; pending is what readers report for an
// id the store does not know.
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s GenerationStatus) Terminal() bool {
	return s == GenerationCompleted || s == GenerationFailed
}

// GenerationMode is derived from the presence of an input image.
type GenerationMode string

const (
	ModeTextToImage  GenerationMode = "text-to-image"
	ModeImageToImage GenerationMode = "image-to-image"
)

// ModeFor returns the generation mode implied by inputImageURL.
func ModeFor(inputImageURL string) GenerationMode {
	if inputImageURL != "" {
		return ModeImageToImage
	}
	return ModeTextToImage
}

// Generation is one request to produce an image, tracked from submission to a
// terminal outcome.
type Generation struct {
	ID             string
	UserID         string
	Provider       string
	Status         GenerationStatus
	InputImageURL  string
	Prompt         string
	StyleID        string
	OutputImageURL string
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ExpiredMessage is the error reported for generations that stayed in
// processing past the staleness bound.
const ExpiredMessage = "generation expired"

// Effective returns the generation as readers should observe it at now: a
// processing row older than staleAfter is reported as failed.
func (g Generation) Effective(now time.Time, staleAfter time.Duration) Generation {
	if g.Status != GenerationProcessing || staleAfter <= 0 {
		return g
	}
	if now.Sub(g.CreatedAt) > staleAfter {
		g.Status = GenerationFailed
		g.Error = ExpiredMessage
	}
	return g
}
