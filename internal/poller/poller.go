// Package poller waits for a generation to settle by polling its status.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"headshotpro/internal/domain"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 60
)

var (
	// ErrGenerationFailed wraps the error stored on a failed job.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrStillProcessing means the attempts ran out while the job was still
	// running. The job may still complete.
	ErrStillProcessing = errors.New("still processing, check back later")
)

// Result is one status observation.
type Result struct {
	Status   domain.GenerationStatus `json:"status"`
	ImageURL string                  `json:"imageUrl,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// FetchFunc performs one independent status read.
type FetchFunc func(ctx context.Context, jobID string) (Result, error)

// Poller repeats a status read at a fixed interval.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	OnProgress  func(percent int)
}

// Poll returns the image URL once the job completes.
func (p Poller) Poll(ctx context.Context, jobID string, fetch FetchFunc) (string, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := fetch(ctx, jobID)
		if err != nil {
			return "", err
		}
		switch res.Status {
		case domain.GenerationCompleted:
			p.progress(100)
			return res.ImageURL, nil
		case domain.GenerationFailed:
			msg := res.Error
			if msg == "" {
				msg = "unknown error"
			}
			return "", fmt.Errorf("%w: %s", ErrGenerationFailed, msg)
		}
		p.progress(min(95, attempt*100/maxAttempts))

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
	return "", ErrStillProcessing
}

func (p Poller) progress(pct int) {
	if p.OnProgress != nil {
		p.OnProgress(pct)
	}
}
