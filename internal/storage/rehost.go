package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"headshotpro/internal/infra"
)

const maxImageBytes = 20 << 20

var ErrImageTooLarge = errors.New("storage: image exceeds size limit")

// Rehoster copies a provider-hosted image into a Store.
type Rehoster struct {
	Store      Store
	HTTPClient *http.Client
	Logger     *infra.Logger
	Now        func() time.Time
}

// Key returns the object key for a job's output written at t.
func Key(jobID string, t time.Time) string {
	return fmt.Sprintf("generated/%s/%d.jpg", jobID, t.UnixMilli())
}

// Rehost downloads srcURL and stores it under the job's key. URLs already on
// the store's public host are returned unchanged.
func (r *Rehoster) Rehost(ctx context.Context, jobID, srcURL string) (string, error) {
	if r == nil || r.Store == nil {
		return "", errors.New("storage: no store configured")
	}
	if IsHosted(r.Store, srcURL) {
		return srcURL, nil
	}
	data, err := Download(ctx, r.client(), srcURL)
	if err != nil {
		return "", err
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	stored, err := r.Store.Put(ctx, Key(jobID, now()), data, http.DetectContentType(data))
	if err != nil {
		return "", err
	}
	log := infra.LoggerOrDiscard(r.Logger)
	log.Debug().Str("job_id", jobID).Str("url", stored).Int("bytes", len(data)).Msg("storage: output rehosted")
	return stored, nil
}

func (r *Rehoster) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Download fetches rawURL, failing on non-2xx responses, empty bodies and
// bodies larger than maxImageBytes.
func Download(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("storage: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read download: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, errors.New("storage: empty download")
	}
	return data, nil
}
