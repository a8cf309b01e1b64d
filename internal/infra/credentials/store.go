package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"headshotpro/internal/infra"
	"headshotpro/internal/sqlinline"
)

const (
	ProviderV3        = "v3"
	ProviderReplicate = "replicate"
)

var ErrUnknownProvider = errors.New("credentials: unknown provider")

// Store keeps provider API keys in integration_tokens. Keys set there take
// precedence over the ones supplied through the environment.
type Store struct {
	sql      infra.SQLExecutor
	fallback map[string]string
}

func NewStore(sql infra.SQLExecutor, fallback map[string]string) *Store {
	fb := make(map[string]string, len(fallback))
	for k, v := range fallback {
		fb[k] = strings.TrimSpace(v)
	}
	return &Store{sql: sql, fallback: fb}
}

func knownProvider(provider string) bool {
	return provider == ProviderV3 || provider == ProviderReplicate
}

// APIKey returns the key for provider, or "" when none is configured.
func (s *Store) APIKey(ctx context.Context, provider string) (string, error) {
	if !knownProvider(provider) {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	token, err := s.Token(ctx, provider)
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}
	return s.fallback[provider], nil
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	if s.sql == nil {
		return "", nil
	}
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetAPIKey(ctx context.Context, provider, key string) error {
	if !knownProvider(provider) {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
	return s.upsert(ctx, provider, key, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
