package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token string
	err   error
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		exec     *stubExecutor
		fallback map[string]string
		provider string
		want     string
	}{
		{name: "stored key trimmed", exec: &stubExecutor{token: " abc123 "}, provider: ProviderV3, want: "abc123"},
		{name: "stored key wins over env", exec: &stubExecutor{token: "db"}, fallback: map[string]string{ProviderReplicate: "env"}, provider: ProviderReplicate, want: "db"},
		{name: "no rows falls back to env", exec: &stubExecutor{err: pgx.ErrNoRows}, fallback: map[string]string{ProviderV3: " env "}, provider: ProviderV3, want: "env"},
		{name: "nothing configured", exec: &stubExecutor{err: pgx.ErrNoRows}, provider: ProviderReplicate, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewStore(tc.exec, tc.fallback).APIKey(context.Background(), tc.provider)
			if err != nil {
				t.Fatalf("APIKey error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("APIKey = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAPIKeyWithoutDatabase(t *testing.T) {
	got, err := NewStore(nil, map[string]string{ProviderV3: "env"}).APIKey(context.Background(), ProviderV3)
	if err != nil || got != "env" {
		t.Fatalf("APIKey = %q, %v", got, err)
	}
}

func TestAPIKeyUnknownProvider(t *testing.T) {
	_, err := NewStore(&stubExecutor{}, nil).APIKey(context.Background(), "gemini")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestAPIKeyQueryError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := NewStore(&stubExecutor{err: boom}, nil).APIKey(context.Background(), ProviderV3); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestSetAPIKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec, nil)
	if err := store.SetAPIKey(context.Background(), ProviderReplicate, " secret "); err != nil {
		t.Fatalf("SetAPIKey error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[0].(string); !ok || v != ProviderReplicate {
		t.Fatalf("provider arg = %v", exec.exec.args[0])
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetAPIKeyRejects(t *testing.T) {
	store := NewStore(&stubExecutor{}, nil)
	if err := store.SetAPIKey(context.Background(), ProviderV3, " "); err == nil {
		t.Fatal("expected error for empty key")
	}
	if err := store.SetAPIKey(context.Background(), "qwen", "k"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}
