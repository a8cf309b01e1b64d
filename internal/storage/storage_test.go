package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "generated/job/1.jpg", want: "generated/job/1.jpg"},
		{in: "/generated//job/./1.jpg", want: "generated/job/1.jpg"},
		{in: "generated\\job\\1.jpg", want: "generated/job/1.jpg"},
		{in: "../etc/passwd", wantErr: true},
		{in: "a/../../b", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range tests {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("sanitizeKey(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFileStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	url, err := store.Put(context.Background(), "generated/j1/5.jpg", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "http://localhost:8080/static/generated/j1/5.jpg" {
		t.Fatalf("url = %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "generated", "j1", "5.jpg"))
	if err != nil || string(data) != "img" {
		t.Fatalf("stored = %q, %v", data, err)
	}
}

type fakePutter struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = *in.Key
	f.contentType = *in.ContentType
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3StorePut(t *testing.T) {
	putter := &fakePutter{}
	store := newS3Store(putter, "headshots", "https://pub.r2.dev/")

	url, err := store.Put(context.Background(), "generated/j1/5.jpg", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "https://pub.r2.dev/generated/j1/5.jpg" {
		t.Fatalf("url = %q", url)
	}
	if putter.key != "generated/j1/5.jpg" || putter.contentType != "image/jpeg" || string(putter.body) != "img" {
		t.Fatalf("put = %+v", putter)
	}

	putter.err = errors.New("denied")
	if _, err := store.Put(context.Background(), "k.jpg", []byte("x"), "image/jpeg"); err == nil {
		t.Fatalf("expected put error")
	}
}

func TestRehost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			_, _ = w.Write([]byte("\xff\xd8\xff\xe0jpegbytes"))
		case "/ok.png":
			_, _ = w.Write(append([]byte("\x89PNG\r\n\x1a\n"), "pngbytes"...))
		case "/empty.jpg":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	putter := &fakePutter{}
	r := &Rehoster{
		Store:      newS3Store(putter, "b", "https://cdn.headshotpro.test"),
		HTTPClient: srv.Client(),
		Now:        func() time.Time { return time.UnixMilli(1700000000123) },
	}
	ctx := context.Background()

	got, err := r.Rehost(ctx, "job1", srv.URL+"/ok.jpg")
	if err != nil {
		t.Fatalf("Rehost: %v", err)
	}
	if got != "https://cdn.headshotpro.test/generated/job1/1700000000123.jpg" {
		t.Fatalf("url = %q", got)
	}
	if string(putter.body) != "\xff\xd8\xff\xe0jpegbytes" || putter.contentType != "image/jpeg" {
		t.Fatalf("body = %q, content type = %q", putter.body, putter.contentType)
	}

	if _, err := r.Rehost(ctx, "job1", srv.URL+"/ok.png"); err != nil {
		t.Fatalf("Rehost png: %v", err)
	}
	if putter.contentType != "image/png" {
		t.Fatalf("content type = %q, want image/png", putter.contentType)
	}

	hosted := "https://cdn.headshotpro.test/generated/old/1.jpg"
	if got, err := r.Rehost(ctx, "job2", hosted); err != nil || got != hosted {
		t.Fatalf("hosted url = %q, %v", got, err)
	}

	for _, path := range []string{"/missing.jpg", "/empty.jpg"} {
		if _, err := r.Rehost(ctx, "job3", srv.URL+path); err == nil {
			t.Fatalf("%s: expected error", path)
		}
	}
}

func TestDownloadSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := maxImageBytes
		if r.URL.Path == "/huge.jpg" {
			n = maxImageBytes + 1<<20
		}
		_, _ = w.Write(bytes.Repeat([]byte{0xff}, n))
	}))
	defer srv.Close()

	data, err := Download(context.Background(), srv.Client(), srv.URL+"/limit.jpg")
	if err != nil || len(data) != maxImageBytes {
		t.Fatalf("at limit: len = %d, err = %v", len(data), err)
	}

	putter := &fakePutter{}
	r := &Rehoster{Store: newS3Store(putter, "b", "https://cdn.headshotpro.test"), HTTPClient: srv.Client()}
	if _, err := r.Rehost(context.Background(), "job4", srv.URL+"/huge.jpg"); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("oversized err = %v, want ErrImageTooLarge", err)
	}
	if putter.body != nil {
		t.Fatalf("oversized image stored %d bytes", len(putter.body))
	}
}
