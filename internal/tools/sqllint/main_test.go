package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGo(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLint(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package q\n\nconst QOk = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;\n`\n\nconst Prose = \"Portrait with soft light\"\n")
	writeGo(t, dir, "b.go", "package q\n\nconst QMissing = `\nupdate t set x = 1;\n`\n\nconst QDup = `--sql 11111111-2222-4333-8444-555555555555\ndelete from t;\n`\n")

	violations, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("violations = %+v, want 2", violations)
	}
	got := map[string]string{}
	for _, v := range violations {
		got[v.name] = v.message
	}
	if !strings.Contains(got["QMissing"], "missing") {
		t.Fatalf("QMissing = %q", got["QMissing"])
	}
	if !strings.Contains(got["QDup"], "already used by QOk") {
		t.Fatalf("QDup = %q", got["QDup"])
	}

	var buf bytes.Buffer
	if !report(&buf, violations) || !strings.Contains(buf.String(), "b.go") {
		t.Fatalf("report = %q", buf.String())
	}
}

func TestLintCleanTree(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package q\n\nconst QOk = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;\n`\n")
	violations, err := lint([]string{dir})
	if err != nil || len(violations) != 0 {
		t.Fatalf("lint = %+v, %v", violations, err)
	}
	if report(&bytes.Buffer{}, nil) {
		t.Fatalf("report(nil) = true")
	}
}
