package logutil

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logFileName)
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), maxSizeBytes), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(archiveName(path, 1), []byte("older"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := newRotatingWriter(path)
	if err != nil {
		t.Fatalf("newRotatingWriter failed: %v", err)
	}
	defer w.f.Close()
	if _, err := w.Write([]byte("fresh line\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if data, _ := os.ReadFile(path); string(data) != "fresh line\n" {
		t.Errorf("Expected rotated log to hold only the new line, got %d bytes", len(data))
	}
	if st, err := os.Stat(archiveName(path, 1)); err != nil || st.Size() != maxSizeBytes {
		t.Errorf("Expected full log in .1, got %v", err)
	}
	if data, _ := os.ReadFile(archiveName(path, 2)); string(data) != "older" {
		t.Errorf("Expected previous archive shifted to .2, got %q", data)
	}
}

func TestVerbose(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	var buf bytes.Buffer
	Verbose(&buf)
	log.Printf("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("Expected log output in buffer, got %q", buf.String())
	}
}
