package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bft-labs/batchq/internal/ports"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("json", "info", &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Debug("hidden")
	logger.Info("batch sent", ports.String("destination", "orders"), ports.Int("size", 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if entry["message"] != "batch sent" || entry["destination"] != "orders" || entry["size"] != float64(3) {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("", "debug", &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Debug("destination created", ports.String("destination", "orders"))
	if !strings.Contains(buf.String(), "destination created") || !strings.Contains(buf.String(), "orders") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNew_None(t *testing.T) {
	logger, err := New("none", "debug", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Error("discarded")
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New("xml", "info", &bytes.Buffer{}); err == nil {
		t.Error("New() with unknown format returned no error")
	}
}
