package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loggedAttrs(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unexpected error decoding log line: %v", err)
	}
	return got
}

func TestWithTx_AttachesTid(t *testing.T) {
	var buf bytes.Buffer
	WithTx(newTestLogger(&buf), 7).Info("op")

	got := loggedAttrs(t, &buf)
	if got["tid"] != float64(7) {
		t.Errorf("Expected tid 7, got %v", got["tid"])
	}
}

func TestWithTable_AttachesTableName(t *testing.T) {
	var buf bytes.Buffer
	WithTable(newTestLogger(&buf), "orders").Info("op")

	got := loggedAttrs(t, &buf)
	if got["table"] != "orders" {
		t.Errorf("Expected table orders, got %v", got["table"])
	}
}

func TestWithTableTx_AttachesBoth(t *testing.T) {
	var buf bytes.Buffer
	WithTableTx(newTestLogger(&buf), 3, "orders").Info("op")

	got := loggedAttrs(t, &buf)
	if got["tid"] != float64(3) || got["table"] != "orders" {
		t.Errorf("Expected tid=3 table=orders, got %v", got)
	}
}

func TestWithColumn_AttachesTableAndColumn(t *testing.T) {
	var buf bytes.Buffer
	WithColumn(newTestLogger(&buf), "customers", "age").Info("op")

	got := loggedAttrs(t, &buf)
	if got["table"] != "customers" || got["column"] != "age" {
		t.Errorf("Expected table=customers column=age, got %v", got)
	}
}

func TestWithChunk_AttachesChunkID(t *testing.T) {
	var buf bytes.Buffer
	WithChunk(newTestLogger(&buf), 42).Info("op")

	got := loggedAttrs(t, &buf)
	if got["chunk_id"] != float64(42) {
		t.Errorf("Expected chunk_id 42, got %v", got["chunk_id"])
	}
}

func TestWithChunkLock_AttachesTidAndChunkID(t *testing.T) {
	var buf bytes.Buffer
	WithChunkLock(newTestLogger(&buf), 9, 42).Info("op")

	got := loggedAttrs(t, &buf)
	if got["tid"] != float64(9) || got["chunk_id"] != float64(42) {
		t.Errorf("Expected tid=9 chunk_id=42, got %v", got)
	}
}

func TestWithComponent_AttachesComponentName(t *testing.T) {
	var buf bytes.Buffer
	WithComponent(newTestLogger(&buf), "boundary-planner").Info("op")

	got := loggedAttrs(t, &buf)
	if got["component"] != "boundary-planner" {
		t.Errorf("Expected component boundary-planner, got %v", got["component"])
	}
}

func TestWithError_AttachesErrorString(t *testing.T) {
	var buf bytes.Buffer
	WithError(newTestLogger(&buf), errors.New("boom")).Error("op failed")

	got := loggedAttrs(t, &buf)
	if got["error"] != "boom" {
		t.Errorf("Expected error boom, got %v", got["error"])
	}
}
