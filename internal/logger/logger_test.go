package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNew_EmitsServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "flasharb-test", nil)

	log.Info(context.Background(), "hello", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if record["service"] != "flasharb-test" {
		t.Errorf("service = %v, want flasharb-test", record["service"])
	}
	if record["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", record["msg"])
	}
	if record["key"] != "value" {
		t.Errorf("key = %v, want value", record["key"])
	}
}

func TestNew_RespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "flasharb-test", nil)

	log.Debug(context.Background(), "too quiet")
	log.Info(context.Background(), "still too quiet")
	if buf.Len() != 0 {
		t.Errorf("below-level records emitted: %s", buf.String())
	}

	log.Warn(context.Background(), "loud enough")
	if buf.Len() == 0 {
		t.Error("warn record not emitted at LevelWarn")
	}
}

func TestNew_AppendsTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "flasharb-test", func(ctx context.Context) string {
		return "trace-123"
	})

	log.Info(context.Background(), "traced")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["trace_id"] != "trace-123" {
		t.Errorf("trace_id = %v, want trace-123", record["trace_id"])
	}
}
