package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONIncludesServiceAndRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "worker", "warn", "json")

	logger.Info("ignored")
	logger.Warn("recommendation_event_failed", "event_id", "e-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warn record, got %d lines", len(lines))
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["service"] != "worker" || record["msg"] != "recommendation_event_failed" || record["event_id"] != "e-1" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "api", "debug", "TEXT").Debug("tool_call", "tool", "search_tours_by_destination")
	if !strings.Contains(buf.String(), "service=api") || !strings.Contains(buf.String(), "tool=search_tours_by_destination") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got.String() != "INFO" {
		t.Fatalf("expected INFO, got %s", got)
	}
	if got := parseLevel(" Warning "); got.String() != "WARN" {
		t.Fatalf("expected WARN, got %s", got)
	}
}
