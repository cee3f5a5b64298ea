package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json")

	log.Info().Int64("drive_id", 7).Msg("window opened")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["service"] != "examdrive" {
		t.Errorf("service = %v, want examdrive", line["service"])
	}
	if line["message"] != "window opened" {
		t.Errorf("message = %v", line["message"])
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "nonsense", "json")

	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written at fallback level: %s", buf.String())
	}
}
