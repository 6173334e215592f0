// ABOUTME: Tests for the logrus-backed logging setup.
// ABOUTME: Verifies component tagging, JSON formatting and level parsing.
package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/2389-research/infracache/logging"
)

func TestComponent_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() {
		logging.SetOutput(os.Stderr)
		_ = logging.Configure("info", "text")
	})

	if err := logging.Configure("debug", "json"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	logging.Component("cache").WithField("action", "load").Info("loaded")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if entry["component"] != "cache" {
		t.Errorf("got component %v, want cache", entry["component"])
	}
	if entry["action"] != "load" {
		t.Errorf("got action %v, want load", entry["action"])
	}
}

func TestConfigure_RejectsBadInput(t *testing.T) {
	if err := logging.Configure("loud", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := logging.Configure("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
