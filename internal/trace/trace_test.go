package trace

import (
	"os"
	"strings"
	"testing"
)

func TestLogRespectsLevel(t *testing.T) {
	var buf strings.Builder
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetLevel(Info)
	defer SetLevel(Warning)

	Log("should appear", Warning)
	Log("should not appear", Fine)

	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected message at/above threshold to be logged, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "should not appear") {
		t.Errorf("expected message below threshold to be suppressed, got %q", buf.String())
	}
}
