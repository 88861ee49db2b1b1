package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigureLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure("warn", &buf)
	defer Configure("info", os.Stdout)

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "level=warning")
}

func TestConfigureUnknownLevelKeepsCurrent(t *testing.T) {
	var buf bytes.Buffer
	Configure("error", &buf)
	defer Configure("info", os.Stdout)

	Configure("chatty", nil)
	Warn("dropped")
	Error("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
