package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// These tests mutate the global logger and must not run in parallel.

func TestSetupLevels(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Level: LevelInfo, Output: &buf})
	t.Cleanup(func() { Setup(Options{}) })

	Debug("hidden", "k", 1)
	Info("shown", "k", 2)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")
	require.Contains(t, out, "k=2")

	buf.Reset()
	SetLevel("debug")
	Debug("now visible")
	require.Contains(t, buf.String(), "now visible")
}

func TestErrorAddsErrKey(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{JSON: true, Output: &buf})
	t.Cleanup(func() { Setup(Options{}) })

	Error("build failed", errors.New("boom"), "step", "sitemap")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "ERROR", rec["level"])
	require.Equal(t, "build failed", rec["msg"])
	require.Equal(t, "boom", rec["err"])
	require.Equal(t, "sitemap", rec["step"])
}

func TestSetLevelUnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Level: "verbose", Output: &buf})
	t.Cleanup(func() { Setup(Options{}) })

	Debug("dropped")
	Info("kept")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
}
