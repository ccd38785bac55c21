package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelTrace, ParseLevel("trace"))
	require.Equal(t, LevelDebug, ParseLevel(" DEBUG "))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel("error"))
	require.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestConfigureFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "json", "warn")
	t.Cleanup(func() { Configure(nil, "console", "info") })

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown 2")
	require.Equal(t, 1, strings.Count(out, "\n"))
}

func TestSetLevelEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, "json", "info")
	t.Cleanup(func() { Configure(nil, "console", "info") })

	Debugf("before")
	SetLevel(LevelDebug)
	Debugf("after")

	require.NotContains(t, buf.String(), "before")
	require.Contains(t, buf.String(), `"level":"debug"`)
}
