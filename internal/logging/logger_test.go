package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestInitJSONWritesComponentAndReport(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := WithReport(Component("chat"), 42)
	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "chat", entry["component"])
	require.Equal(t, "42", entry["report_id"])
	require.Equal(t, "hello", entry["message"])
}

func TestWithReportIgnoresUnsetID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	logger := WithReport(Logger, 0)
	logger.Info().Msg("x")
	require.NotContains(t, buf.String(), "report_id")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	require.Equal(t, zerolog.Disabled, parseLevel("off"))
	require.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	custom := zerolog.New(&buf)
	ctx := WithContext(context.Background(), custom)
	scoped := FromContext(ctx)
	scoped.Info().Msg("scoped")
	require.Contains(t, buf.String(), "scoped")

	require.NotPanics(t, func() {
		global := FromContext(context.Background())
		global.Debug().Msg("global")
	})
}

func TestOpenFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reperage.log")
	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.FileExists(t, path)
}
