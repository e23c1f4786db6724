package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestUseCapturesEntries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := Use(zap.New(core))
	defer Use(prev)

	Info("flow started", zap.String("flowId", "f1"))
	Error("step failed", zap.Int("step", 2))

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	require.Equal(t, "flow started", entries[0].Message)
	require.Equal(t, "f1", entries[0].ContextMap()["flowId"])
	require.Equal(t, int64(2), entries[1].ContextMap()["step"])
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	prev := Logger()
	defer Use(prev)

	require.Error(t, Init("loud", false))
	require.NoError(t, Init("debug", true))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))
}
