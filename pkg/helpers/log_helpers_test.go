package helpers

import (
	"bytes"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWatermillZerologAdapter(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := zerolog.New(buf).Level(zerolog.DebugLevel)

	a := NewWatermill(logger).With(watermill.LogFields{"topic": "chat"})
	a.Info("subscribed", watermill.LogFields{"handler": "ui"})
	a.Trace("dropped", nil)
	a.Error("handler failed", errors.New("boom"), nil)

	out := buf.String()
	require.Contains(t, out, `"level":"debug"`)
	require.Contains(t, out, `"topic":"chat"`)
	require.Contains(t, out, `"handler":"ui"`)
	require.Contains(t, out, `"error":"boom"`)
	require.NotContains(t, out, "dropped")
}

func TestPointers(t *testing.T) {
	require.Equal(t, 0.7, *Float64Pointer(0.7))
	require.Equal(t, int64(12), *Int64Pointer(12))
}
