package mock

import (
	"context"
	"testing"
	"time"

	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestProvider_ReplaysDefaultScript(t *testing.T) {
	p := NewProvider(settings.NewStepSettings())
	s, err := p.Generate(context.Background(), &provider.Request{Text: "q"})
	require.NoError(t, err)
	text, err := provider.Collect(s)
	require.NoError(t, err)
	require.Equal(t, p.Text(), text)
	require.Len(t, p.Requests(), 1)
	require.Equal(t, "mock", p.Name())
}

func TestProvider_UsesSettings(t *testing.T) {
	s := settings.NewStepSettings()
	s.Mock.Fragments = []string{"a", "b"}
	p := NewProvider(s)

	st, err := p.Generate(context.Background(), &provider.Request{})
	require.NoError(t, err)
	text, err := provider.Collect(st)
	require.NoError(t, err)
	require.Equal(t, "ab", text)
}

func TestProvider_ScriptedError(t *testing.T) {
	p := &Provider{Fragments: []string{"Le "}, Err: errors.New("quota exceeded")}
	s, err := p.Generate(context.Background(), &provider.Request{})
	require.NoError(t, err)
	text, err := provider.Collect(s)
	require.EqualError(t, err, "quota exceeded")
	require.Equal(t, "Le ", text)
}

func TestProvider_HonorsCancellation(t *testing.T) {
	p := &Provider{Fragments: []string{"a", "b", "c"}, Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	s, err := p.Generate(ctx, &provider.Request{})
	require.NoError(t, err)

	cancel()
	_, err = s.Recv()
	require.ErrorIs(t, err, context.Canceled)

	_, err = p.Generate(ctx, &provider.Request{})
	require.ErrorIs(t, err, context.Canceled)
}
