package ollama

import (
	"context"
	"testing"
	"time"

	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMakeGenerateRequest(t *testing.T) {
	req, err := MakeGenerateRequest("llava", &provider.Request{
		Level:       "5ème",
		Subject:     "Histoire",
		Text:        "Qui était Charlemagne ?",
		Temperature: 0.7,
		Attachment:  &provider.Attachment{Data: []byte{1, 2}, MIMEType: "image/png"},
	})
	require.NoError(t, err)
	require.Equal(t, "llava", req.Model)
	require.Contains(t, req.Prompt, "Nouvelle question de l'élève : Qui était Charlemagne ?")
	require.Contains(t, req.System, "L'Appui Pédagogique")
	require.True(t, *req.Stream)
	require.Equal(t, 0.7, req.Options["temperature"])
	require.Len(t, req.Images, 1)
}

func TestProvider_BridgesCallbacks(t *testing.T) {
	p := &Provider{model: "llava", generate: func(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error {
		for _, r := range []string{"Le ", "Néolithique ", "", "est..."} {
			if err := fn(api.GenerateResponse{Response: r}); err != nil {
				return err
			}
		}
		return fn(api.GenerateResponse{Done: true})
	}}

	s, err := p.Generate(context.Background(), &provider.Request{Text: "q"})
	require.NoError(t, err)
	text, err := provider.Collect(s)
	require.NoError(t, err)
	require.Equal(t, "Le Néolithique est...", text)
}

func TestProvider_PropagatesErrors(t *testing.T) {
	p := &Provider{generate: func(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error {
		_ = fn(api.GenerateResponse{Response: "Le "})
		return errors.New("model not found")
	}}

	s, err := p.Generate(context.Background(), &provider.Request{Text: "q"})
	require.NoError(t, err)
	text, err := provider.Collect(s)
	require.EqualError(t, err, "model not found")
	require.Equal(t, "Le ", text)
}

func TestProvider_CloseStopsGeneration(t *testing.T) {
	stopped := make(chan error, 1)
	p := &Provider{generate: func(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error {
		for {
			if err := fn(api.GenerateResponse{Response: "x"}); err != nil {
				stopped <- err
				return err
			}
		}
	}}

	s, err := p.Generate(context.Background(), &provider.Request{Text: "q"})
	require.NoError(t, err)
	f, err := s.Recv()
	require.NoError(t, err)
	require.Equal(t, "x", f)
	require.NoError(t, s.Close())

	select {
	case err := <-stopped:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("generation did not stop")
	}
}
