package ollama

import (
	"context"

	"github.com/go-go-golems/appui/pkg/inference/prompt"
	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/steps/ai/settings"
	"github.com/go-go-golems/appui/pkg/steps/ai/types"
	"github.com/jmorganca/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type generateFunc func(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error

// Provider streams tutor answers from a local Ollama server. The server address is
// taken from OLLAMA_HOST.
type Provider struct {
	generate generateFunc
	model    string
}

var _ provider.Provider = (*Provider)(nil)
var _ provider.Info = (*Provider)(nil)

func NewProvider(s *settings.StepSettings) (*Provider, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ollama client")
	}
	return &Provider{generate: client.Generate, model: s.GetEngine()}, nil
}

func (p *Provider) Name() string { return string(types.ApiTypeOllama) }

func (p *Provider) Model() string { return p.model }

func MakeGenerateRequest(model string, req *provider.Request) (*api.GenerateRequest, error) {
	text, err := prompt.RenderContextPrompt(req)
	if err != nil {
		return nil, err
	}
	stream := true
	ret := &api.GenerateRequest{
		Model:  model,
		Prompt: text,
		System: prompt.SystemInstruction(req),
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
		},
	}
	if req.Attachment != nil {
		ret.Images = []api.ImageData{api.ImageData(req.Attachment.Data)}
	}
	return ret, nil
}

// Generate runs the callback based client in a goroutine and hands every response
// chunk to the returned stream, in order.
func (p *Provider) Generate(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
	genReq, err := MakeGenerateRequest(p.model, req)
	if err != nil {
		return nil, err
	}

	s, streamCtx := provider.NewChannelStream(ctx)
	go func() {
		chunks := 0
		err := p.generate(streamCtx, genReq, func(resp api.GenerateResponse) error {
			chunks++
			if !s.Send(resp.Response) {
				return context.Canceled
			}
			return nil
		})
		if err == nil && streamCtx.Err() != nil {
			err = streamCtx.Err()
		}
		if err != nil {
			log.Debug().Err(err).Int("chunks_received", chunks).Msg("Ollama generate ended with error")
		} else {
			log.Debug().Int("chunks_received", chunks).Msg("Ollama stream completed")
		}
		s.Finish(err)
	}()

	return s, nil
}
