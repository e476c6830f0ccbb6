package gemini

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/go-go-golems/appui/pkg/inference/prompt"
	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/steps/ai/settings"
	"github.com/go-go-golems/appui/pkg/steps/ai/types"
	genai "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

func IsGeminiEngine(engine string) bool {
	return strings.HasPrefix(engine, "gemini")
}

// Provider streams tutor answers from the Gemini API.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
}

var _ provider.Provider = (*Provider)(nil)
var _ provider.Info = (*Provider)(nil)

func NewProvider(s *settings.StepSettings) (*Provider, error) {
	apiKey := s.API.APIKey(types.ApiTypeGemini)
	if apiKey == "" {
		return nil, errors.New("missing API key gemini-api-key")
	}
	return &Provider{
		apiKey:  apiKey,
		baseURL: s.API.BaseURL(types.ApiTypeGemini),
		model:   s.GetEngine(),
	}, nil
}

func (p *Provider) Name() string { return string(types.ApiTypeGemini) }

func (p *Provider) Model() string { return p.model }

// BuildParts returns the user content of the request: the image first when present,
// then the rendered context prompt.
func BuildParts(req *provider.Request) ([]genai.Part, error) {
	text, err := prompt.RenderContextPrompt(req)
	if err != nil {
		return nil, err
	}
	parts := []genai.Part{}
	if req.Attachment != nil {
		parts = append(parts, genai.Blob{MIMEType: req.Attachment.MIMEType, Data: req.Attachment.Data})
	}
	parts = append(parts, genai.Text(text))
	return parts, nil
}

func (p *Provider) Generate(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
	parts, err := BuildParts(req)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithAPIKey(p.apiKey)}
	if p.baseURL != "" {
		opts = append(opts, option.WithEndpoint(p.baseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}

	model := client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt.SystemInstruction(req))},
	}
	model.SetTemperature(float32(req.Temperature))

	log.Debug().
		Str("model", p.model).
		Int("parts", len(parts)).
		Int("history", len(req.History)).
		Msg("Gemini GenerateContentStream")

	return &stream{
		client: client,
		iter:   model.GenerateContentStream(ctx, parts...),
	}, nil
}

type stream struct {
	client *genai.Client
	iter   *genai.GenerateContentResponseIterator

	mu      sync.Mutex
	pending []string
	closed  bool
	chunks  int
}

func (s *stream) Recv() (string, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return "", io.EOF
		}
		if len(s.pending) > 0 {
			f := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return f, nil
		}
		s.mu.Unlock()

		resp, err := s.iter.Next()
		if err == iterator.Done {
			log.Debug().Int("chunks_received", s.chunks).Msg("Gemini stream completed")
			return "", io.EOF
		}
		if err != nil {
			log.Error().Err(err).Int("chunks_received", s.chunks).Msg("Gemini stream receive failed")
			return "", err
		}
		s.chunks++

		texts := TextsFromResponse(resp)
		s.mu.Lock()
		s.pending = append(s.pending, texts...)
		s.mu.Unlock()
	}
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.client.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close gemini client")
		return err
	}
	return nil
}

// TextsFromResponse extracts the non-empty text parts of every candidate.
func TextsFromResponse(resp *genai.GenerateContentResponse) []string {
	ret := []string{}
	if resp == nil {
		return ret
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok && t != "" {
				ret = append(ret, string(t))
			}
		}
	}
	return ret
}
