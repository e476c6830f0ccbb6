package openai

import (
	"context"
	"io"

	"github.com/go-go-golems/appui/pkg/inference/prompt"
	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/steps/ai/settings"
	"github.com/go-go-golems/appui/pkg/steps/ai/types"
	"github.com/go-go-golems/appui/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// Provider streams tutor answers from an OpenAI-compatible chat completion API.
type Provider struct {
	client *go_openai.Client
	model  string
}

var _ provider.Provider = (*Provider)(nil)
var _ provider.Info = (*Provider)(nil)

func MakeClient(apiSettings *settings.APISettings) (*go_openai.Client, error) {
	apiKey := apiSettings.APIKey(types.ApiTypeOpenAI)
	if apiKey == "" {
		return nil, errors.New("missing API key openai-api-key")
	}
	config := go_openai.DefaultConfig(apiKey)
	if baseURL := apiSettings.BaseURL(types.ApiTypeOpenAI); baseURL != "" {
		config.BaseURL = baseURL
	}
	return go_openai.NewClientWithConfig(config), nil
}

func NewProvider(s *settings.StepSettings) (*Provider, error) {
	client, err := MakeClient(s.API)
	if err != nil {
		return nil, err
	}
	return &Provider{client: client, model: s.GetEngine()}, nil
}

func (p *Provider) Name() string { return string(types.ApiTypeOpenAI) }

func (p *Provider) Model() string { return p.model }

// MakeMessages maps the request to chat messages: the system instruction, the
// history as user/assistant turns, then the new question with its image.
func MakeMessages(req *provider.Request) ([]go_openai.ChatCompletionMessage, error) {
	history := req.History
	if req.MaxContextTokens > 0 {
		var err error
		history, err = prompt.TrimHistory(history, req.MaxContextTokens)
		if err != nil {
			return nil, err
		}
	}

	msgs := []go_openai.ChatCompletionMessage{{
		Role:    go_openai.ChatMessageRoleSystem,
		Content: prompt.SystemInstruction(req) + "\nNiveau scolaire : " + req.Level + "\nMatière : " + req.Subject,
	}}
	for _, e := range history {
		role := go_openai.ChatMessageRoleAssistant
		if e.Speaker == turns.SpeakerStudent {
			role = go_openai.ChatMessageRoleUser
		}
		msgs = append(msgs, go_openai.ChatCompletionMessage{Role: role, Content: e.Text})
	}

	if req.Attachment == nil {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleUser,
			Content: req.Text,
		})
		return msgs, nil
	}

	parts := []go_openai.ChatMessagePart{{
		Type: go_openai.ChatMessagePartTypeImageURL,
		ImageURL: &go_openai.ChatMessageImageURL{
			URL:    req.Attachment.DataURL(),
			Detail: go_openai.ImageURLDetailAuto,
		},
	}}
	if req.Text != "" {
		parts = append(parts, go_openai.ChatMessagePart{
			Type: go_openai.ChatMessagePartTypeText,
			Text: req.Text,
		})
	}
	msgs = append(msgs, go_openai.ChatCompletionMessage{
		Role:         go_openai.ChatMessageRoleUser,
		MultiContent: parts,
	})
	return msgs, nil
}

func (p *Provider) Generate(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
	msgs, err := MakeMessages(req)
	if err != nil {
		return nil, err
	}
	chatReq := go_openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    msgs,
		Temperature: float32(req.Temperature),
		Stream:      true,
	}

	log.Debug().Str("model", p.model).Int("messages", len(msgs)).Msg("OpenAI CreateChatCompletionStream")
	s, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		log.Error().Err(err).Msg("OpenAI streaming request failed")
		return nil, err
	}
	return &stream{s: s}, nil
}

type stream struct {
	s      *go_openai.ChatCompletionStream
	chunks int
}

func (s *stream) Recv() (string, error) {
	for {
		response, err := s.s.Recv()
		if errors.Is(err, io.EOF) {
			log.Debug().Int("chunks_received", s.chunks).Msg("OpenAI stream completed")
			return "", io.EOF
		}
		if err != nil {
			log.Error().Err(err).Int("chunks_received", s.chunks).Msg("OpenAI stream receive failed")
			return "", err
		}
		s.chunks++
		if len(response.Choices) == 0 {
			continue
		}
		if delta := response.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *stream) Close() error {
	return s.s.Close()
}
