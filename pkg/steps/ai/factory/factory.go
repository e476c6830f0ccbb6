package factory

import (
	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/steps/ai/gemini"
	"github.com/go-go-golems/appui/pkg/steps/ai/mock"
	"github.com/go-go-golems/appui/pkg/steps/ai/ollama"
	"github.com/go-go-golems/appui/pkg/steps/ai/openai"
	"github.com/go-go-golems/appui/pkg/steps/ai/settings"
	"github.com/go-go-golems/appui/pkg/steps/ai/types"
	"github.com/pkg/errors"
)

// NewProvider returns the provider selected by the ai-api-type setting.
func NewProvider(s *settings.StepSettings) (provider.Provider, error) {
	if s == nil {
		return nil, errors.New("no settings")
	}

	apiType := s.GetApiType()
	switch apiType {
	case types.ApiTypeGemini:
		p, err := gemini.NewProvider(s)
		if err != nil {
			return nil, err
		}
		return p, nil
	case types.ApiTypeOpenAI:
		p, err := openai.NewProvider(s)
		if err != nil {
			return nil, err
		}
		return p, nil
	case types.ApiTypeOllama:
		p, err := ollama.NewProvider(s)
		if err != nil {
			return nil, err
		}
		return p, nil
	case types.ApiTypeMock:
		return mock.NewProvider(s), nil
	}

	return nil, errors.Errorf("unsupported api type: %s", apiType)
}
