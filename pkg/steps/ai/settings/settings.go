package settings

import (
	"time"

	"github.com/go-go-golems/appui/pkg/steps/ai/types"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DefaultGeminiEngine = "gemini-2.5-flash"
	DefaultOpenAIEngine = "gpt-4o-mini"
	DefaultOllamaEngine = "llava"
	DefaultTemperature  = 0.7
	DefaultTimeout      = 2 * time.Minute
)

type ChatSettings struct {
	ApiType     *types.ApiType `yaml:"api_type,omitempty"`
	Engine      *string        `yaml:"engine,omitempty"`
	Temperature *float64       `yaml:"temperature,omitempty"`
	// MaxContextTokens bounds the history sent with each question, 0 means unlimited
	MaxContextTokens  int           `yaml:"max_context_tokens,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
	SystemInstruction string        `yaml:"system_instruction,omitempty"`
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}

// APISettings holds credentials and endpoints keyed "<api-type>-api-key" and
// "<api-type>-base-url".
type APISettings struct {
	APIKeys  map[string]string `yaml:"api_keys,omitempty"`
	BaseUrls map[string]string `yaml:"base_urls,omitempty"`
}

func NewAPISettings() *APISettings {
	return &APISettings{
		APIKeys:  map[string]string{},
		BaseUrls: map[string]string{},
	}
}

func (a *APISettings) APIKey(apiType types.ApiType) string {
	return a.APIKeys[string(apiType)+"-api-key"]
}

func (a *APISettings) BaseURL(apiType types.ApiType) string {
	return a.BaseUrls[string(apiType)+"-base-url"]
}

func (a *APISettings) Clone() *APISettings {
	return clone.Clone(a).(*APISettings)
}

// MockSettings configures the offline provider.
type MockSettings struct {
	Fragments []string      `yaml:"fragments,omitempty"`
	Delay     time.Duration `yaml:"delay,omitempty"`
}

type StepSettings struct {
	Chat *ChatSettings `yaml:"chat,omitempty"`
	API  *APISettings  `yaml:"api,omitempty"`
	Mock *MockSettings `yaml:"mock,omitempty"`
}

func NewStepSettings() *StepSettings {
	apiType := types.ApiTypeGemini
	temperature := DefaultTemperature
	return &StepSettings{
		Chat: &ChatSettings{
			ApiType:     &apiType,
			Temperature: &temperature,
			Timeout:     DefaultTimeout,
		},
		API:  NewAPISettings(),
		Mock: &MockSettings{},
	}
}

func (s *StepSettings) Clone() *StepSettings {
	return clone.Clone(s).(*StepSettings)
}

// GetApiType returns the configured api type, gemini when unset.
func (s *StepSettings) GetApiType() types.ApiType {
	if s.Chat == nil || s.Chat.ApiType == nil || *s.Chat.ApiType == "" {
		return types.ApiTypeGemini
	}
	return *s.Chat.ApiType
}

// GetEngine returns the configured model, or the default of the api type.
func (s *StepSettings) GetEngine() string {
	if s.Chat != nil && s.Chat.Engine != nil && *s.Chat.Engine != "" {
		return *s.Chat.Engine
	}
	switch s.GetApiType() {
	case types.ApiTypeOpenAI:
		return DefaultOpenAIEngine
	case types.ApiTypeOllama:
		return DefaultOllamaEngine
	case types.ApiTypeMock:
		return "mock"
	case types.ApiTypeGemini:
		return DefaultGeminiEngine
	}
	return DefaultGeminiEngine
}

func (s *StepSettings) GetTemperature() float64 {
	if s.Chat == nil || s.Chat.Temperature == nil {
		return DefaultTemperature
	}
	return *s.Chat.Temperature
}

// UpdateFromViper overlays the ai-* and <api-type>-* keys found in v.
func (s *StepSettings) UpdateFromViper(v *viper.Viper) error {
	if s.Chat == nil {
		s.Chat = &ChatSettings{}
	}
	if s.API == nil {
		s.API = NewAPISettings()
	}
	if s.Mock == nil {
		s.Mock = &MockSettings{}
	}

	if v.IsSet("ai-api-type") {
		apiType, err := types.ParseApiType(v.GetString("ai-api-type"))
		if err != nil {
			return err
		}
		s.Chat.ApiType = &apiType
	}
	if e := v.GetString("ai-engine"); e != "" {
		s.Chat.Engine = &e
	}
	if v.IsSet("ai-temperature") {
		t := v.GetFloat64("ai-temperature")
		if t < 0 || t > 2 {
			return errors.Errorf("ai-temperature must be between 0 and 2, got %v", t)
		}
		s.Chat.Temperature = &t
	}
	if v.IsSet("ai-max-context-tokens") {
		n := v.GetInt("ai-max-context-tokens")
		if n < 0 {
			return errors.Errorf("ai-max-context-tokens must not be negative, got %d", n)
		}
		s.Chat.MaxContextTokens = n
	}
	if v.IsSet("ai-timeout") {
		s.Chat.Timeout = v.GetDuration("ai-timeout")
	}
	if si := v.GetString("ai-system-instruction"); si != "" {
		s.Chat.SystemInstruction = si
	}

	for _, apiType := range types.ApiTypes {
		keyName := string(apiType) + "-api-key"
		if k := v.GetString(keyName); k != "" {
			s.API.APIKeys[keyName] = k
		}
		urlName := string(apiType) + "-base-url"
		if u := v.GetString(urlName); u != "" {
			s.API.BaseUrls[urlName] = u
		}
	}

	if f := v.GetStringSlice("mock-fragments"); len(f) > 0 {
		s.Mock.Fragments = f
	}
	if v.IsSet("mock-delay") {
		s.Mock.Delay = v.GetDuration("mock-delay")
	}

	return nil
}

// NewStepSettingsFromViper returns the defaults overlaid with v.
func NewStepSettingsFromViper(v *viper.Viper) (*StepSettings, error) {
	s := NewStepSettings()
	if err := s.UpdateFromViper(v); err != nil {
		return nil, err
	}
	return s, nil
}
