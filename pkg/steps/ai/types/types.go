package types

import (
	"strings"

	"github.com/pkg/errors"
)

type ApiType string

const (
	ApiTypeGemini ApiType = "gemini"
	ApiTypeOpenAI ApiType = "openai"
	ApiTypeOllama ApiType = "ollama"
	// ApiTypeMock replays scripted answers and needs no network access
	ApiTypeMock ApiType = "mock"
)

var ApiTypes = []ApiType{ApiTypeGemini, ApiTypeOpenAI, ApiTypeOllama, ApiTypeMock}

func ParseApiType(s string) (ApiType, error) {
	v := ApiType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range ApiTypes {
		if t == v {
			return t, nil
		}
	}
	return "", errors.Errorf("unknown api type %q", s)
}
