package prompt

import (
	"sync"

	"github.com/go-go-golems/appui/pkg/turns"
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
	codecErr  error
)

func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// CountTokens counts cl100k tokens. It is an estimate for non-OpenAI models.
func CountTokens(s string) (int, error) {
	c, err := getCodec()
	if err != nil {
		return 0, errors.Wrap(err, "could not load tokenizer")
	}
	ids, _, err := c.Encode(s)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// TrimHistory drops the oldest exchanges until the remaining history, rendered one
// "Label: text" line per exchange, fits into maxTokens.
func TrimHistory(history []turns.Exchange, maxTokens int) ([]turns.Exchange, error) {
	if maxTokens <= 0 || len(history) == 0 {
		return history, nil
	}

	counts := make([]int, len(history))
	total := 0
	for i, e := range history {
		n, err := CountTokens(Label(e.Speaker) + ": " + e.Text + "\n")
		if err != nil {
			return nil, err
		}
		counts[i] = n
		total += n
	}

	start := 0
	for start < len(history) && total > maxTokens {
		total -= counts[start]
		start++
	}
	return history[start:], nil
}
