// Package provider defines the contract between the tutoring session and the
// hosted models that generate tutor answers.
package provider

import (
	"context"
	"io"

	"github.com/go-go-golems/appui/pkg/turns"
)

// Request is everything a provider needs to answer one student question.
type Request struct {
	// History is the transcript as it was before the question was asked.
	History []turns.Exchange
	Text    string
	Level   string
	Subject string
	// Attachment is nil when the student did not send an image.
	Attachment        *Attachment
	SystemInstruction string
	Temperature       float64
	// MaxContextTokens bounds the rendered history, 0 means unlimited.
	MaxContextTokens int
}

// FragmentStream is a finite, ordered sequence of text fragments.
//
// Recv returns io.EOF once the sequence is exhausted. Any other error ends the
// stream as well. Close releases the underlying connection and may be called at any
// time, including before the stream is exhausted.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}

// Provider starts a generation. Canceling ctx must make the returned stream end
// with an error promptly.
type Provider interface {
	Generate(ctx context.Context, req *Request) (FragmentStream, error)
}

// Info is implemented by providers that can describe the model they call.
type Info interface {
	Name() string
	Model() string
}

// Collect drains a stream and returns the concatenated fragments.
func Collect(s FragmentStream) (string, error) {
	defer func() {
		_ = s.Close()
	}()
	var ret string
	for {
		f, err := s.Recv()
		if err == io.EOF {
			return ret, nil
		}
		if err != nil {
			return ret, err
		}
		ret += f
	}
}
