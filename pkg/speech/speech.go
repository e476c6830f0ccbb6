// Package speech reads tutor answers aloud. A Speaker owns a single playback slot:
// speaking while something is already playing stops it instead of queueing.
package speech

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Player renders text as audio and blocks until playback ends or ctx is canceled.
type Player interface {
	Play(ctx context.Context, text string) error
}

type PlayerFunc func(ctx context.Context, text string) error

func (f PlayerFunc) Play(ctx context.Context, text string) error {
	return f(ctx, text)
}

type Speaker struct {
	player Player

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	onChange func(speaking bool)
}

type SpeakerOption func(*Speaker)

// WithOnChange registers a callback invoked every time the speaking flag flips. It is
// called outside the speaker lock.
func WithOnChange(f func(speaking bool)) SpeakerOption {
	return func(s *Speaker) {
		s.onChange = f
	}
}

func NewSpeaker(player Player, options ...SpeakerOption) *Speaker {
	ret := &Speaker{player: player}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// Speak toggles playback. When something is playing, it is stopped and false is
// returned. Otherwise playback of text starts in the background and Speak returns true.
func (s *Speaker) Speak(text string) (bool, error) {
	if s == nil || s.player == nil {
		return false, errors.New("speaker has no player")
	}

	s.mu.Lock()
	if s.cancel != nil {
		cancel := s.release()
		s.mu.Unlock()
		cancel()
		s.notify(false)
		return false, nil
	}
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return false, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	s.notify(true)

	go func() {
		defer close(done)
		err := s.player.Play(ctx, text)
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("Speech playback failed")
		}
		cancel()

		// a toggle or Cancel may already have released the slot and reported it
		s.mu.Lock()
		owner := s.done == done
		if owner {
			s.release()
		}
		s.mu.Unlock()

		if owner {
			s.notify(false)
		}
	}()

	return true, nil
}

// release empties the slot and returns its cancel func. It must be called with mu held.
func (s *Speaker) release() context.CancelFunc {
	cancel := s.cancel
	s.cancel = nil
	s.done = nil
	return cancel
}

func (s *Speaker) notify(speaking bool) {
	if s.onChange != nil {
		s.onChange(speaking)
	}
}

// Cancel stops the current playback, if any, and waits for it to end.
func (s *Speaker) Cancel() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	done := s.done
	cancel := s.release()
	s.mu.Unlock()

	cancel()
	s.notify(false)
	<-done
}

func (s *Speaker) IsSpeaking() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
