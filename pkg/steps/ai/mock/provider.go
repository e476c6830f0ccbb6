// Package mock provides an offline tutor that replays a scripted answer, one fragment
// at a time. It is used for demos and tests.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/steps/ai/settings"
	"github.com/go-go-golems/appui/pkg/steps/ai/types"
)

// DefaultFragments is a short Socratic reply split the way a streaming model would split it.
var DefaultFragments = []string{
	"Bonne question ! ",
	"Avant de te répondre, ",
	"qu'as-tu déjà retenu du cours sur ce sujet ? ",
	"Essaie de repérer les mots-clés ",
	"et dis-moi ce qu'ils évoquent pour toi.",
}

type Provider struct {
	Fragments []string
	Delay     time.Duration
	// Err, when set, ends every stream after the fragments are replayed
	Err error

	mu       sync.Mutex
	requests []*provider.Request
}

var _ provider.Provider = (*Provider)(nil)
var _ provider.Info = (*Provider)(nil)

func NewProvider(s *settings.StepSettings) *Provider {
	ret := &Provider{Fragments: DefaultFragments}
	if s != nil && s.Mock != nil {
		if len(s.Mock.Fragments) > 0 {
			ret.Fragments = s.Mock.Fragments
		}
		ret.Delay = s.Mock.Delay
	}
	return ret
}

func (p *Provider) Name() string { return string(types.ApiTypeMock) }

func (p *Provider) Model() string { return "mock" }

func (p *Provider) Generate(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	fragments := append([]string(nil), p.Fragments...)
	s, streamCtx := provider.NewChannelStream(ctx)
	go func() {
		for _, f := range fragments {
			if p.Delay > 0 {
				t := time.NewTimer(p.Delay)
				select {
				case <-streamCtx.Done():
					t.Stop()
					s.Finish(streamCtx.Err())
					return
				case <-t.C:
				}
			}
			if !s.Send(f) {
				s.Finish(streamCtx.Err())
				return
			}
		}
		s.Finish(p.Err)
	}()
	return s, nil
}

// Requests returns every request received, most recent last.
func (p *Provider) Requests() []*provider.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*provider.Request(nil), p.requests...)
}

// Text returns the full scripted answer.
func (p *Provider) Text() string {
	return strings.Join(p.Fragments, "")
}
