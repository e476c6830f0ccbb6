package provider

import (
	"context"
	"io"
	"sync"
)

// SliceStream replays a fixed list of fragments, then ends with Err or io.EOF.
type SliceStream struct {
	Fragments []string
	Err       error

	mu     sync.Mutex
	pos    int
	closed bool
}

func NewSliceStream(fragments ...string) *SliceStream {
	return &SliceStream{Fragments: fragments}
}

func (s *SliceStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", io.EOF
	}
	if s.pos < len(s.Fragments) {
		f := s.Fragments[s.pos]
		s.pos++
		return f, nil
	}
	if s.Err != nil {
		return "", s.Err
	}
	return "", io.EOF
}

func (s *SliceStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var _ FragmentStream = (*SliceStream)(nil)

type chunk struct {
	text string
	err  error
}

// ChannelStream adapts a producer goroutine to a FragmentStream.
//
// The producer calls Send for each fragment and Finish exactly once. Send blocks until
// the consumer receives the fragment or the stream is closed.
type ChannelStream struct {
	ch     chan chunk
	done   chan struct{}
	cancel context.CancelFunc

	closeOnce  sync.Once
	finishOnce sync.Once
}

// NewChannelStream returns a stream and a context that is canceled when the stream is
// closed. Producers should run under that context.
func NewChannelStream(ctx context.Context) (*ChannelStream, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &ChannelStream{
		ch:     make(chan chunk),
		done:   make(chan struct{}),
		cancel: cancel,
	}, ctx
}

// Send delivers a fragment. It returns false when the consumer closed the stream.
func (c *ChannelStream) Send(text string) bool {
	if text == "" {
		return true
	}
	select {
	case c.ch <- chunk{text: text}:
		return true
	case <-c.done:
		return false
	}
}

// Finish ends the stream with err, or io.EOF when err is nil.
func (c *ChannelStream) Finish(err error) {
	c.finishOnce.Do(func() {
		if err == nil {
			err = io.EOF
		}
		select {
		case c.ch <- chunk{err: err}:
		case <-c.done:
		}
		close(c.ch)
	})
}

func (c *ChannelStream) Recv() (string, error) {
	select {
	case <-c.done:
		return "", io.EOF
	default:
	}
	select {
	case v, ok := <-c.ch:
		if !ok {
			return "", io.EOF
		}
		if v.err != nil {
			return "", v.err
		}
		return v.text, nil
	case <-c.done:
		return "", io.EOF
	}
}

func (c *ChannelStream) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
	})
	return nil
}

var _ FragmentStream = (*ChannelStream)(nil)

// Func adapts a function to a Provider.
type Func func(ctx context.Context, req *Request) (FragmentStream, error)

func (f Func) Generate(ctx context.Context, req *Request) (FragmentStream, error) {
	return f(ctx, req)
}

var _ Provider = Func(nil)
