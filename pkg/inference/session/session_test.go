package session

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/appui/pkg/events"
	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/turns"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeProvider struct {
	mu       sync.Mutex
	requests []*provider.Request
	generate func(ctx context.Context, req *provider.Request) (provider.FragmentStream, error)
}

func (p *fakeProvider) Generate(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	return p.generate(ctx, req)
}

func (p *fakeProvider) Requests() []*provider.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*provider.Request{}, p.requests...)
}

func fragmentsProvider(fragments ...string) *fakeProvider {
	return &fakeProvider{generate: func(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
		return provider.NewSliceStream(fragments...), nil
	}}
}

// manualStream hands out fragments pushed by the test. With a nil ctx it ignores
// cancellation, like a provider that keeps streaming after it was told to stop.
type manualStream struct {
	ctx       context.Context
	fragments chan string
	end       chan error
}

func newManualStream(ctx context.Context) *manualStream {
	if ctx == nil {
		ctx = context.Background()
	}
	return &manualStream{ctx: ctx, fragments: make(chan string), end: make(chan error, 1)}
}

func (m *manualStream) Recv() (string, error) {
	select {
	case f := <-m.fragments:
		return f, nil
	case err := <-m.end:
		if err == nil {
			return "", io.EOF
		}
		return "", err
	case <-m.ctx.Done():
		return "", m.ctx.Err()
	}
}

func (m *manualStream) Close() error { return nil }

// manualProvider returns the streams it creates on a channel so the test can drive them.
func manualProvider(honorCancel bool) (*fakeProvider, chan *manualStream) {
	streams := make(chan *manualStream, 4)
	return &fakeProvider{generate: func(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
		var s *manualStream
		if honorCancel {
			s = newManualStream(ctx)
		} else {
			s = newManualStream(nil)
		}
		streams <- s
		return s, nil
	}}, streams
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) PublishEvent(e events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *recorder) Types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := []events.EventType{}
	for _, e := range r.events {
		ret = append(ret, e.Type())
	}
	return ret
}

func (r *recorder) Last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func newTestSession(p provider.Provider, options ...Option) *Session {
	options = append([]Option{
		WithGreeting("Bonjour..."),
		WithLevel("6ème"),
		WithSubject("Histoire"),
	}, options...)
	return NewSession(p, options...)
}

func textOf(s *Session, i int) string {
	return s.Snapshot()[i].Text
}

func TestSession_NeolithiqueScenario(t *testing.T) {
	p, streams := manualProvider(false)
	s := newTestSession(p)
	require.Len(t, s.Snapshot(), 1)

	h, err := s.Submit(context.Background(), "Qu'est-ce que le Néolithique ?", nil)
	require.NoError(t, err)
	require.True(t, s.IsRunning())

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, turns.SpeakerTutor, snap[0].Speaker)
	require.Equal(t, "Bonjour...", snap[0].Text)
	require.Equal(t, turns.SpeakerStudent, snap[1].Speaker)
	require.Equal(t, "Qu'est-ce que le Néolithique ?", snap[1].Text)
	require.False(t, snap[1].HasAttachment)
	require.Equal(t, turns.SpeakerTutor, snap[2].Speaker)
	require.Equal(t, "", snap[2].Text)
	require.True(t, snap[2].Pending)
	require.Equal(t, h.StudentTurnID, snap[1].ID)
	require.Equal(t, h.PendingTurnID, snap[2].ID)

	stream := <-streams
	stream.fragments <- "Le "
	require.Eventually(t, func() bool { return textOf(s, 2) == "Le " }, waitFor, tick)
	stream.fragments <- "Néolithique "
	require.Eventually(t, func() bool { return textOf(s, 2) == "Le Néolithique " }, waitFor, tick)
	stream.fragments <- "est..."
	stream.end <- nil

	text, err := h.Wait()
	require.NoError(t, err)
	require.Equal(t, "Le Néolithique est...", text)

	snap = s.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, "Le Néolithique est...", snap[2].Text)
	require.False(t, snap[2].Pending)
	require.False(t, s.IsRunning())

	reqs := p.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, []turns.Exchange{{Speaker: turns.SpeakerTutor, Text: "Bonjour..."}}, reqs[0].History)
	require.Equal(t, "Qu'est-ce que le Néolithique ?", reqs[0].Text)
	require.Equal(t, "6ème", reqs[0].Level)
	require.Equal(t, "Histoire", reqs[0].Subject)
	require.Equal(t, DefaultTemperature, reqs[0].Temperature)
	require.Nil(t, reqs[0].Attachment)
}

func TestSession_FragmentsConcatenateInOrder(t *testing.T) {
	fragments := []string{}
	want := ""
	for i := 0; i < 200; i++ {
		f := string(rune('a'+i%26)) + " "
		fragments = append(fragments, f)
		want += f
	}
	rec := &recorder{}
	s := newTestSession(fragmentsProvider(fragments...), WithEventSinks(rec))

	h, err := s.Submit(context.Background(), "question", nil)
	require.NoError(t, err)
	text, err := h.Wait()
	require.NoError(t, err)
	require.Equal(t, want, text)
	require.Equal(t, want, textOf(s, 2))

	// every partial event carries the accumulated text at that point
	acc := ""
	partials := 0
	rec.mu.Lock()
	for _, e := range rec.events {
		if p, ok := e.(*events.EventPartialCompletion); ok {
			acc += p.Delta
			require.Equal(t, acc, p.Completion)
			require.Equal(t, acc, p.Transcript()[2].Text)
			partials++
		}
	}
	rec.mu.Unlock()
	require.Equal(t, len(fragments), partials)
}

func TestSession_SubmitWhileActiveIsRejected(t *testing.T) {
	p, streams := manualProvider(false)
	s := newTestSession(p)

	h, err := s.Submit(context.Background(), "première question", nil)
	require.NoError(t, err)
	before := s.Snapshot()

	_, err = s.Submit(context.Background(), "deuxième question", nil)
	require.ErrorIs(t, err, ErrSessionAlreadyActive)
	require.Equal(t, before, s.Snapshot())

	stream := <-streams
	stream.end <- nil
	_, err = h.Wait()
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), "deuxième question", nil)
	require.NoError(t, err)
	require.Len(t, p.Requests(), 2)
}

func TestSession_ResetSeedsSingleTutorTurn(t *testing.T) {
	s := newTestSession(fragmentsProvider("réponse"))
	for i := 0; i < 3; i++ {
		h, err := s.Submit(context.Background(), "question", nil)
		require.NoError(t, err)
		_, err = h.Wait()
		require.NoError(t, err)
	}
	require.Len(t, s.Snapshot(), 7)

	s.Reset()
	snap := s.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, turns.SpeakerTutor, snap[0].Speaker)
	require.Equal(t, ResetMessage, snap[0].Text)
	require.False(t, s.IsRunning())
}

func TestSession_StaleFragmentsAfterResetAreDiscarded(t *testing.T) {
	p, streams := manualProvider(false)
	rec := &recorder{}
	s := newTestSession(p, WithEventSinks(rec))

	h, err := s.Submit(context.Background(), "question", nil)
	require.NoError(t, err)
	stream := <-streams
	stream.fragments <- "début "
	require.Eventually(t, func() bool { return textOf(s, 2) == "début " }, waitFor, tick)

	s.Reset()
	require.False(t, s.IsRunning())
	require.Len(t, s.Snapshot(), 1)

	// the provider ignores the cancellation and keeps streaming
	stream.fragments <- "tardif"
	_, err = h.Wait()
	require.ErrorIs(t, err, ErrSessionReset)

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, ResetMessage, snap[0].Text)

	types := rec.Types()
	require.Equal(t, events.EventTypeReset, types[len(types)-1])
	reset, ok := rec.Last().(*events.EventReset)
	require.True(t, ok)
	require.Equal(t, h.InferenceID, reset.CanceledInferenceID)
}

func TestSession_StaleErrorAfterResetAddsNoFallback(t *testing.T) {
	p, streams := manualProvider(false)
	s := newTestSession(p)

	h, err := s.Submit(context.Background(), "question", nil)
	require.NoError(t, err)
	stream := <-streams

	s.Reset()
	stream.end <- errors.New("late failure")
	_, err = h.Wait()
	require.ErrorIs(t, err, ErrSessionReset)
	require.Len(t, s.Snapshot(), 1)
}

func TestSession_ResetAllowsNewSubmitWhileOldRequestLingers(t *testing.T) {
	p, streams := manualProvider(false)
	s := newTestSession(p)

	old, err := s.Submit(context.Background(), "ancienne", nil)
	require.NoError(t, err)
	oldStream := <-streams
	s.Reset()

	h, err := s.Submit(context.Background(), "nouvelle", nil)
	require.NoError(t, err)
	newStream := <-streams

	oldStream.end <- errors.New("boom")
	_, err = old.Wait()
	require.ErrorIs(t, err, ErrSessionReset)

	newStream.fragments <- "ok"
	newStream.end <- nil
	text, err := h.Wait()
	require.NoError(t, err)
	require.Equal(t, "ok", text)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, "nouvelle", snap[1].Text)
	require.Equal(t, "ok", snap[2].Text)

	// history sent for the new request starts from the reset acknowledgment
	reqs := p.Requests()
	require.Equal(t, []turns.Exchange{{Speaker: turns.SpeakerTutor, Text: ResetMessage}}, reqs[1].History)
}

func TestSession_ProviderFailureAppendsOneFallbackTurn(t *testing.T) {
	rec := &recorder{}
	p := &fakeProvider{generate: func(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
		return &provider.SliceStream{Fragments: []string{"Le "}, Err: errors.New("quota exceeded")}, nil
	}}
	s := newTestSession(p, WithEventSinks(rec))

	h, err := s.Submit(context.Background(), "question", nil)
	require.NoError(t, err)
	text, err := h.Wait()
	require.EqualError(t, err, "quota exceeded")
	require.Equal(t, "Le ", text)
	require.False(t, s.IsRunning())

	snap := s.Snapshot()
	require.Len(t, snap, 4)
	require.Equal(t, "Le ", snap[2].Text)
	require.False(t, snap[2].Pending)
	require.Equal(t, turns.SpeakerTutor, snap[3].Speaker)
	require.Equal(t, FallbackMessage, snap[3].Text)

	ev, ok := rec.Last().(*events.EventError)
	require.True(t, ok)
	require.Equal(t, "quota exceeded", ev.ErrorString)
	require.Equal(t, "Le ", ev.PartialText)
	require.Len(t, ev.Transcript(), 4)

	// the session stays usable
	p.generate = func(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
		return provider.NewSliceStream("ok"), nil
	}
	h, err = s.Submit(context.Background(), "encore", nil)
	require.NoError(t, err)
	_, err = h.Wait()
	require.NoError(t, err)
	require.Len(t, s.Snapshot(), 6)
}

func TestSession_ProviderFailureBeforeStreaming(t *testing.T) {
	p := &fakeProvider{generate: func(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
		return nil, errors.New("no api key")
	}}
	s := newTestSession(p)

	h, err := s.Submit(context.Background(), "question", nil)
	require.NoError(t, err)
	_, err = h.Wait()
	require.Error(t, err)

	snap := s.Snapshot()
	require.Len(t, snap, 4)
	require.Equal(t, "", snap[2].Text)
	require.False(t, snap[2].Pending)
	require.Equal(t, FallbackMessage, snap[3].Text)
}

func TestSession_AttachmentIsConsumedOnce(t *testing.T) {
	p, streams := manualProvider(false)
	s := newTestSession(p)
	img := &provider.Attachment{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"}

	s.SetAttachment(img)
	require.Equal(t, img, s.PendingAttachment())

	h, err := s.Submit(context.Background(), "Explique ce document", nil)
	require.NoError(t, err)
	require.Nil(t, s.PendingAttachment())
	require.True(t, s.Snapshot()[1].HasAttachment)

	stream := <-streams
	stream.end <- nil
	_, err = h.Wait()
	require.NoError(t, err)

	reqs := p.Requests()
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Attachment)
	require.Equal(t, img.Data, reqs[0].Attachment.Data)
	require.Equal(t, "image/png", reqs[0].Attachment.MIMEType)

	// the next submission does not resend the image
	h, err = s.Submit(context.Background(), "Et ensuite ?", nil)
	require.NoError(t, err)
	stream = <-streams
	stream.end <- nil
	_, err = h.Wait()
	require.NoError(t, err)
	require.Nil(t, p.Requests()[1].Attachment)
	require.False(t, s.Snapshot()[3].HasAttachment)
}

func TestSession_AttachmentClearedEvenOnFailure(t *testing.T) {
	p := &fakeProvider{generate: func(ctx context.Context, req *provider.Request) (provider.FragmentStream, error) {
		return nil, errors.New("unsupported image")
	}}
	s := newTestSession(p)
	s.SetAttachment(&provider.Attachment{Data: []byte{1}, MIMEType: "image/png"})

	h, err := s.Submit(context.Background(), "", nil)
	require.NoError(t, err)
	_, err = h.Wait()
	require.Error(t, err)
	require.Nil(t, s.PendingAttachment())
}

func TestSession_ExplicitAttachmentOverridesPending(t *testing.T) {
	p := fragmentsProvider("ok")
	s := newTestSession(p)
	s.SetAttachment(&provider.Attachment{Data: []byte{1}, MIMEType: "image/png"})
	explicit := &provider.Attachment{Data: []byte{2}, MIMEType: "image/jpeg"}

	h, err := s.Submit(context.Background(), "carte", explicit)
	require.NoError(t, err)
	require.Nil(t, s.PendingAttachment())
	_, err = h.Wait()
	require.NoError(t, err)
	require.Equal(t, explicit, p.Requests()[0].Attachment)
}

func TestSession_EmptySubmissionIsRejected(t *testing.T) {
	p := fragmentsProvider("ok")
	s := newTestSession(p)

	_, err := s.Submit(context.Background(), "", nil)
	require.ErrorIs(t, err, ErrEmptySubmission)
	_, err = s.Submit(context.Background(), "  \n ", nil)
	require.ErrorIs(t, err, ErrEmptySubmission)
	require.Len(t, s.Snapshot(), 1)
	require.False(t, s.IsRunning())
	require.Empty(t, p.Requests())

	s.SetAttachment(&provider.Attachment{Data: []byte{1}, MIMEType: "image/png"})
	h, err := s.Submit(context.Background(), "", nil)
	require.NoError(t, err)
	_, err = h.Wait()
	require.NoError(t, err)
	require.Len(t, s.Snapshot(), 3)
}

func TestSession_CancelActiveKeepsPartialTextWithoutFallback(t *testing.T) {
	p, streams := manualProvider(true)
	rec := &recorder{}
	s := newTestSession(p, WithEventSinks(rec))

	require.ErrorIs(t, s.CancelActive(), ErrSessionNoActive)

	h, err := s.Submit(context.Background(), "question", nil)
	require.NoError(t, err)
	stream := <-streams
	stream.fragments <- "Le "
	require.Eventually(t, func() bool { return textOf(s, 2) == "Le " }, waitFor, tick)

	require.NoError(t, s.CancelActive())
	text, err := h.Wait()
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "Le ", text)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, "Le ", snap[2].Text)
	require.False(t, snap[2].Pending)
	require.False(t, s.IsRunning())

	ev, ok := rec.Last().(*events.EventInterrupt)
	require.True(t, ok)
	require.Equal(t, "Le ", ev.Text)
}

func TestSession_TimeoutCountsAsFailure(t *testing.T) {
	p, _ := manualProvider(true)
	s := newTestSession(p, WithTimeout(50*time.Millisecond))

	h, err := s.Submit(context.Background(), "question", nil)
	require.NoError(t, err)
	_, err = h.Wait()
	require.ErrorIs(t, err, context.DeadlineExceeded)

	snap := s.Snapshot()
	require.Len(t, snap, 4)
	require.Equal(t, FallbackMessage, snap[3].Text)
}

func TestSession_EventOrderAndContextSinks(t *testing.T) {
	rec := &recorder{}
	ctxRec := &recorder{}
	s := newTestSession(fragmentsProvider("a", "b"), WithEventSinks(rec))

	ctx := events.WithEventSinks(context.Background(), ctxRec)
	h, err := s.Submit(ctx, "question", nil)
	require.NoError(t, err)
	_, err = h.Wait()
	require.NoError(t, err)

	want := []events.EventType{
		events.EventTypeStart,
		events.EventTypePartialCompletion,
		events.EventTypePartialCompletion,
		events.EventTypeFinal,
	}
	require.Eventually(t, func() bool { return len(rec.Types()) == len(want) }, waitFor, tick)
	require.Equal(t, want, rec.Types())
	require.Equal(t, want, ctxRec.Types())

	final, ok := rec.Last().(*events.EventFinal)
	require.True(t, ok)
	require.Equal(t, "ab", final.Text)
	md := final.Metadata()
	require.Equal(t, s.SessionID, md.SessionID)
	require.Equal(t, h.InferenceID, md.InferenceID)
	require.Equal(t, h.PendingTurnID, md.TurnID)
	require.NotNil(t, md.DurationMs)

	// session-level events are not sent to request sinks
	s.Reset()
	require.Equal(t, events.EventTypeReset, rec.Last().Type())
	require.Len(t, ctxRec.Types(), len(want))
}

func TestSession_SinkMayCallBackIntoSession(t *testing.T) {
	var s *Session
	seen := make(chan int, 16)
	sink := events.SinkFunc(func(e events.Event) error {
		// reading state from inside a sink must not deadlock
		seen <- len(s.Snapshot())
		_ = s.IsRunning()
		return nil
	})
	s = newTestSession(fragmentsProvider("x"), WithEventSinks(sink))

	h, err := s.Submit(context.Background(), "question", nil)
	require.NoError(t, err)
	_, err = h.Wait()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(seen) == 3 }, waitFor, tick)
}

func TestSession_NilAndMisconfigured(t *testing.T) {
	var s *Session
	_, err := s.Submit(context.Background(), "x", nil)
	require.ErrorIs(t, err, ErrSessionNil)
	require.False(t, s.IsRunning())
	require.ErrorIs(t, s.CancelActive(), ErrSessionNil)

	s = NewSession(nil)
	_, err = s.Submit(context.Background(), "x", nil)
	require.ErrorIs(t, err, ErrProviderNil)

	var h *ExecutionHandle
	_, err = h.Wait()
	require.ErrorIs(t, err, ErrExecutionHandleNil)
	require.False(t, h.IsRunning())
	h.Cancel()
}

func TestGreeting(t *testing.T) {
	s := NewSession(fragmentsProvider(), WithSubject("Géographie"))
	require.Equal(t,
		"Bonjour ! Je suis ton assistant en Géographie. Comment puis-je t'aider à comprendre le cours aujourd'hui ?",
		s.Snapshot()[0].Text)
}

func TestSession_ClearAttachment(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(fragmentsProvider(), WithEventSinks(rec))
	s.SetAttachment(&provider.Attachment{Data: []byte{1, 2}, MIMEType: "image/png"})
	s.ClearAttachment()
	s.ClearAttachment()
	require.Nil(t, s.PendingAttachment())
	require.Equal(t, []events.EventType{events.EventTypeAttachment, events.EventTypeAttachment}, rec.Types())
	ev, ok := rec.Last().(*events.EventAttachment)
	require.True(t, ok)
	require.True(t, ev.Cleared())
}
