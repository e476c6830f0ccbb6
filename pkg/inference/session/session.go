package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/appui/pkg/events"
	"github.com/go-go-golems/appui/pkg/helpers"
	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/turns"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionNil           = errors.New("session is nil")
	ErrProviderNil          = errors.New("session has no generation provider")
	ErrSessionAlreadyActive = errors.New("session already has an active request")
	ErrSessionNoActive      = errors.New("session has no active request")
	ErrEmptySubmission      = errors.New("nothing to submit: empty text and no attachment")
	// ErrSessionReset is returned by ExecutionHandle.Wait when a reset superseded the request.
	ErrSessionReset = errors.New("request superseded by a session reset")
)

const (
	ResetMessage    = "Conversation réinitialisée."
	FallbackMessage = "Désolé, j'ai rencontré une erreur. Réessaie s'il te plaît."

	DefaultTemperature = 0.7
	DefaultTimeout     = 2 * time.Minute
)

// Greeting is the synthetic tutor turn a fresh transcript starts with.
func Greeting(subject string) string {
	return fmt.Sprintf("Bonjour ! Je suis ton assistant en %s. Comment puis-je t'aider à comprendre le cours aujourd'hui ?", subject)
}

type queuedEvent struct {
	event events.Event
	// extra are the context sinks of the request that produced the event
	extra []events.EventSink
}

type request struct {
	handle *ExecutionHandle
	sinks  []events.EventSink
	start  time.Time
}

// Session is the tutoring session engine of one tutoring screen.
//
// It owns:
// - the transcript, seeded with a tutor greeting
// - the invariant that only one request is active at a time
// - the pending attachment slot
//
// All mutations are serialized by mu. Events are queued under mu and delivered in
// order by a single flusher outside of it, so sinks may call back into the session.
type Session struct {
	SessionID string

	provider          provider.Provider
	level             string
	subject           string
	temperature       float64
	systemInstruction string
	timeout           time.Duration
	maxContextTokens  int
	greeting          string
	sinks             []events.EventSink

	mu         sync.Mutex
	transcript *turns.Transcript
	active     *request
	attachment *provider.Attachment

	outbox   []queuedEvent
	flushing bool
}

type Option func(*Session)

func WithLevel(level string) Option {
	return func(s *Session) {
		s.level = level
	}
}

func WithSubject(subject string) Option {
	return func(s *Session) {
		s.subject = subject
	}
}

func WithTemperature(t float64) Option {
	return func(s *Session) {
		s.temperature = t
	}
}

// WithSystemInstruction overrides the persona sent to the provider. Empty means
// the provider's default.
func WithSystemInstruction(instruction string) Option {
	return func(s *Session) {
		s.systemInstruction = instruction
	}
}

// WithTimeout bounds every request. A timed out request fails like any provider
// error. 0 disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

func WithMaxContextTokens(n int) Option {
	return func(s *Session) {
		s.maxContextTokens = n
	}
}

// WithGreeting replaces the default greeting derived from the subject.
func WithGreeting(greeting string) Option {
	return func(s *Session) {
		s.greeting = greeting
	}
}

func WithEventSinks(sinks ...events.EventSink) Option {
	return func(s *Session) {
		s.sinks = append(s.sinks, sinks...)
	}
}

func WithSessionID(id string) Option {
	return func(s *Session) {
		s.SessionID = id
	}
}

// NewSession constructs a Session with a generated SessionID and a transcript seeded
// with the greeting.
func NewSession(p provider.Provider, options ...Option) *Session {
	s := &Session{
		SessionID:   uuid.NewString(),
		provider:    p,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
	}
	for _, o := range options {
		o(s)
	}
	if s.greeting == "" {
		s.greeting = Greeting(s.subject)
	}
	s.transcript = turns.NewTranscript(s.greeting)
	return s
}

func (s *Session) Level() string {
	return s.level
}

func (s *Session) Subject() string {
	return s.subject
}

// IsRunning reports whether a request is active.
func (s *Session) IsRunning() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Snapshot returns a copy of the current transcript.
func (s *Session) Snapshot() []turns.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Snapshot()
}

// LastTutorText returns the text of the latest non-empty tutor turn.
func (s *Session) LastTutorText() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcript.LastTutor()
	return t.Text, ok
}

// SetAttachment fills the pending attachment slot, replacing any previous image.
func (s *Session) SetAttachment(a *provider.Attachment) {
	if a == nil {
		s.ClearAttachment()
		return
	}
	s.mu.Lock()
	s.attachment = a
	s.enqueue(events.NewAttachmentEvent(s.metadata(nil), s.transcript.Snapshot(), a.MIMEType, a.Size()), nil)
	s.mu.Unlock()
	s.flush()
}

func (s *Session) ClearAttachment() {
	s.mu.Lock()
	had := s.attachment != nil
	s.attachment = nil
	if had {
		s.enqueue(events.NewAttachmentEvent(s.metadata(nil), s.transcript.Snapshot(), "", 0), nil)
	}
	s.mu.Unlock()
	s.flush()
}

func (s *Session) PendingAttachment() *provider.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachment
}

// Submit appends the student turn and an empty pending tutor turn, then streams the
// provider's answer into the pending turn in the background.
//
// The attachment argument takes precedence over the pending attachment; the pending
// slot is emptied either way. Submit returns ErrSessionAlreadyActive while a request is
// running and ErrEmptySubmission when there is neither text nor an image. In both
// cases the transcript is left untouched.
//
// Event sinks attached to ctx with events.WithEventSinks receive this request's events
// in addition to the session sinks.
func (s *Session) Submit(ctx context.Context, text string, attachment *provider.Attachment) (*ExecutionHandle, error) {
	if s == nil {
		return nil, ErrSessionNil
	}
	if s.provider == nil {
		return nil, ErrProviderNil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		log.Debug().Str("session_id", s.SessionID).Msg("submit ignored: request already active")
		return nil, ErrSessionAlreadyActive
	}
	att := attachment
	if att == nil {
		att = s.attachment
	}
	if strings.TrimSpace(text) == "" && att == nil {
		s.mu.Unlock()
		log.Debug().Str("session_id", s.SessionID).Msg("submit ignored: empty submission")
		return nil, ErrEmptySubmission
	}

	history := s.transcript.History()
	student := s.transcript.AppendStudent(text, att != nil)
	pending, err := s.transcript.AppendPendingTutor()
	if err != nil {
		// idle sessions never hold a pending turn
		s.mu.Unlock()
		return nil, err
	}

	hadPending := s.attachment != nil
	s.attachment = nil

	inferenceID := uuid.NewString()
	runCtx := WithSessionMeta(ctx, s.SessionID, inferenceID, pending.ID)
	var cancel context.CancelFunc
	if s.timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}

	handle := newExecutionHandle(s.SessionID, inferenceID, student.ID, pending.ID, cancel)
	r := &request{
		handle: handle,
		sinks:  events.GetEventSinks(ctx),
		start:  time.Now(),
	}
	s.active = r

	if hadPending {
		s.enqueue(events.NewAttachmentEvent(s.metadata(nil), s.transcript.Snapshot(), "", 0), nil)
	}
	s.enqueue(events.NewStartEvent(s.metadata(r), s.transcript.Snapshot(), text, att != nil), r.sinks)
	s.mu.Unlock()

	req := &provider.Request{
		History:           history,
		Text:              text,
		Level:             s.level,
		Subject:           s.subject,
		Attachment:        att,
		SystemInstruction: s.systemInstruction,
		Temperature:       s.temperature,
		MaxContextTokens:  s.maxContextTokens,
	}

	log.Debug().
		Str("session_id", s.SessionID).
		Str("inference_id", inferenceID).
		Int("history", len(history)).
		Bool("attachment", att != nil).
		Msg("submitting tutor request")

	s.flush()
	go s.run(runCtx, r, req)

	return handle, nil
}

func (s *Session) run(ctx context.Context, r *request, req *provider.Request) {
	stream, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.finish(ctx, r, err)
		return
	}
	defer func() {
		_ = stream.Close()
	}()

	// unblock Recv for streams that only notice cancellation on Close
	go func() {
		select {
		case <-ctx.Done():
			_ = stream.Close()
		case <-r.handle.done:
		}
	}()

	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			s.finish(ctx, r, nil)
			return
		}
		if err != nil {
			s.finish(ctx, r, err)
			return
		}
		if fragment == "" {
			continue
		}
		if !s.appendFragment(r, fragment) {
			s.finish(ctx, r, nil)
			return
		}
	}
}

// appendFragment merges a fragment into the pending turn. It returns false when the
// request is no longer the session's active one.
func (s *Session) appendFragment(r *request, fragment string) bool {
	s.mu.Lock()
	if s.active != r || !s.transcript.Contains(r.handle.PendingTurnID) {
		s.mu.Unlock()
		log.Debug().Str("inference_id", r.handle.InferenceID).Msg("discarding stale fragment")
		return false
	}
	completion, err := s.transcript.AppendFragment(r.handle.PendingTurnID, fragment)
	if err != nil {
		s.mu.Unlock()
		log.Warn().Err(err).Str("inference_id", r.handle.InferenceID).Msg("could not merge fragment")
		return false
	}
	r.handle.setText(completion)
	s.enqueue(events.NewPartialCompletionEvent(s.metadata(r), s.transcript.Snapshot(), fragment, completion), r.sinks)
	s.mu.Unlock()
	s.flush()
	return true
}

func (s *Session) finish(ctx context.Context, r *request, runErr error) {
	h := r.handle

	s.mu.Lock()
	if s.active != r {
		s.mu.Unlock()
		log.Debug().Err(runErr).Str("inference_id", h.InferenceID).Msg("discarding result of superseded request")
		h.setResult(ErrSessionReset)
		return
	}
	s.active = nil

	switch ctx.Err() {
	case context.DeadlineExceeded:
		if runErr == nil || errors.Is(runErr, context.DeadlineExceeded) {
			runErr = fmt.Errorf("tutor request timed out after %s: %w", s.timeout, context.DeadlineExceeded)
		}
	case context.Canceled:
		runErr = context.Canceled
	}

	final, err := s.transcript.Finalize(h.PendingTurnID)
	if err != nil {
		log.Warn().Err(err).Str("inference_id", h.InferenceID).Msg("could not finalize pending turn")
	}
	md := s.metadata(r)
	md.DurationMs = helpers.Int64Pointer(time.Since(r.start).Milliseconds())

	switch {
	case errors.Is(runErr, context.Canceled):
		s.enqueue(events.NewInterruptEvent(md, s.transcript.Snapshot(), final.Text), r.sinks)
		log.Debug().Str("inference_id", h.InferenceID).Msg("tutor request interrupted")
	case runErr != nil:
		s.transcript.AppendTutor(FallbackMessage)
		s.enqueue(events.NewErrorEvent(md, s.transcript.Snapshot(), runErr, final.Text, FallbackMessage), r.sinks)
		log.Warn().Err(runErr).Str("inference_id", h.InferenceID).Msg("tutor request failed")
	default:
		s.enqueue(events.NewFinalEvent(md, s.transcript.Snapshot(), final.Text), r.sinks)
		log.Debug().Str("inference_id", h.InferenceID).Int("length", len(final.Text)).Msg("tutor request completed")
	}
	s.mu.Unlock()

	s.flush()
	h.setResult(runErr)
}

// Reset discards the transcript and starts over with a single acknowledgment turn.
// An in-flight request is canceled and its late results are dropped.
func (s *Session) Reset() {
	s.mu.Lock()
	r := s.active
	s.active = nil
	s.transcript = turns.NewTranscript(ResetMessage)
	canceled := ""
	if r != nil {
		canceled = r.handle.InferenceID
	}
	s.enqueue(events.NewResetEvent(s.metadata(nil), s.transcript.Snapshot(), canceled), nil)
	s.mu.Unlock()

	if r != nil {
		log.Debug().Str("inference_id", canceled).Msg("reset canceled active request")
		r.handle.Cancel()
	}
	s.flush()
}

// CancelActive interrupts the active request. The text streamed so far is kept and
// no fallback turn is added.
func (s *Session) CancelActive() error {
	if s == nil {
		return ErrSessionNil
	}
	s.mu.Lock()
	r := s.active
	s.mu.Unlock()
	if r == nil {
		return ErrSessionNoActive
	}
	r.handle.Cancel()
	return nil
}

// metadata must be called with mu held.
func (s *Session) metadata(r *request) events.EventMetadata {
	md := events.EventMetadata{
		ID:        uuid.New(),
		SessionID: s.SessionID,
		Subject:   s.subject,
		Level:     s.level,
	}
	if r != nil {
		md.InferenceID = r.handle.InferenceID
		md.TurnID = r.handle.PendingTurnID
		md.Temperature = helpers.Float64Pointer(s.temperature)
		if info, ok := s.provider.(provider.Info); ok {
			md.Provider = info.Name()
			md.Model = info.Model()
		}
	}
	return md
}

// enqueue must be called with mu held.
func (s *Session) enqueue(e events.Event, extra []events.EventSink) {
	s.outbox = append(s.outbox, queuedEvent{event: e, extra: extra})
}

// flush delivers queued events in order. Only one goroutine flushes at a time; the
// others leave their events to it.
func (s *Session) flush() {
	s.mu.Lock()
	if s.flushing {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	for len(s.outbox) > 0 {
		q := s.outbox[0]
		s.outbox[0] = queuedEvent{}
		s.outbox = s.outbox[1:]
		s.mu.Unlock()

		events.PublishEvent(s.sinks, q.event)
		events.PublishEvent(q.extra, q.event)

		s.mu.Lock()
	}
	s.flushing = false
	s.mu.Unlock()
}
