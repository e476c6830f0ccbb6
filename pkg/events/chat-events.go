package events

import (
	"encoding/json"

	"github.com/go-go-golems/appui/pkg/turns"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeStart is published once the student turn and the pending tutor turn are appended.
	EventTypeStart             EventType = "start"
	EventTypePartialCompletion EventType = "partial"
	EventTypeFinal             EventType = "final"
	// EventTypeError carries the provider error; the transcript already holds the fallback turn.
	EventTypeError     EventType = "error"
	EventTypeInterrupt EventType = "interrupt"
	EventTypeReset     EventType = "reset"
	// EventTypeAttachment is published when the pending attachment is set or cleared.
	EventTypeAttachment EventType = "attachment"
)

// Event is what a tutoring session publishes to its sinks.
//
// Every event carries a copy of the transcript as it was when the event was produced,
// so observers can render from the event alone.
type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Transcript() []turns.Turn
	Payload() []byte
}

type EventImpl struct {
	Type_       EventType     `json:"type"`
	Metadata_   EventMetadata `json:"meta,omitempty"`
	Transcript_ []turns.Turn  `json:"transcript,omitempty"`

	// store payload if the event was deserialized from JSON (see NewEventFromJson), not further used
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Int("turns", len(e.Transcript_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Transcript() []turns.Turn {
	return e.Transcript_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

var _ Event = &EventImpl{}

type EventStart struct {
	EventImpl
	Text          string `json:"text"`
	HasAttachment bool   `json:"has_attachment,omitempty"`
}

func NewStartEvent(metadata EventMetadata, transcript []turns.Turn, text string, hasAttachment bool) *EventStart {
	return &EventStart{
		EventImpl: EventImpl{
			Type_:       EventTypeStart,
			Metadata_:   metadata,
			Transcript_: transcript,
		},
		Text:          text,
		HasAttachment: hasAttachment,
	}
}

var _ Event = &EventStart{}

// EventPartialCompletion is published for every fragment merged into the pending turn.
type EventPartialCompletion struct {
	EventImpl
	Delta string `json:"delta"`
	// Completion is the accumulated text of the pending turn so far
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, transcript []turns.Turn, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl: EventImpl{
			Type_:       EventTypePartialCompletion,
			Metadata_:   metadata,
			Transcript_: transcript,
		},
		Delta:      delta,
		Completion: completion,
	}
}

var _ Event = &EventPartialCompletion{}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, transcript []turns.Turn, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{
			Type_:       EventTypeFinal,
			Metadata_:   metadata,
			Transcript_: transcript,
		},
		Text: text,
	}
}

var _ Event = &EventFinal{}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
	// PartialText is whatever had been merged into the pending turn before the failure
	PartialText string `json:"partial_text,omitempty"`
	Fallback    string `json:"fallback"`
}

func NewErrorEvent(metadata EventMetadata, transcript []turns.Turn, err error, partialText string, fallback string) *EventError {
	errorString := ""
	if err != nil {
		errorString = err.Error()
	}
	return &EventError{
		EventImpl: EventImpl{
			Type_:       EventTypeError,
			Metadata_:   metadata,
			Transcript_: transcript,
		},
		ErrorString: errorString,
		PartialText: partialText,
		Fallback:    fallback,
	}
}

var _ Event = &EventError{}

type EventInterrupt struct {
	EventImpl
	Text string `json:"text"`
}

func NewInterruptEvent(metadata EventMetadata, transcript []turns.Turn, text string) *EventInterrupt {
	return &EventInterrupt{
		EventImpl: EventImpl{
			Type_:       EventTypeInterrupt,
			Metadata_:   metadata,
			Transcript_: transcript,
		},
		Text: text,
	}
}

var _ Event = &EventInterrupt{}

type EventReset struct {
	EventImpl
	// CanceledInferenceID is set when the reset superseded an in-flight request
	CanceledInferenceID string `json:"canceled_inference_id,omitempty"`
}

func NewResetEvent(metadata EventMetadata, transcript []turns.Turn, canceledInferenceID string) *EventReset {
	return &EventReset{
		EventImpl: EventImpl{
			Type_:       EventTypeReset,
			Metadata_:   metadata,
			Transcript_: transcript,
		},
		CanceledInferenceID: canceledInferenceID,
	}
}

var _ Event = &EventReset{}

type EventAttachment struct {
	EventImpl
	MIMEType string `json:"mime_type,omitempty"`
	Size     int    `json:"size,omitempty"`
}

func NewAttachmentEvent(metadata EventMetadata, transcript []turns.Turn, mimeType string, size int) *EventAttachment {
	return &EventAttachment{
		EventImpl: EventImpl{
			Type_:       EventTypeAttachment,
			Metadata_:   metadata,
			Transcript_: transcript,
		},
		MIMEType: mimeType,
		Size:     size,
	}
}

// Cleared reports whether the event signals an emptied attachment slot.
func (e *EventAttachment) Cleared() bool {
	return e.MIMEType == ""
}

var _ Event = &EventAttachment{}

// LLMInferenceData is the provider-side information attached to an inference.
type LLMInferenceData struct {
	Model       string   `json:"model,omitempty" yaml:"model,omitempty"`
	Provider    string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	DurationMs  *int64   `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
}

type EventMetadata struct {
	LLMInferenceData
	ID uuid.UUID `json:"message_id" yaml:"message_id"`
	// Correlation identifiers
	SessionID   string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	InferenceID string `json:"inference_id,omitempty" yaml:"inference_id,omitempty"`
	// TurnID is the pending tutor turn the event refers to
	TurnID  string `json:"turn_id,omitempty" yaml:"turn_id,omitempty"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Level   string `json:"level,omitempty" yaml:"level,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.SessionID != "" {
		e.Str("session_id", em.SessionID)
	}
	if em.InferenceID != "" {
		e.Str("inference_id", em.InferenceID)
	}
	if em.TurnID != "" {
		e.Str("turn_id", em.TurnID)
	}
	if em.Subject != "" {
		e.Str("subject", em.Subject)
	}
	if em.Level != "" {
		e.Str("level", em.Level)
	}
	if em.Provider != "" {
		e.Str("provider", em.Provider)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.Temperature != nil {
		e.Float64("temperature", *em.Temperature)
	}
	if em.DurationMs != nil {
		e.Int64("duration_ms", *em.DurationMs)
	}
}

// NewEventFromJson decodes an event published by a WatermillSink back into its typed form.
func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errors.New("empty event payload")
	}

	e.payload = b

	var ret Event
	var ok bool
	switch e.Type_ {
	case EventTypeStart:
		ret, ok = toEvent[EventStart](e)
	case EventTypePartialCompletion:
		ret, ok = toEvent[EventPartialCompletion](e)
	case EventTypeFinal:
		ret, ok = toEvent[EventFinal](e)
	case EventTypeError:
		ret, ok = toEvent[EventError](e)
	case EventTypeInterrupt:
		ret, ok = toEvent[EventInterrupt](e)
	case EventTypeReset:
		ret, ok = toEvent[EventReset](e)
	case EventTypeAttachment:
		ret, ok = toEvent[EventAttachment](e)
	default:
		return nil, errors.Errorf("unknown event type: %s", e.Type_)
	}
	if !ok {
		return nil, errors.Errorf("could not decode %s event", e.Type_)
	}
	return ret, nil
}

type payloadSetter interface {
	Event
	SetPayload([]byte)
}

func toEvent[T any, PT interface {
	*T
	payloadSetter
}](e Event) (Event, bool) {
	ret, ok := ToTypedEvent[T](e)
	if !ok || ret == nil {
		return nil, false
	}
	PT(ret).SetPayload(e.Payload())
	return PT(ret), true
}

func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil {
		return nil, false
	}

	return ret, true
}
