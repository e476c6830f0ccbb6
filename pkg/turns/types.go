package turns

import (
	"github.com/google/uuid"
)

// Speaker identifies who authored a Turn.
type Speaker string

const (
	SpeakerStudent Speaker = "student"
	SpeakerTutor   Speaker = "tutor"
)

// Turn is one message of a tutoring transcript.
//
// Student turns are immutable once created. A tutor turn may be pending, in which
// case its Text grows by appending streamed fragments until it is finalized.
type Turn struct {
	ID            string  `json:"id" yaml:"id"`
	Speaker       Speaker `json:"speaker" yaml:"speaker"`
	Text          string  `json:"text" yaml:"text"`
	HasAttachment bool    `json:"has_attachment,omitempty" yaml:"has_attachment,omitempty"`
	Pending       bool    `json:"pending,omitempty" yaml:"pending,omitempty"`
}

// Exchange is the (speaker, text) pair handed to generation providers as history.
type Exchange struct {
	Speaker Speaker `json:"speaker" yaml:"speaker"`
	Text    string  `json:"text" yaml:"text"`
}

func newTurnID() string {
	return uuid.NewString()
}

func (t Turn) IsStudent() bool { return t.Speaker == SpeakerStudent }

func (t Turn) IsTutor() bool { return t.Speaker == SpeakerTutor }
