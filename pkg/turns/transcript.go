package turns

import (
	"errors"
)

var (
	ErrTurnNotFound      = errors.New("turn not found in transcript")
	ErrTurnNotPending    = errors.New("turn is not pending")
	ErrPendingTurnExists = errors.New("transcript already has a pending turn")
)

// Transcript is the ordered, append-only list of turns of one tutoring screen.
//
// A Transcript is not safe for concurrent use; the owning session serializes access.
// At most one turn is pending at a time, and it is always the latest tutor turn.
type Transcript struct {
	turns   []Turn
	index   map[string]int
	pending string
}

// NewTranscript creates a transcript seeded with a single synthetic tutor turn.
func NewTranscript(greeting string) *Transcript {
	t := &Transcript{index: map[string]int{}}
	t.append(Turn{Speaker: SpeakerTutor, Text: greeting})
	return t
}

func (t *Transcript) append(turn Turn) Turn {
	if turn.ID == "" {
		turn.ID = newTurnID()
	}
	t.index[turn.ID] = len(t.turns)
	t.turns = append(t.turns, turn)
	return turn
}

// AppendStudent appends an immutable student turn.
func (t *Transcript) AppendStudent(text string, hasAttachment bool) Turn {
	return t.append(Turn{Speaker: SpeakerStudent, Text: text, HasAttachment: hasAttachment})
}

// AppendTutor appends a finalized tutor turn.
func (t *Transcript) AppendTutor(text string) Turn {
	return t.append(Turn{Speaker: SpeakerTutor, Text: text})
}

// AppendPendingTutor appends an empty tutor turn that accepts fragments until finalized.
func (t *Transcript) AppendPendingTutor() (Turn, error) {
	if t.pending != "" {
		return Turn{}, ErrPendingTurnExists
	}
	turn := t.append(Turn{Speaker: SpeakerTutor, Pending: true})
	t.pending = turn.ID
	return turn, nil
}

// AppendFragment appends text to the pending turn identified by id and returns the
// accumulated text.
func (t *Transcript) AppendFragment(id string, fragment string) (string, error) {
	i, ok := t.index[id]
	if !ok {
		return "", ErrTurnNotFound
	}
	if t.pending != id {
		return "", ErrTurnNotPending
	}
	t.turns[i].Text += fragment
	return t.turns[i].Text, nil
}

// Finalize freezes the pending turn identified by id.
func (t *Transcript) Finalize(id string) (Turn, error) {
	i, ok := t.index[id]
	if !ok {
		return Turn{}, ErrTurnNotFound
	}
	if t.pending != id {
		return Turn{}, ErrTurnNotPending
	}
	t.turns[i].Pending = false
	t.pending = ""
	return t.turns[i], nil
}

// Contains reports whether a turn with the given id belongs to this transcript.
func (t *Transcript) Contains(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Get returns the turn with the given id.
func (t *Transcript) Get(id string) (Turn, bool) {
	i, ok := t.index[id]
	if !ok {
		return Turn{}, false
	}
	return t.turns[i], true
}

// PendingID returns the id of the pending turn, or "" when none is pending.
func (t *Transcript) PendingID() string {
	return t.pending
}

func (t *Transcript) Len() int {
	return len(t.turns)
}

// Snapshot returns a copy of the turns that later mutations cannot affect.
func (t *Transcript) Snapshot() []Turn {
	ret := make([]Turn, len(t.turns))
	copy(ret, t.turns)
	return ret
}

// History returns the transcript as (speaker, text) exchanges, in order.
func (t *Transcript) History() []Exchange {
	ret := make([]Exchange, 0, len(t.turns))
	for _, turn := range t.turns {
		ret = append(ret, Exchange{Speaker: turn.Speaker, Text: turn.Text})
	}
	return ret
}

// LastTutor returns the most recent tutor turn with non-empty text.
func (t *Transcript) LastTutor() (Turn, bool) {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].IsTutor() && t.turns[i].Text != "" {
			return t.turns[i], true
		}
	}
	return Turn{}, false
}
