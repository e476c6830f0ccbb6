package turns

import (
	"fmt"
	"io"
	"strings"
)

// PrettyPrinter renders a list of turns in a configurable human-friendly way.
type PrettyPrinter struct {
	IncludeIDs   bool
	StudentLabel string
	TutorLabel   string
	IndentSpaces int
	MaxTextLines int // 0 => unlimited
}

// PrintOption configures a PrettyPrinter.
type PrintOption func(*PrettyPrinter)

// WithIDs toggles inclusion of turn IDs.
func WithIDs(include bool) PrintOption { return func(p *PrettyPrinter) { p.IncludeIDs = include } }

// WithLabels overrides the speaker labels.
func WithLabels(student, tutor string) PrintOption {
	return func(p *PrettyPrinter) {
		p.StudentLabel = student
		p.TutorLabel = tutor
	}
}

// WithIndent sets the number of spaces used for indentation.
func WithIndent(spaces int) PrintOption { return func(p *PrettyPrinter) { p.IndentSpaces = spaces } }

// WithMaxTextLines limits how many lines of text to print per turn (0 = unlimited).
func WithMaxTextLines(n int) PrintOption { return func(p *PrettyPrinter) { p.MaxTextLines = n } }

func NewPrettyPrinter(opts ...PrintOption) *PrettyPrinter {
	p := &PrettyPrinter{
		StudentLabel: "Élève",
		TutorLabel:   "Tuteur",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FprintTurns prints the turns using an ephemeral PrettyPrinter configured via options.
func FprintTurns(w io.Writer, turns []Turn, opts ...PrintOption) {
	NewPrettyPrinter(opts...).Fprint(w, turns)
}

func (p *PrettyPrinter) Label(s Speaker) string {
	if s == SpeakerStudent {
		return p.StudentLabel
	}
	return p.TutorLabel
}

func (p *PrettyPrinter) Fprint(w io.Writer, turns []Turn) {
	pad := strings.Repeat(" ", p.IndentSpaces)
	for i, t := range turns {
		prefix := pad
		if p.IncludeIDs {
			prefix = fmt.Sprintf("%s[%02d] id=%s ", pad, i, t.ID)
		}
		text := t.Text
		if p.MaxTextLines > 0 {
			lines := strings.Split(text, "\n")
			if len(lines) > p.MaxTextLines {
				text = strings.Join(lines[:p.MaxTextLines], "\n") + "\n…"
			}
		}
		if t.HasAttachment {
			text = "[Image envoyée] " + text
		}
		if t.Pending {
			text += " ▍"
		}
		_, _ = fmt.Fprintf(w, "%s%s: %s\n", prefix, p.Label(t.Speaker), text)
	}
}
