package ui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/appui/pkg/events"
)

// Sender is implemented by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Forward returns a router handler that decodes session events and sends them to p as
// EventMsg. The message is acked once p has taken it, so the publisher hands over the
// next event only after this one reached the program.
func Forward(p Sender) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}
		p.Send(EventMsg{Event: e})
		return nil
	}
}
