// Package ui is the terminal tutoring screen.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/appui/pkg/events"
	"github.com/go-go-golems/appui/pkg/inference/prompt"
	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/go-go-golems/appui/pkg/inference/session"
	"github.com/go-go-golems/appui/pkg/turns"
	"github.com/muesli/reflow/wordwrap"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const ThinkingIndicator = "L'IA réfléchit..."

// TutorSession is what the screen needs from a tutoring session.
type TutorSession interface {
	Submit(ctx context.Context, text string, attachment *provider.Attachment) (*session.ExecutionHandle, error)
	Reset()
	CancelActive() error
	SetAttachment(a *provider.Attachment)
	ClearAttachment()
	IsRunning() bool
	Snapshot() []turns.Turn
	LastTutorText() (string, bool)
	Subject() string
	Level() string
}

type Speaker interface {
	Speak(text string) (bool, error)
	Cancel()
}

// EventMsg carries a session event into the program, see Forward.
type EventMsg struct {
	Event events.Event
}

// SpeakingMsg reports that read-aloud playback started or stopped.
type SpeakingMsg struct {
	Speaking bool
}

type errMsg error

type noticeMsg string

// submitFailedMsg reports a Submit that did not start a request. err is nil for the
// guards that are ignored silently.
type submitFailedMsg struct {
	err error
}

type Renderer interface {
	Render(in string) (string, error)
}

type Model struct {
	session TutorSession
	speaker Speaker

	viewport viewport.Model
	textArea textarea.Model
	help     help.Model
	keyMap   KeyMap
	style    *Style

	markdownStyle string
	renderer      Renderer
	dyslexia      bool

	transcript []turns.Turn
	thinking   bool
	speaking   bool
	attachment string
	notice     string
	err        error

	width  int
	height int
}

type ModelOption func(*Model)

func WithSpeaker(s Speaker) ModelOption {
	return func(m *Model) {
		m.speaker = s
	}
}

// WithDyslexiaMode renders tutor answers as plain, double spaced text.
func WithDyslexiaMode(enabled bool) ModelOption {
	return func(m *Model) {
		m.dyslexia = enabled
	}
}

// WithMarkdownStyle selects the glamour style, "auto" picks one from the terminal.
func WithMarkdownStyle(style string) ModelOption {
	return func(m *Model) {
		m.markdownStyle = style
	}
}

func WithKeyMap(k KeyMap) ModelOption {
	return func(m *Model) {
		m.keyMap = k
	}
}

func NewModel(s TutorSession, options ...ModelOption) Model {
	ret := Model{
		session:       s,
		style:         DefaultStyles(),
		keyMap:        DefaultKeyMap,
		markdownStyle: "auto",
		viewport:      viewport.New(0, 0),
		help:          help.New(),
		transcript:    s.Snapshot(),
		thinking:      s.IsRunning(),
		width:         80,
		height:        24,
	}
	for _, o := range options {
		o(&ret)
	}

	ret.textArea = textarea.New()
	ret.textArea.Placeholder = "Pose ta question, ou /image <chemin> pour joindre un document..."
	ret.textArea.ShowLineNumbers = false
	ret.textArea.KeyMap.InsertNewline.SetEnabled(false)
	ret.textArea.SetHeight(3)
	ret.textArea.Focus()

	ret.recomputeSize()
	return ret
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Transcript() []turns.Turn { return m.transcript }

func (m Model) IsThinking() bool { return m.thinking }

func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			s, sp := m.session, m.speaker
			return m, tea.Sequence(func() tea.Msg {
				if sp != nil {
					sp.Cancel()
				}
				if s.IsRunning() {
					_ = s.CancelActive()
				}
				return nil
			}, tea.Quit)

		case key.Matches(msg, m.keyMap.SubmitMessage):
			return m, m.submit()

		case key.Matches(msg, m.keyMap.ResetSession):
			m.err = nil
			m.notice = ""
			return m, m.reset()

		case key.Matches(msg, m.keyMap.ReadAloud):
			return m, m.readAloud()

		case key.Matches(msg, m.keyMap.CancelCompletion):
			if m.thinking {
				s := m.session
				return m, func() tea.Msg {
					if err := s.CancelActive(); err != nil && !errors.Is(err, session.ErrSessionNoActive) {
						return errMsg(err)
					}
					return nil
				}
			}
			return m, nil

		case key.Matches(msg, m.keyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.recomputeSize()
			return m, nil

		case key.Matches(msg, m.keyMap.ScrollUp), key.Matches(msg, m.keyMap.ScrollDown):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		default:
			m.textArea, cmd = m.textArea.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer = nil
		m.recomputeSize()

	case EventMsg:
		m.applyEvent(msg.Event)
		m.refresh()

	case SpeakingMsg:
		m.speaking = msg.Speaking

	case submitFailedMsg:
		// nothing started unless another request is still running
		m.thinking = m.session.IsRunning()
		if msg.err != nil {
			m.err = msg.err
			m.recomputeSize()
		}

	case noticeMsg:
		m.notice = string(msg)
		m.err = nil

	case errMsg:
		m.err = msg
		m.recomputeSize()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) applyEvent(e events.Event) {
	if tr := e.Transcript(); tr != nil {
		m.transcript = tr
	}

	switch e_ := e.(type) {
	case *events.EventStart:
		m.thinking = true
		m.err = nil
		m.notice = ""
	case *events.EventPartialCompletion:
		m.thinking = true
	case *events.EventFinal:
		m.thinking = false
	case *events.EventInterrupt:
		m.thinking = false
		m.notice = "Réponse interrompue."
	case *events.EventError:
		m.thinking = false
		m.err = errors.New(e_.ErrorString)
	case *events.EventReset:
		m.thinking = false
	case *events.EventAttachment:
		if e_.Cleared() {
			m.attachment = ""
		} else {
			m.attachment = fmt.Sprintf("%s, %s", e_.MIMEType, humanSize(e_.Size))
		}
	}
}

// submit handles the input box: slash commands, or a question for the tutor.
func (m *Model) submit() tea.Cmd {
	value := strings.TrimSpace(m.textArea.Value())
	s := m.session

	switch {
	case value == "/noimage":
		m.textArea.Reset()
		m.attachment = ""
		return func() tea.Msg {
			s.ClearAttachment()
			return noticeMsg("Image retirée.")
		}

	case strings.HasPrefix(value, "/image"):
		path := strings.TrimSpace(strings.TrimPrefix(value, "/image"))
		if path == "" {
			m.err = errors.New("usage : /image <chemin>")
			return nil
		}
		m.textArea.Reset()
		return func() tea.Msg {
			a, err := provider.AttachmentFromFile(path)
			if err != nil {
				return errMsg(err)
			}
			s.SetAttachment(a)
			return noticeMsg("Image prête, elle sera envoyée avec ta prochaine question.")
		}
	}

	if m.thinking {
		return nil
	}
	if value == "" && m.attachment == "" {
		return nil
	}

	m.textArea.Reset()
	m.thinking = true
	m.err = nil
	m.notice = ""
	return func() tea.Msg {
		_, err := s.Submit(context.Background(), value, nil)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, session.ErrSessionAlreadyActive), errors.Is(err, session.ErrEmptySubmission):
			log.Debug().Err(err).Msg("Submission ignored")
			return submitFailedMsg{}
		default:
			return submitFailedMsg{err: err}
		}
	}
}

func (m *Model) reset() tea.Cmd {
	s, sp := m.session, m.speaker
	return func() tea.Msg {
		if sp != nil {
			sp.Cancel()
		}
		s.Reset()
		return nil
	}
}

func (m *Model) readAloud() tea.Cmd {
	if m.speaker == nil {
		return nil
	}
	sp := m.speaker
	text, ok := m.session.LastTutorText()
	return func() tea.Msg {
		if !ok {
			return nil
		}
		if _, err := sp.Speak(text); err != nil {
			return errMsg(err)
		}
		return nil
	}
}

func (m *Model) recomputeSize() {
	headerHeight := lipgloss.Height(m.headerView())
	footerHeight := lipgloss.Height(m.footerView())
	m.textArea.SetWidth(max(m.width-2, 10))
	inputHeight := lipgloss.Height(m.inputView())

	h := m.height - headerHeight - footerHeight - inputHeight
	if h < 0 {
		h = 0
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.messageView())
	m.viewport.GotoBottom()
}

func (m *Model) markdown() Renderer {
	if m.renderer != nil {
		return m.renderer
	}
	styleOption := glamour.WithAutoStyle()
	if m.markdownStyle != "" && m.markdownStyle != "auto" {
		styleOption = glamour.WithStandardStyle(m.markdownStyle)
	}
	r, err := glamour.NewTermRenderer(styleOption, glamour.WithWordWrap(max(m.width-4, 20)))
	if err != nil {
		log.Warn().Err(err).Msg("Could not create markdown renderer")
		return nil
	}
	m.renderer = r
	return r
}

// renderTutorText renders markdown, or plain double spaced text in dyslexia mode.
func (m *Model) renderTutorText(text string) string {
	width := max(m.width-4, 20)
	if m.dyslexia {
		wrapped := wordwrap.String(text, width)
		return strings.ReplaceAll(wrapped, "\n", "\n\n")
	}
	if r := m.markdown(); r != nil {
		out, err := r.Render(text)
		if err == nil {
			return strings.Trim(out, "\n")
		}
		log.Debug().Err(err).Msg("Markdown rendering failed")
	}
	return wordwrap.String(text, width)
}

func (m *Model) messageView() string {
	var sb strings.Builder
	width := max(m.width-4, 20)
	for _, t := range m.transcript {
		if t.IsStudent() {
			label := prompt.StudentLabel
			if t.HasAttachment {
				label += " 📎"
			}
			sb.WriteString(m.style.StudentLabel.Render(label))
			sb.WriteString("\n")
			sb.WriteString(m.style.Message.Render(wordwrap.String(t.Text, width)))
		} else {
			if t.Pending && t.Text == "" {
				continue
			}
			sb.WriteString(m.style.TutorLabel.Render(prompt.TutorLabel))
			sb.WriteString("\n")
			sb.WriteString(m.style.Message.Render(m.renderTutorText(t.Text)))
		}
		sb.WriteString("\n\n")
	}
	if m.thinking {
		sb.WriteString(m.style.Thinking.Render(ThinkingIndicator))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) headerView() string {
	title := fmt.Sprintf("L'Appui Pédagogique · %s · %s", m.session.Subject(), m.session.Level())
	return m.style.Header.Render(title)
}

func (m Model) inputView() string {
	return m.style.Input.Render(m.textArea.View())
}

func (m Model) footerView() string {
	status := []string{}
	if m.attachment != "" {
		status = append(status, "📎 "+m.attachment)
	}
	if m.speaking {
		status = append(status, "🔊 lecture en cours")
	}
	if m.notice != "" {
		status = append(status, m.notice)
	}
	lines := []string{}
	if len(status) > 0 {
		lines = append(lines, m.style.Status.Render(strings.Join(status, " · ")))
	}
	if m.err != nil {
		lines = append(lines, m.style.Error.Render("Erreur : "+m.err.Error()))
	}
	lines = append(lines, m.help.View(m.keyMap))
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.inputView() + "\n" + m.footerView()
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f Mo", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%d Ko", n>>10)
	default:
		return fmt.Sprintf("%d o", n)
	}
}
