package main

import (
	"context"
	"os"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/appui/pkg/events"
	"github.com/go-go-golems/appui/pkg/helpers"
	"github.com/go-go-golems/appui/pkg/speech"
	"github.com/go-go-golems/appui/pkg/turns"
	"github.com/go-go-golems/appui/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const chatTopic = "chat"

func newChatCommand() *cobra.Command {
	var chapterID, subject, level string
	var printTranscript bool
	var dumpEvents string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the tutoring chat for a chapter or a subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), chapterID, subject, level, printTranscript, dumpEvents)
		},
	}
	cmd.Flags().StringVar(&chapterID, "chapter", "", "Chapter to discuss (sets subject and level)")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject (Histoire, Géographie, EMC)")
	cmd.Flags().StringVar(&level, "level", "", "School level (default: the profile grade)")
	cmd.Flags().BoolVar(&printTranscript, "print-transcript", false, "Print the conversation when the chat is closed")
	cmd.Flags().StringVar(&dumpEvents, "dump-events", "", "Append every session event as JSON to this file")
	return cmd
}

func runChat(ctx context.Context, chapterID, subject, level string, printTranscript bool, dumpEvents string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	target, err := a.resolveTarget(ctx, chapterID, subject, level)
	if err != nil {
		return err
	}
	profile, err := a.profiles.Profile(ctx)
	if err != nil {
		return err
	}

	routerOptions := []events.EventRouterOption{events.WithLogger(helpers.NewWatermill(log.Logger))}
	if dumpEvents != "" {
		f, err := os.OpenFile(dumpEvents, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "opening event dump file")
		}
		defer func() {
			_ = f.Close()
		}()
		routerOptions = append(routerOptions, events.WithDumpWriter(f), events.WithVerbose(viper.GetBool("verbose")))
	}
	router, err := events.NewEventRouter(routerOptions...)
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()

	sess, err := newTutorSession(target, router.NewSink(chatTopic))
	if err != nil {
		return err
	}

	var p *tea.Program
	speaker := speech.NewSpeaker(
		speech.NewCommandPlayer(viper.GetString("tts-command")),
		speech.WithOnChange(func(speaking bool) {
			if p != nil {
				p.Send(ui.SpeakingMsg{Speaking: speaking})
			}
		}),
	)
	defer speaker.Cancel()

	model := ui.NewModel(sess,
		ui.WithSpeaker(speaker),
		ui.WithDyslexiaMode(profile.DyslexiaMode),
		ui.WithMarkdownStyle(viper.GetString("markdown-style")),
	)

	options := []tea.ProgramOption{
		tea.WithMouseCellMotion(),
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		options = append(options, tea.WithOutput(os.Stderr))
	} else {
		options = append(options, tea.WithAltScreen())
	}
	p = tea.NewProgram(model, options...)

	router.AddHandler("ui", chatTopic, ui.Forward(p))
	router.AddHandler("progress", chatTopic, func(msg *message.Message) error {
		defer msg.Ack()
		e, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}
		if e.Type() != events.EventTypeFinal {
			return nil
		}
		for _, b := range a.recordProgress(ctx, target.Subject) {
			log.Info().Str("badge", b.Name).Msg("New badge")
		}
		return nil
	})
	if dumpEvents != "" {
		router.AddHandler("dump", chatTopic, router.DumpRawEvents)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg := errgroup.Group{}
	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		_, err := p.Run()
		if sess.IsRunning() {
			_ = sess.CancelActive()
		}
		return err
	})

	if err := eg.Wait(); err != nil {
		return err
	}
	if printTranscript {
		turns.FprintTurns(os.Stdout, sess.Snapshot())
	}
	return nil
}
