package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/appui/pkg/events"
	"github.com/go-go-golems/appui/pkg/inference/provider"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAskCommand() *cobra.Command {
	var chapterID, subject, level, imagePath string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the tutor a single question and print the answer",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), imagePath, chapterID, subject, level)
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "Image to send with the question")
	cmd.Flags().StringVar(&chapterID, "chapter", "", "Chapter the question is about")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject (Histoire, Géographie, EMC)")
	cmd.Flags().StringVar(&level, "level", "", "School level (default: the profile grade)")
	return cmd
}

func runAsk(ctx context.Context, w io.Writer, question, imagePath, chapterID, subject, level string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	target, err := a.resolveTarget(ctx, chapterID, subject, level)
	if err != nil {
		return err
	}

	var attachment *provider.Attachment
	if imagePath != "" {
		attachment, err = provider.AttachmentFromFile(imagePath)
		if err != nil {
			return err
		}
	}

	// on a terminal the answer is rendered once complete, otherwise it is streamed raw
	isTerminal := isatty.IsTerminal(os.Stdout.Fd())
	var sinks []events.EventSink
	if !isTerminal {
		sinks = append(sinks, events.SinkFunc(func(e events.Event) error {
			if p, ok := e.(*events.EventPartialCompletion); ok {
				_, err := io.WriteString(w, p.Delta)
				return err
			}
			return nil
		}))
	}

	sess, err := newTutorSession(target, sinks...)
	if err != nil {
		return err
	}

	handle, err := sess.Submit(ctx, question, attachment)
	if err != nil {
		return err
	}
	text, runErr := handle.Wait()
	if runErr != nil {
		// the transcript ends with the fallback answer
		text, _ = sess.LastTutorText()
	}

	if isTerminal {
		out, err := glamour.Render(text, markdownStyle())
		if err != nil {
			out = text
		}
		_, _ = fmt.Fprint(w, out)
	} else if runErr != nil {
		_, _ = fmt.Fprintln(w, text)
	} else {
		_, _ = fmt.Fprintln(w)
	}

	if runErr != nil {
		return runErr
	}
	for _, b := range a.recordProgress(ctx, target.Subject) {
		_, _ = fmt.Fprintf(w, "\nNouveau badge : %s %s\n", b.Icon, b.Name)
	}
	return nil
}

// markdownStyle maps the markdown-style setting to a glamour style name.
func markdownStyle() string {
	s := viper.GetString("markdown-style")
	if s == "" || s == "auto" {
		if isatty.IsTerminal(os.Stdout.Fd()) {
			return "dark"
		}
		return "notty"
	}
	return s
}
