package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/appui/pkg/content"
	"github.com/go-go-golems/appui/pkg/homework"
	"github.com/go-go-golems/appui/pkg/profiles"
	"github.com/spf13/cobra"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

func newDashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summary of progress, chapters and pending homework",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.profiles.Profile(cmd.Context())
			if err != nil {
				return err
			}
			l, err := a.homework.List(cmd.Context())
			if err != nil {
				return err
			}
			chapters := a.chapters.List(content.Filter{})
			printDashboard(cmd.OutOrStdout(), p, a.chapters.Badges(), chapters, l, time.Now())
			return nil
		},
	}
}

func printDashboard(
	w io.Writer,
	p *profiles.Profile,
	badges []content.Badge,
	chapters []*content.Chapter,
	l []*homework.Homework,
	now time.Time,
) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Bonjour "+p.Name+" !"))
	printProfile(w, p, badges)

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, titleStyle.Render("Chapitres"))
	if len(chapters) == 0 {
		_, _ = fmt.Fprintln(w, "Aucun chapitre.")
	}
	for _, c := range chapters {
		mark := " "
		if p.HasCompleted(c.ID) {
			mark = "✓"
		}
		_, _ = fmt.Fprintf(w, "[%s] %s (%s, %d XP)\n", mark, c.Title, c.Subject, c.XPReward)
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, titleStyle.Render("Devoirs à faire"))
	pending := 0
	for _, h := range l {
		if h.Completed {
			continue
		}
		pending++
		_, _ = fmt.Fprintf(w, "- %s : %s (%s)\n", h.Subject, h.Description, statusLabel(h, now))
	}
	if pending == 0 {
		_, _ = fmt.Fprintln(w, "Rien à faire, bravo !")
	}
}
