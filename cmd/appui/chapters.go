package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/go-go-golems/appui/pkg/content"
	"github.com/go-go-golems/appui/pkg/profiles"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newChaptersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chapters",
		Short: "Browse the course chapters",
	}

	var subject, level string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List chapters, optionally filtered by subject and level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			filter := content.Filter{}
			if subject != "" {
				if filter.Subject, err = content.ParseSubject(subject); err != nil {
					return err
				}
			}
			if level != "" {
				if filter.Level, err = content.ParseLevel(level); err != nil {
					return err
				}
			}
			p, err := a.profiles.Profile(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), chapterTable(a.chapters.List(filter), p))
			return nil
		},
	}
	listCmd.Flags().StringVar(&subject, "subject", "", "Only chapters of this subject")
	listCmd.Flags().StringVar(&level, "level", "", "Only chapters of this level")

	showCmd := &cobra.Command{
		Use:   "show <chapter>",
		Short: "Print a chapter and its lexicon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := lookupChapter(args[0])
			if err != nil {
				return err
			}
			out, err := glamour.Render(chapterMarkdown(c), markdownStyle())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	outlineCmd := &cobra.Command{
		Use:   "outline <chapter>",
		Short: "Print the headings of a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := lookupChapter(args[0])
			if err != nil {
				return err
			}
			headings, err := content.Outline(c.Content)
			if err != nil {
				return err
			}
			printOutline(cmd.OutOrStdout(), headings)
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, outlineCmd)
	return cmd
}

func lookupChapter(id string) (*content.Chapter, error) {
	chapters, err := content.NewDefaultRepository()
	if err != nil {
		return nil, err
	}
	c, ok := chapters.Get(id)
	if !ok {
		return nil, errors.Errorf("unknown chapter %q", id)
	}
	return c, nil
}

func chapterTable(chapters []*content.Chapter, p *profiles.Profile) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Matière", "Niveau", "Titre", "XP", "Quiz", "Lu")
	for _, c := range chapters {
		quiz := ""
		if c.HasQuiz() {
			quiz = fmt.Sprintf("%d q.", len(c.Quiz))
		}
		done := ""
		if p != nil && p.HasCompleted(c.ID) {
			done = "✓"
		}
		t.Row(c.ID, string(c.Subject), string(c.Level), c.Title, fmt.Sprintf("%d", c.XPReward), quiz, done)
	}
	return t.Render()
}

// chapterMarkdown appends the lexicon to the chapter content.
func chapterMarkdown(c *content.Chapter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n_%s · %s · %d XP_\n\n", c.Title, c.Subject, c.Level, c.XPReward)
	sb.WriteString(c.Content)
	if len(c.Lexicon) > 0 {
		sb.WriteString("\n\n## Lexique\n\n")
		for _, l := range c.Lexicon {
			fmt.Fprintf(&sb, "- **%s** : %s\n", l.Term, l.Definition)
		}
	}
	return sb.String()
}

func printOutline(w io.Writer, headings []content.Heading) {
	for _, h := range headings {
		indent := strings.Repeat("  ", max(h.Level-1, 0))
		_, _ = fmt.Fprintf(w, "%s- %s\n", indent, h.Text)
	}
}
