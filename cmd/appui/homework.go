package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/go-go-golems/appui/pkg/homework"
	"github.com/spf13/cobra"
)

func newHomeworkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "homework",
		Aliases: []string{"devoirs"},
		Short:   "Manage the homework notebook",
	}

	var subject, description, due string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add homework",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			dueDate, err := homework.ParseDueDate(due)
			if err != nil {
				return err
			}
			s, err := homework.ParseSubject(subject)
			if err != nil {
				return err
			}
			h, err := a.homework.Add(cmd.Context(), &homework.Homework{
				Subject:     s,
				Description: description,
				DueDate:     dueDate,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Ajouté : %s (%s)\n", h.ID, statusLabel(h, time.Now()))
			return nil
		},
	}
	addCmd.Flags().StringVar(&subject, "subject", string(homework.SubjectHistory), "Subject")
	addCmd.Flags().StringVar(&description, "description", "", "What to do")
	addCmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List homework, pending first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.homework.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(l) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aucun devoir pour le moment !")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), homeworkTable(l, time.Now()))
			return nil
		},
	}

	toggleCmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark homework as done, or pending again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := a.homework.Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s : %s\n", h.Description, statusLabel(h, time.Now()))
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete homework",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.homework.Delete(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(addCmd, listCmd, toggleCmd, deleteCmd)
	return cmd
}

func statusLabel(h *homework.Homework, now time.Time) string {
	switch h.Status(now) {
	case homework.StatusDone:
		return "fait"
	case homework.StatusLate:
		return "en retard"
	case homework.StatusToday:
		return "pour aujourd'hui"
	}
	days := homework.DaysRemaining(h.DueDate, now)
	if days == 1 {
		return "pour demain"
	}
	return fmt.Sprintf("dans %d jours", days)
}

func homeworkTable(l []*homework.Homework, now time.Time) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Matière", "Description", "Pour le", "État")
	for _, h := range l {
		t.Row(h.ID, string(h.Subject), h.Description, h.DueDate.Format("02/01"), statusLabel(h, now))
	}
	return t.Render()
}
