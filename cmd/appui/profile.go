package main

import (
	"fmt"

	"github.com/go-go-golems/appui/pkg/content"
	"github.com/go-go-golems/appui/pkg/profiles"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profil"},
		Short:   "Show and edit the student profile",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the profile",
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
			printProfile(cmd.OutOrStdout(), p, a.chapters.Badges())
			return nil
		},
	}

	var name, email, grade string
	var dyslexia bool
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := profiles.Update{}
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = &name
			}
			if flags.Changed("email") {
				u.Email = &email
			}
			if flags.Changed("grade") {
				l, err := content.ParseLevel(grade)
				if err != nil {
					return err
				}
				u.Grade = &l
			}
			if flags.Changed("dyslexia") {
				u.DyslexiaMode = &dyslexia
			}
			if u.IsEmpty() {
				return errors.New("nothing to change, pass at least one flag")
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.profiles.Update(cmd.Context(), u)
			if err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), p, a.chapters.Badges())
			return nil
		},
	}
	setCmd.Flags().StringVar(&name, "name", "", "Display name")
	setCmd.Flags().StringVar(&email, "email", "", "Email address")
	setCmd.Flags().StringVar(&grade, "grade", "", "School grade (6eme to 3eme)")
	setCmd.Flags().BoolVar(&dyslexia, "dyslexia", false, "Dyslexia friendly display")

	completeCmd := &cobra.Command{
		Use:   "complete <chapter>",
		Short: "Mark a chapter as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			pr, err := a.profiles.CompleteChapter(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if pr.XPGained == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Chapitre déjà terminé.")
			}
			printProgress(cmd.OutOrStdout(), pr)
			return nil
		},
	}

	cmd.AddCommand(showCmd, setCmd, completeCmd)
	return cmd
}
