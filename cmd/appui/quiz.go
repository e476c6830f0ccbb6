package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-go-golems/appui/pkg/quiz"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
)

func newQuizCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quiz <chapter>",
		Short: "Answer the quiz of a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			c, ok := a.chapters.Get(args[0])
			if !ok {
				return errors.Errorf("unknown chapter %q", args[0])
			}
			attempt, err := quiz.NewAttempt(c)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			ui := &input.UI{Writer: w, Reader: os.Stdin}
			for {
				r, err := playQuiz(ui, w, attempt)
				if err != nil {
					return err
				}
				pr, err := a.profiles.AwardQuiz(cmd.Context(), r)
				if err != nil {
					return err
				}
				printProgress(w, pr)

				again, err := ui.Ask("Recommencer ? [o/n]", &input.Options{
					Default:      "n",
					Loop:         true,
					ValidateFunc: yesNo,
				})
				if err != nil {
					return err
				}
				if !isYes(again) {
					return nil
				}
				attempt.Retry()
			}
		},
	}
}

// playQuiz asks every question of the attempt and prints the result.
func playQuiz(ui *input.UI, w io.Writer, attempt *quiz.Attempt) (quiz.Result, error) {
	_, _ = fmt.Fprintf(w, "Quiz : %s\n", attempt.Chapter().Title)
	for !attempt.IsFinished() {
		q, i := attempt.Current()
		_, _ = fmt.Fprintf(w, "\nQuestion %d/%d\n%s\n", i+1, attempt.Total(), q.Question)
		for j, o := range q.Options {
			_, _ = fmt.Fprintf(w, "  %d. %s\n", j+1, o)
		}

		answer, err := ui.Ask("Ta réponse", &input.Options{
			Required:     true,
			Loop:         true,
			HideOrder:    true,
			ValidateFunc: optionIndex(len(q.Options)),
		})
		if err != nil {
			return quiz.Result{}, err
		}
		n, _ := strconv.Atoi(strings.TrimSpace(answer))
		if err := attempt.Select(n - 1); err != nil {
			return quiz.Result{}, err
		}
		correct, err := attempt.Validate()
		if err != nil {
			return quiz.Result{}, err
		}
		if correct {
			_, _ = fmt.Fprintln(w, "Bonne réponse !")
		} else {
			_, _ = fmt.Fprintf(w, "Raté, la bonne réponse était : %s\n", q.Options[q.CorrectAnswerIndex])
		}
		if q.Explanation != "" {
			_, _ = fmt.Fprintln(w, q.Explanation)
		}
		if err := attempt.Next(); err != nil {
			return quiz.Result{}, err
		}
	}

	r, err := attempt.Result()
	if err != nil {
		return quiz.Result{}, err
	}
	_, _ = fmt.Fprintln(w, resultLine(r))
	return r, nil
}

func resultLine(r quiz.Result) string {
	verdict := "Courage, relis le chapitre et réessaie."
	if r.Passed {
		verdict = "Bravo, quiz réussi !"
	}
	return fmt.Sprintf("\nScore : %d/%d (%d%%). %s", r.Score, r.Total, r.Percentage, verdict)
}

func optionIndex(n int) input.ValidateFunc {
	return func(answer string) error {
		i, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil || i < 1 || i > n {
			return errors.Errorf("enter a number between 1 and %d", n)
		}
		return nil
	}
}

func yesNo(answer string) error {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "o", "oui", "y", "n", "non":
		return nil
	default:
		return errors.New("please enter 'o' or 'n'")
	}
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "o", "oui", "y":
		return true
	}
	return false
}
