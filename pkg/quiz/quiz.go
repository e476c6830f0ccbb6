// Package quiz runs a chapter's multiple choice questions one at a time.
package quiz

import (
	"math"

	"github.com/go-go-golems/appui/pkg/content"
	"github.com/pkg/errors"
)

// PassPercentage is the minimum rounded percentage for a passed quiz.
const PassPercentage = 50

var (
	ErrNoQuestions  = errors.New("chapter has no quiz")
	ErrNoSelection  = errors.New("no option selected")
	ErrNotAnswered  = errors.New("current question is not validated yet")
	ErrFinished     = errors.New("quiz is finished")
	ErrNotFinished  = errors.New("quiz is not finished")
	ErrOutOfOptions = errors.New("option index out of range")
)

type Result struct {
	ChapterID  string          `json:"chapter_id"`
	Subject    content.Subject `json:"subject"`
	Score      int             `json:"score"`
	Total      int             `json:"total"`
	Percentage int             `json:"percentage"`
	Passed     bool            `json:"passed"`
	// BonusXP is granted on a passed quiz, half the chapter reward
	BonusXP int `json:"bonus_xp"`
}

// Attempt is one run through a chapter quiz. It is not safe for concurrent use.
type Attempt struct {
	chapter  *content.Chapter
	index    int
	selected int
	answered bool
	score    int
	finished bool
}

func NewAttempt(chapter *content.Chapter) (*Attempt, error) {
	if !chapter.HasQuiz() {
		return nil, ErrNoQuestions
	}
	return &Attempt{chapter: chapter, selected: -1}, nil
}

func (a *Attempt) Chapter() *content.Chapter { return a.chapter }

// Current returns the question being answered and its 0-based position.
func (a *Attempt) Current() (content.QuizQuestion, int) {
	return a.chapter.Quiz[a.index], a.index
}

func (a *Attempt) Total() int { return len(a.chapter.Quiz) }

func (a *Attempt) IsLast() bool { return a.index == len(a.chapter.Quiz)-1 }

func (a *Attempt) IsAnswered() bool { return a.answered }

func (a *Attempt) IsFinished() bool { return a.finished }

func (a *Attempt) Selected() int { return a.selected }

func (a *Attempt) Score() int { return a.score }

// Select picks an option of the current question. It is ignored once the question is
// validated.
func (a *Attempt) Select(i int) error {
	if a.finished {
		return ErrFinished
	}
	if a.answered {
		return nil
	}
	q, _ := a.Current()
	if i < 0 || i >= len(q.Options) {
		return ErrOutOfOptions
	}
	a.selected = i
	return nil
}

// Validate locks the selected option and reports whether it is correct.
func (a *Attempt) Validate() (bool, error) {
	if a.finished {
		return false, ErrFinished
	}
	if a.selected < 0 {
		return false, ErrNoSelection
	}
	q, _ := a.Current()
	correct := a.selected == q.CorrectAnswerIndex
	if a.answered {
		return correct, nil
	}
	a.answered = true
	if correct {
		a.score++
	}
	return correct, nil
}

// Next moves to the following question, or finishes the attempt after the last one.
func (a *Attempt) Next() error {
	if a.finished {
		return ErrFinished
	}
	if !a.answered {
		return ErrNotAnswered
	}
	if a.IsLast() {
		a.finished = true
		return nil
	}
	a.index++
	a.selected = -1
	a.answered = false
	return nil
}

// Retry starts over from the first question with a zero score.
func (a *Attempt) Retry() {
	a.index = 0
	a.selected = -1
	a.answered = false
	a.score = 0
	a.finished = false
}

func (a *Attempt) Result() (Result, error) {
	if !a.finished {
		return Result{}, ErrNotFinished
	}
	return NewResult(a.chapter, a.score), nil
}

// NewResult scores a finished attempt of chapter.
func NewResult(chapter *content.Chapter, score int) Result {
	total := len(chapter.Quiz)
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(score) / float64(total) * 100))
	}
	passed := percentage >= PassPercentage
	bonus := 0
	if passed {
		bonus = chapter.XPReward / 2
	}
	return Result{
		ChapterID:  chapter.ID,
		Subject:    chapter.Subject,
		Score:      score,
		Total:      total,
		Percentage: percentage,
		Passed:     passed,
		BonusXP:    bonus,
	}
}
