// Package homework is the student's assignment notebook.
package homework

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Subject string

const (
	SubjectHistory   Subject = "Histoire"
	SubjectGeography Subject = "Géographie"
	SubjectEMC       Subject = "EMC"
	SubjectMaths     Subject = "Mathématiques"
	SubjectFrench    Subject = "Français"
	SubjectEnglish   Subject = "Anglais"
	SubjectSVT       Subject = "SVT"
	SubjectPhysics   Subject = "Physique-Chimie"
	SubjectOther     Subject = "Autre"
)

var Subjects = []Subject{
	SubjectHistory, SubjectGeography, SubjectEMC, SubjectMaths, SubjectFrench,
	SubjectEnglish, SubjectSVT, SubjectPhysics, SubjectOther,
}

// ParseSubject matches s case-insensitively against Subjects.
func ParseSubject(s string) (Subject, error) {
	s = strings.TrimSpace(s)
	for _, v := range Subjects {
		if strings.EqualFold(string(v), s) {
			return v, nil
		}
	}
	return "", errors.Errorf("unknown subject %q", s)
}

// DateLayout is the format of due dates on the command line and in the database.
const DateLayout = "2006-01-02"

type Homework struct {
	ID          string    `json:"id"`
	Subject     Subject   `json:"subject" validate:"required,homework_subject"`
	Description string    `json:"description" validate:"notblank"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Completed   bool      `json:"completed"`
}

func (h *Homework) Clone() *Homework {
	ret := *h
	return &ret
}

// ParseDueDate reads a DateLayout date in the local time zone.
func ParseDueDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid due date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// DaysRemaining counts the days between the local midnights of now and due. It is
// negative for past due dates.
func DaysRemaining(due, now time.Time) int {
	d := civilDate(due)
	n := civilDate(now)
	return int(math.Ceil(d.Sub(n).Hours() / 24))
}

// civilDate drops the time of day, keeping the calendar date in t's location.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Status string

const (
	StatusDone     Status = "done"
	StatusLate     Status = "late"
	StatusToday    Status = "today"
	StatusUpcoming Status = "upcoming"
)

func (h *Homework) Status(now time.Time) Status {
	if h.Completed {
		return StatusDone
	}
	days := DaysRemaining(h.DueDate, now)
	switch {
	case days < 0:
		return StatusLate
	case days == 0:
		return StatusToday
	default:
		return StatusUpcoming
	}
}

// Sort orders l in place: pending homework first, then by due date.
func Sort(l []*Homework) {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i], l[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		return a.DueDate.Before(b.DueDate)
	})
}
