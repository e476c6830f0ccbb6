package homework

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/appui/pkg/store"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2024, 3, 10, 18, 30, 0, 0, time.Local)
	require.Equal(t, 0, DaysRemaining(date(2024, 3, 10), now))
	require.Equal(t, 1, DaysRemaining(date(2024, 3, 11), now))
	require.Equal(t, -1, DaysRemaining(date(2024, 3, 9), now))
	require.Equal(t, 22, DaysRemaining(date(2024, 4, 1), now))
	// late in the evening still counts whole calendar days
	require.Equal(t, 1, DaysRemaining(time.Date(2024, 3, 11, 8, 0, 0, 0, time.Local), time.Date(2024, 3, 10, 23, 59, 0, 0, time.Local)))
}

func TestStatus(t *testing.T) {
	now := date(2024, 3, 10)
	h := &Homework{DueDate: date(2024, 3, 9)}
	require.Equal(t, StatusLate, h.Status(now))
	h.DueDate = now
	require.Equal(t, StatusToday, h.Status(now))
	h.DueDate = date(2024, 3, 12)
	require.Equal(t, StatusUpcoming, h.Status(now))
	h.Completed = true
	h.DueDate = date(2024, 3, 1)
	require.Equal(t, StatusDone, h.Status(now))
}

func TestSort(t *testing.T) {
	l := []*Homework{
		{ID: "done-early", DueDate: date(2024, 1, 1), Completed: true},
		{ID: "late", DueDate: date(2024, 3, 20)},
		{ID: "soon", DueDate: date(2024, 3, 11)},
		{ID: "done-late", DueDate: date(2024, 5, 1), Completed: true},
		{ID: "soon-2", DueDate: date(2024, 3, 11)},
	}
	Sort(l)
	ids := []string{}
	for _, h := range l {
		ids = append(ids, h.ID)
	}
	require.Equal(t, []string{"soon", "soon-2", "late", "done-early", "done-late"}, ids)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(&Homework{Subject: SubjectMaths, Description: "Exercices 4 à 10", DueDate: date(2024, 3, 10)}))

	err := Validate(&Homework{Subject: "Latin", Description: "  "})
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	require.Len(t, verr.Fields, 3)
	require.Contains(t, verr.Fields, "subject")
	require.Contains(t, verr.Fields, "description")
	require.Contains(t, verr.Fields, "due_date")
	require.Equal(t, "description ne peut pas être vide", verr.Fields["description"])
	require.Equal(t, "subject doit être une matière connue", verr.Fields["subject"])
}

func TestParseSubject(t *testing.T) {
	s, err := ParseSubject("physique-chimie")
	require.NoError(t, err)
	require.Equal(t, SubjectPhysics, s)
	_, err = ParseSubject("Latin")
	require.Error(t, err)
}

func TestParseDueDate(t *testing.T) {
	d, err := ParseDueDate("2024-03-10")
	require.NoError(t, err)
	require.True(t, d.Equal(date(2024, 3, 10)))
	_, err = ParseDueDate("10/03/2024")
	require.Error(t, err)
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewInMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "appui.db"))
			require.NoError(t, err)
			t.Cleanup(func() {
				_ = db.Close()
			})
			return NewSQLiteStore(db)
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			l, err := s.List(ctx)
			require.NoError(t, err)
			require.Empty(t, l)

			later, err := s.Add(ctx, &Homework{Subject: SubjectMaths, Description: "Exercices 4 à 10 page 123", DueDate: date(2024, 3, 12)})
			require.NoError(t, err)
			require.NotEmpty(t, later.ID)
			sooner, err := s.Add(ctx, &Homework{Subject: SubjectHistory, Description: "Réviser le Néolithique", DueDate: time.Date(2024, 3, 11, 15, 0, 0, 0, time.Local)})
			require.NoError(t, err)
			require.True(t, sooner.DueDate.Equal(date(2024, 3, 11)))

			_, err = s.Add(ctx, &Homework{Subject: SubjectEMC})
			require.Error(t, err)

			l, err = s.List(ctx)
			require.NoError(t, err)
			require.Len(t, l, 2)
			require.Equal(t, sooner.ID, l[0].ID)
			require.Equal(t, "Réviser le Néolithique", l[0].Description)
			require.Equal(t, SubjectHistory, l[0].Subject)

			toggled, err := s.Toggle(ctx, sooner.ID)
			require.NoError(t, err)
			require.True(t, toggled.Completed)

			l, err = s.List(ctx)
			require.NoError(t, err)
			require.Equal(t, []string{later.ID, sooner.ID}, []string{l[0].ID, l[1].ID})

			toggled, err = s.Toggle(ctx, sooner.ID)
			require.NoError(t, err)
			require.False(t, toggled.Completed)

			_, err = s.Toggle(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Delete(ctx, later.ID))
			require.ErrorIs(t, s.Delete(ctx, later.ID), ErrNotFound)
			l, err = s.List(ctx)
			require.NoError(t, err)
			require.Len(t, l, 1)

			require.NoError(t, s.Close())
			_, err = s.List(ctx)
			require.ErrorIs(t, err, ErrStoreClosed)
		})
	}
}
