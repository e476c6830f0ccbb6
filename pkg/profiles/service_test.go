package profiles

import (
	"context"
	"testing"

	"github.com/go-go-golems/appui/pkg/content"
	"github.com/go-go-golems/appui/pkg/quiz"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, start *Profile) *Service {
	t.Helper()
	repo, err := content.NewDefaultRepository()
	require.NoError(t, err)
	s := NewInMemoryStore()
	if start != nil {
		require.NoError(t, s.Save(context.Background(), start))
	}
	return NewService(s, repo)
}

func freshProfile() *Profile {
	return &Profile{Name: "Léo", Grade: content.LevelSixieme, Level: 1}
}

func TestService_CompleteChapter(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, freshProfile())

	pr, err := s.CompleteChapter(ctx, "h-6-1")
	require.NoError(t, err)
	require.Equal(t, 100, pr.XPGained)
	require.Equal(t, 100, pr.Profile.XP)
	require.Equal(t, []string{"h-6-1"}, pr.Profile.CompletedChapters)
	require.Len(t, pr.NewBadges, 1)
	require.Equal(t, BadgeHistorian, pr.NewBadges[0].ID)
	require.Equal(t, "Historien Novice", pr.NewBadges[0].Name)

	// idempotent
	pr, err = s.CompleteChapter(ctx, "h-6-1")
	require.NoError(t, err)
	require.Equal(t, 0, pr.XPGained)
	require.Equal(t, 100, pr.Profile.XP)
	require.Empty(t, pr.NewBadges)

	_, err = s.CompleteChapter(ctx, "nope")
	require.Error(t, err)
}

func TestService_CompleteChapterLevelsUp(t *testing.T) {
	ctx := context.Background()
	start := freshProfile()
	start.XP = 350
	s := newTestService(t, start)

	pr, err := s.CompleteChapter(ctx, "g-term-1")
	require.NoError(t, err)
	require.Equal(t, 500, pr.Profile.XP)
	require.Equal(t, 2, pr.Profile.Level)
	require.True(t, pr.LeveledUp)
	require.Empty(t, pr.NewBadges)
}

func TestService_AwardQuiz(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, freshProfile())
	repo, err := content.NewDefaultRepository()
	require.NoError(t, err)
	geo, ok := repo.Get("g-term-1")
	require.True(t, ok)

	failed := quiz.NewResult(geo, 0)
	pr, err := s.AwardQuiz(ctx, failed)
	require.NoError(t, err)
	require.Equal(t, 0, pr.XPGained)

	perfect := quiz.NewResult(geo, len(geo.Quiz))
	pr, err = s.AwardQuiz(ctx, perfect)
	require.NoError(t, err)
	require.Equal(t, 75, pr.XPGained)
	require.Len(t, pr.NewBadges, 1)
	require.Equal(t, BadgeCartographer, pr.NewBadges[0].ID)

	// bonus is granted once per chapter
	pr, err = s.AwardQuiz(ctx, perfect)
	require.NoError(t, err)
	require.Equal(t, 0, pr.XPGained)
	require.Empty(t, pr.NewBadges)
	require.Equal(t, 75, pr.Profile.XP)
}

func TestService_HistoryQuizDoesNotGrantCartographer(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, freshProfile())
	repo, err := content.NewDefaultRepository()
	require.NoError(t, err)
	h, ok := repo.Get("h-6-1")
	require.True(t, ok)

	pr, err := s.AwardQuiz(ctx, quiz.NewResult(h, len(h.Quiz)))
	require.NoError(t, err)
	require.Equal(t, 50, pr.XPGained)
	require.False(t, pr.Profile.HasBadge(BadgeCartographer))
}

func TestService_RecordTutorExchange(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, freshProfile())

	for i := 0; i < 2; i++ {
		pr, err := s.RecordTutorExchange(ctx, content.SubjectEMC)
		require.NoError(t, err)
		require.Empty(t, pr.NewBadges)
	}
	pr, err := s.RecordTutorExchange(ctx, content.SubjectHistory)
	require.NoError(t, err)
	require.Equal(t, 2, pr.Profile.EMCDebates)

	pr, err = s.RecordTutorExchange(ctx, content.SubjectEMC)
	require.NoError(t, err)
	require.Equal(t, 3, pr.Profile.EMCDebates)
	require.Len(t, pr.NewBadges, 1)
	require.Equal(t, "Citoyen Engagé", pr.NewBadges[0].Name)
}

func TestService_ToggleDyslexia(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	p, err := s.ToggleDyslexia(ctx)
	require.NoError(t, err)
	require.True(t, p.DyslexiaMode)
	p, err = s.ToggleDyslexia(ctx)
	require.NoError(t, err)
	require.False(t, p.DyslexiaMode)

	p, err = s.Update(ctx, Update{Name: ptr("Inès")})
	require.NoError(t, err)
	require.Equal(t, "Inès", p.Name)
}
