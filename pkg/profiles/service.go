package profiles

import (
	"context"
	"sync"

	"github.com/go-go-golems/appui/pkg/content"
	"github.com/go-go-golems/appui/pkg/quiz"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	BadgeHistorian    = "1"
	BadgeCartographer = "2"
	BadgeCitizen      = "3"

	// EMCDebatesForBadge is the number of EMC tutoring exchanges that earns BadgeCitizen.
	EMCDebatesForBadge = 3
)

// Progress is the outcome of an action that may grant experience or badges.
type Progress struct {
	Profile   *Profile
	XPGained  int
	NewBadges []content.Badge
	// LeveledUp is set when the player level increased
	LeveledUp bool
}

// Service applies the progression rules on top of a Store.
type Service struct {
	mu       sync.Mutex
	store    Store
	chapters content.Repository
}

func NewService(store Store, chapters content.Repository) *Service {
	return &Service{store: store, chapters: chapters}
}

func (s *Service) Profile(ctx context.Context) (*Profile, error) {
	return s.store.Get(ctx)
}

func (s *Service) Update(ctx context.Context, u Update) (*Profile, error) {
	return s.store.Merge(ctx, u)
}

func (s *Service) ToggleDyslexia(ctx context.Context) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	enabled := !p.DyslexiaMode
	return s.store.Merge(ctx, Update{DyslexiaMode: &enabled})
}

// CompleteChapter marks the chapter as read and grants its reward. Completing a chapter
// twice grants nothing.
func (s *Service) CompleteChapter(ctx context.Context, chapterID string) (*Progress, error) {
	chapter, ok := s.chapters.Get(chapterID)
	if !ok {
		return nil, errors.Errorf("unknown chapter %q", chapterID)
	}

	return s.mutate(ctx, func(p *Profile, pr *Progress) {
		if p.HasCompleted(chapter.ID) {
			return
		}
		p.CompletedChapters = append(p.CompletedChapters, chapter.ID)
		pr.XPGained = chapter.XPReward
		log.Debug().Str("chapter", chapter.ID).Int("xp", chapter.XPReward).Msg("Chapter completed")
	})
}

// AwardQuiz grants the bonus of a passed quiz once per chapter.
func (s *Service) AwardQuiz(ctx context.Context, r quiz.Result) (*Progress, error) {
	return s.mutate(ctx, func(p *Profile, pr *Progress) {
		if r.Subject == content.SubjectGeography && r.Total > 0 && r.Percentage == 100 {
			s.award(p, pr, BadgeCartographer)
		}
		if !r.Passed || contains(p.PassedQuizzes, r.ChapterID) {
			return
		}
		p.PassedQuizzes = append(p.PassedQuizzes, r.ChapterID)
		pr.XPGained = r.BonusXP
	})
}

// RecordTutorExchange counts a completed tutor answer. EMC exchanges count as debates.
func (s *Service) RecordTutorExchange(ctx context.Context, subject content.Subject) (*Progress, error) {
	return s.mutate(ctx, func(p *Profile, pr *Progress) {
		if subject == content.SubjectEMC {
			p.EMCDebates++
		}
	})
}

func (s *Service) mutate(ctx context.Context, f func(p *Profile, pr *Progress)) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	levelBefore := p.Level

	pr := &Progress{}
	f(p, pr)
	if pr.XPGained > 0 {
		p.addXP(pr.XPGained)
	}
	s.checkBadges(p, pr)
	pr.LeveledUp = p.Level > levelBefore

	if err := s.store.Save(ctx, p); err != nil {
		return nil, err
	}
	pr.Profile = p.Clone()
	return pr, nil
}

func (s *Service) checkBadges(p *Profile, pr *Progress) {
	for _, id := range p.CompletedChapters {
		if c, ok := s.chapters.Get(id); ok && c.Subject == content.SubjectHistory {
			s.award(p, pr, BadgeHistorian)
			break
		}
	}
	if p.EMCDebates >= EMCDebatesForBadge {
		s.award(p, pr, BadgeCitizen)
	}
}

func (s *Service) award(p *Profile, pr *Progress, id string) {
	if p.HasBadge(id) {
		return
	}
	p.Badges = append(p.Badges, id)
	b, ok := s.chapters.Badge(id)
	if !ok {
		b = content.Badge{ID: id}
	}
	pr.NewBadges = append(pr.NewBadges, b)
	log.Info().Str("badge", id).Str("name", b.Name).Msg("Badge awarded")
}
