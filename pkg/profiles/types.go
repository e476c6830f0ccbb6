package profiles

import (
	"github.com/go-go-golems/appui/pkg/content"
	"github.com/huandu/go-clone"
)

// XPPerLevel is the experience needed to gain a player level.
const XPPerLevel = 400

// Profile is the student using the app. There is one profile per database.
type Profile struct {
	Name              string        `json:"name" yaml:"name"`
	Email             string        `json:"email,omitempty" yaml:"email,omitempty"`
	Grade             content.Level `json:"grade" yaml:"grade"`
	XP                int           `json:"xp" yaml:"xp"`
	Level             int           `json:"level" yaml:"level"`
	Badges            []string      `json:"badges" yaml:"badges"`
	CompletedChapters []string      `json:"completed_chapters" yaml:"completed_chapters"`
	// PassedQuizzes lists chapters whose quiz bonus was already granted
	PassedQuizzes []string `json:"passed_quizzes,omitempty" yaml:"passed_quizzes,omitempty"`
	DyslexiaMode  bool     `json:"dyslexia_mode" yaml:"dyslexia_mode"`
	EMCDebates    int      `json:"emc_debates" yaml:"emc_debates"`
}

// DefaultProfile is the profile a fresh install starts with.
func DefaultProfile() *Profile {
	return &Profile{
		Name:              "Léo",
		Grade:             content.LevelTroisieme,
		XP:                1450,
		Level:             LevelForXP(1450),
		Badges:            []string{"1"},
		CompletedChapters: []string{},
	}
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	return clone.Clone(p).(*Profile)
}

func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// XPToNextLevel returns how much experience is missing to reach the next level.
func (p *Profile) XPToNextLevel() int {
	return LevelForXP(p.XP)*XPPerLevel - p.XP
}

func (p *Profile) HasBadge(id string) bool {
	return contains(p.Badges, id)
}

func (p *Profile) HasCompleted(chapterID string) bool {
	return contains(p.CompletedChapters, chapterID)
}

func (p *Profile) addXP(xp int) {
	p.XP += xp
	p.Level = LevelForXP(p.XP)
}

func contains(l []string, s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

// Update lists the editable profile fields. Nil fields are left untouched.
type Update struct {
	Name         *string        `json:"name,omitempty"`
	Email        *string        `json:"email,omitempty"`
	Grade        *content.Level `json:"grade,omitempty"`
	DyslexiaMode *bool          `json:"dyslexia_mode,omitempty"`
}

func (u Update) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Grade == nil && u.DyslexiaMode == nil
}

func (u Update) Apply(p *Profile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Grade != nil {
		p.Grade = *u.Grade
	}
	if u.DyslexiaMode != nil {
		p.DyslexiaMode = *u.DyslexiaMode
	}
}
