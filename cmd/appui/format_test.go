package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/go-go-golems/appui/pkg/content"
	"github.com/go-go-golems/appui/pkg/homework"
	"github.com/go-go-golems/appui/pkg/profiles"
	"github.com/go-go-golems/appui/pkg/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat("░", progressWidth)+"]", progressBar(0))
	assert.Equal(t, "["+strings.Repeat("█", 10)+strings.Repeat("░", 10)+"]", progressBar(profiles.XPPerLevel+profiles.XPPerLevel/2))
	assert.Equal(t, progressBar(0), progressBar(-5))
}

func TestStatusLabel(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 3, 10+d, 0, 0, 0, 0, time.UTC) }

	assert.Equal(t, "en retard", statusLabel(&homework.Homework{DueDate: day(-1)}, now))
	assert.Equal(t, "pour aujourd'hui", statusLabel(&homework.Homework{DueDate: day(0)}, now))
	assert.Equal(t, "pour demain", statusLabel(&homework.Homework{DueDate: day(1)}, now))
	assert.Equal(t, "dans 4 jours", statusLabel(&homework.Homework{DueDate: day(4)}, now))
	assert.Equal(t, "fait", statusLabel(&homework.Homework{DueDate: day(-3), Completed: true}, now))
}

func TestChapterMarkdownIncludesLexicon(t *testing.T) {
	c := &content.Chapter{
		Title:    "La Révolution",
		Subject:  content.SubjectHistory,
		Level:    content.LevelQuatrieme,
		Content:  "## 1789\n\nLes États généraux.",
		Lexicon:  []content.LexiconItem{{Term: "Tiers état", Definition: "Ceux qui travaillent."}},
		XPReward: 100,
	}
	md := chapterMarkdown(c)
	assert.True(t, strings.HasPrefix(md, "# La Révolution\n"))
	assert.Contains(t, md, "## Lexique")
	assert.Contains(t, md, "- **Tiers état** : Ceux qui travaillent.")

	c.Lexicon = nil
	assert.NotContains(t, chapterMarkdown(c), "Lexique")
}

func TestPrintOutline(t *testing.T) {
	var buf bytes.Buffer
	printOutline(&buf, []content.Heading{{Text: "A", Level: 1}, {Text: "B", Level: 2}})
	assert.Equal(t, "- A\n  - B\n", buf.String())
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	printProgress(&buf, &profiles.Progress{
		Profile:   &profiles.Profile{Level: 5},
		XPGained:  150,
		LeveledUp: true,
		NewBadges: []content.Badge{{ID: "1", Name: "Historien Novice", Icon: "📜"}},
	})
	out := buf.String()
	assert.Contains(t, out, "+150 XP")
	assert.Contains(t, out, "Niveau 5 atteint")
	assert.Contains(t, out, "📜 Historien Novice")

	buf.Reset()
	printProgress(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestPrintDashboard(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	p := profiles.DefaultProfile()
	p.CompletedChapters = []string{"h-1"}
	chapters := []*content.Chapter{
		{ID: "h-1", Title: "Rome", Subject: content.SubjectHistory, XPReward: 100},
		{ID: "g-1", Title: "Les fleuves", Subject: content.SubjectGeography, XPReward: 80},
	}
	l := []*homework.Homework{
		{Subject: homework.SubjectMaths, Description: "Exercice 3", DueDate: now},
		{Subject: homework.SubjectFrench, Description: "Rédaction", DueDate: now, Completed: true},
	}
	badges := []content.Badge{{ID: "1", Name: "Historien Novice", Icon: "📜"}}

	var buf bytes.Buffer
	printDashboard(&buf, p, badges, chapters, l, now)
	out := buf.String()

	assert.Contains(t, out, "Léo")
	assert.Contains(t, out, "[✓] Rome")
	assert.Contains(t, out, "[ ] Les fleuves")
	assert.Contains(t, out, "Exercice 3 (pour aujourd'hui)")
	assert.NotContains(t, out, "Rédaction")
	assert.Contains(t, out, "📜 Historien Novice")
}

func TestQuizPromptHelpers(t *testing.T) {
	validate := optionIndex(3)
	require.NoError(t, validate("2"))
	require.NoError(t, validate(" 3 "))
	require.Error(t, validate("0"))
	require.Error(t, validate("4"))
	require.Error(t, validate("deux"))

	require.NoError(t, yesNo("Oui"))
	require.Error(t, yesNo("peut-être"))
	assert.True(t, isYes("o"))
	assert.False(t, isYes("n"))

	line := resultLine(quiz.Result{Score: 2, Total: 3, Percentage: 67, Passed: true})
	assert.Contains(t, line, "2/3 (67%)")
	assert.Contains(t, line, "Bravo")
}
