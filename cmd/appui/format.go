package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/appui/pkg/content"
	"github.com/go-go-golems/appui/pkg/profiles"
)

const progressWidth = 20

// progressBar draws the experience gathered toward the next level.
func progressBar(xp int) string {
	if xp < 0 {
		xp = 0
	}
	filled := (xp % profiles.XPPerLevel) * progressWidth / profiles.XPPerLevel
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled) + "]"
}

func printProgress(w io.Writer, pr *profiles.Progress) {
	if pr == nil {
		return
	}
	if pr.XPGained > 0 {
		_, _ = fmt.Fprintf(w, "+%d XP\n", pr.XPGained)
	}
	if pr.LeveledUp && pr.Profile != nil {
		_, _ = fmt.Fprintf(w, "Niveau %d atteint !\n", pr.Profile.Level)
	}
	for _, b := range pr.NewBadges {
		_, _ = fmt.Fprintf(w, "Nouveau badge : %s %s\n", b.Icon, b.Name)
	}
}

func printProfile(w io.Writer, p *profiles.Profile, badges []content.Badge) {
	_, _ = fmt.Fprintf(w, "%s (%s)\n", p.Name, p.Grade)
	if p.Email != "" {
		_, _ = fmt.Fprintf(w, "%s\n", p.Email)
	}
	_, _ = fmt.Fprintf(w, "Niveau %d %s %d XP, encore %d XP\n", p.Level, progressBar(p.XP), p.XP, p.XPToNextLevel())

	var owned []string
	for _, b := range badges {
		if p.HasBadge(b.ID) {
			owned = append(owned, b.Icon+" "+b.Name)
		}
	}
	if len(owned) == 0 {
		owned = []string{"aucun"}
	}
	_, _ = fmt.Fprintf(w, "Badges : %s\n", strings.Join(owned, ", "))

	dyslexia := "non"
	if p.DyslexiaMode {
		dyslexia = "oui"
	}
	_, _ = fmt.Fprintf(w, "Mode dyslexie : %s\n", dyslexia)
}
