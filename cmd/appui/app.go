package main

import (
	"context"

	"github.com/go-go-golems/appui/pkg/content"
	"github.com/go-go-golems/appui/pkg/events"
	"github.com/go-go-golems/appui/pkg/homework"
	"github.com/go-go-golems/appui/pkg/inference/session"
	"github.com/go-go-golems/appui/pkg/profiles"
	"github.com/go-go-golems/appui/pkg/steps/ai/factory"
	"github.com/go-go-golems/appui/pkg/steps/ai/settings"
	"github.com/go-go-golems/appui/pkg/store"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// app holds what the commands share: the chapter catalogue and the local database.
type app struct {
	chapters *content.StaticRepository
	db       *sqlx.DB
	profiles *profiles.Service
	homework homework.Store
}

func newApp(ctx context.Context) (*app, error) {
	chapters, err := content.NewDefaultRepository()
	if err != nil {
		return nil, err
	}

	dsn := viper.GetString("db")
	if dsn == "" {
		dsn, err = store.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	db, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("db", dsn).Msg("Opened database")

	return &app{
		chapters: chapters,
		db:       db,
		profiles: profiles.NewService(profiles.NewSQLiteStore(db), chapters),
		homework: homework.NewSQLiteStore(db),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("Could not close database")
	}
}

// tutorTarget is the subject and level a tutoring session is about.
type tutorTarget struct {
	Subject content.Subject
	Level   content.Level
	Chapter *content.Chapter
}

// resolveTarget picks the chapter's subject and level, or the explicit flags, falling
// back to History at the student's grade.
func (a *app) resolveTarget(ctx context.Context, chapterID, subject, level string) (*tutorTarget, error) {
	if chapterID != "" {
		c, ok := a.chapters.Get(chapterID)
		if !ok {
			return nil, errors.Errorf("unknown chapter %q", chapterID)
		}
		return &tutorTarget{Subject: c.Subject, Level: c.Level, Chapter: c}, nil
	}

	ret := &tutorTarget{Subject: content.SubjectHistory}
	if subject != "" {
		s, err := content.ParseSubject(subject)
		if err != nil {
			return nil, err
		}
		ret.Subject = s
	}
	if level != "" {
		l, err := content.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		ret.Level = l
	} else {
		p, err := a.profiles.Profile(ctx)
		if err != nil {
			return nil, err
		}
		ret.Level = p.Grade
	}
	return ret, nil
}

// newTutorSession builds the provider from the ai-* settings and a session on top of it.
func newTutorSession(target *tutorTarget, sinks ...events.EventSink) (*session.Session, error) {
	stepSettings, err := settings.NewStepSettingsFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}
	p, err := factory.NewProvider(stepSettings)
	if err != nil {
		return nil, err
	}

	options := []session.Option{
		session.WithSubject(string(target.Subject)),
		session.WithLevel(string(target.Level)),
		session.WithTemperature(stepSettings.GetTemperature()),
		session.WithEventSinks(sinks...),
	}
	if stepSettings.Chat.Timeout > 0 {
		options = append(options, session.WithTimeout(stepSettings.Chat.Timeout))
	}
	if stepSettings.Chat.MaxContextTokens > 0 {
		options = append(options, session.WithMaxContextTokens(stepSettings.Chat.MaxContextTokens))
	}
	if stepSettings.Chat.SystemInstruction != "" {
		options = append(options, session.WithSystemInstruction(stepSettings.Chat.SystemInstruction))
	}

	log.Debug().
		Str("api_type", string(stepSettings.GetApiType())).
		Str("engine", stepSettings.GetEngine()).
		Str("subject", string(target.Subject)).
		Str("level", string(target.Level)).
		Msg("Starting tutoring session")

	return session.NewSession(p, options...), nil
}

// recordProgress counts a finished tutor answer for badges, and reports new ones.
func (a *app) recordProgress(ctx context.Context, subject content.Subject) []content.Badge {
	pr, err := a.profiles.RecordTutorExchange(ctx, subject)
	if err != nil {
		log.Warn().Err(err).Msg("Could not record tutoring progress")
		return nil
	}
	return pr.NewBadges
}
