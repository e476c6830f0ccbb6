package content

import (
	"strings"

	"github.com/pkg/errors"
)

// Subject is a school subject covered by the tutor.
type Subject string

const (
	SubjectHistory   Subject = "Histoire"
	SubjectGeography Subject = "Géographie"
	SubjectEMC       Subject = "EMC"
)

var Subjects = []Subject{SubjectHistory, SubjectGeography, SubjectEMC}

// Level is a school grade, from 6ème (collège) to Terminale (lycée).
type Level string

const (
	LevelSixieme   Level = "6ème"
	LevelCinquieme Level = "5ème"
	LevelQuatrieme Level = "4ème"
	LevelTroisieme Level = "3ème"
	LevelSeconde   Level = "2nde"
	LevelPremiere  Level = "1ère"
	LevelTerminale Level = "Terminale"
)

var Levels = []Level{
	LevelSixieme, LevelCinquieme, LevelQuatrieme, LevelTroisieme,
	LevelSeconde, LevelPremiere, LevelTerminale,
}

var subjectAliases = map[string]Subject{
	"histoire":   SubjectHistory,
	"history":    SubjectHistory,
	"géographie": SubjectGeography,
	"geographie": SubjectGeography,
	"geography":  SubjectGeography,
	"geo":        SubjectGeography,
	"emc":        SubjectEMC,
}

var levelAliases = map[string]Level{
	"6ème": LevelSixieme, "6eme": LevelSixieme, "6": LevelSixieme,
	"5ème": LevelCinquieme, "5eme": LevelCinquieme, "5": LevelCinquieme,
	"4ème": LevelQuatrieme, "4eme": LevelQuatrieme, "4": LevelQuatrieme,
	"3ème": LevelTroisieme, "3eme": LevelTroisieme, "3": LevelTroisieme,
	"2nde": LevelSeconde, "seconde": LevelSeconde, "2": LevelSeconde,
	"1ère": LevelPremiere, "1ere": LevelPremiere, "premiere": LevelPremiere, "première": LevelPremiere, "1": LevelPremiere,
	"terminale": LevelTerminale, "term": LevelTerminale,
}

// ParseSubject accepts the French display names and a few ASCII aliases.
func ParseSubject(s string) (Subject, error) {
	if v, ok := subjectAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	return "", errors.Errorf("unknown subject %q", s)
}

// ParseLevel accepts the French display names and a few ASCII aliases.
func ParseLevel(s string) (Level, error) {
	if v, ok := levelAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	return "", errors.Errorf("unknown level %q", s)
}

type LexiconItem struct {
	Term       string `yaml:"term" json:"term"`
	Definition string `yaml:"definition" json:"definition"`
}

type QuizQuestion struct {
	ID                 string   `yaml:"id" json:"id"`
	Question           string   `yaml:"question" json:"question"`
	Options            []string `yaml:"options" json:"options"`
	CorrectAnswerIndex int      `yaml:"correct_answer_index" json:"correct_answer_index"`
	Explanation        string   `yaml:"explanation" json:"explanation"`
}

// Chapter is a read-only lesson with its lexicon and optional quiz.
type Chapter struct {
	ID       string         `yaml:"id" json:"id"`
	Title    string         `yaml:"title" json:"title"`
	Subject  Subject        `yaml:"subject" json:"subject"`
	Level    Level          `yaml:"level" json:"level"`
	Content  string         `yaml:"content" json:"content"`
	Lexicon  []LexiconItem  `yaml:"lexicon" json:"lexicon"`
	Quiz     []QuizQuestion `yaml:"quiz,omitempty" json:"quiz,omitempty"`
	XPReward int            `yaml:"xp_reward" json:"xp_reward"`
}

func (c *Chapter) HasQuiz() bool {
	return c != nil && len(c.Quiz) > 0
}

type Badge struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon" json:"icon"`
}
