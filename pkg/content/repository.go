package content

import (
	_ "embed"
	"io"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed chapters.yaml
var defaultCatalogYAML []byte

// Repository exposes read-only lookups over the chapter catalogue.
type Repository interface {
	Get(id string) (*Chapter, bool)
	List(filter Filter) []*Chapter
	Badges() []Badge
	Badge(id string) (Badge, bool)
}

// Filter restricts List results. Zero values match everything.
type Filter struct {
	Subject Subject
	Level   Level
}

func (f Filter) matches(c *Chapter) bool {
	if f.Subject != "" && c.Subject != f.Subject {
		return false
	}
	if f.Level != "" && c.Level != f.Level {
		return false
	}
	return true
}

type catalog struct {
	Badges   []Badge    `yaml:"badges"`
	Chapters []*Chapter `yaml:"chapters"`
}

// StaticRepository is an in-memory Repository loaded once from YAML.
type StaticRepository struct {
	chapters []*Chapter
	byID     map[string]*Chapter
	badges   []Badge
}

var _ Repository = (*StaticRepository)(nil)

// NewDefaultRepository loads the catalogue embedded in the binary.
func NewDefaultRepository() (*StaticRepository, error) {
	return NewRepositoryFromYAML(defaultCatalogYAML)
}

func NewRepositoryFromReader(r io.Reader) (*StaticRepository, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not read chapter catalogue")
	}
	return NewRepositoryFromYAML(b)
}

func NewRepositoryFromYAML(b []byte) (*StaticRepository, error) {
	var c catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrap(err, "could not parse chapter catalogue")
	}

	r := &StaticRepository{
		byID:   make(map[string]*Chapter, len(c.Chapters)),
		badges: c.Badges,
	}
	for _, ch := range c.Chapters {
		if ch == nil || ch.ID == "" {
			return nil, errors.New("chapter without id in catalogue")
		}
		if _, ok := r.byID[ch.ID]; ok {
			return nil, errors.Errorf("duplicate chapter id %q", ch.ID)
		}
		for _, q := range ch.Quiz {
			if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
				return nil, errors.Errorf("chapter %s: question %s has an out of range answer", ch.ID, q.ID)
			}
		}
		r.byID[ch.ID] = ch
		r.chapters = append(r.chapters, ch)
	}
	return r, nil
}

func (r *StaticRepository) Get(id string) (*Chapter, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// List returns matching chapters ordered by level then title.
func (r *StaticRepository) List(filter Filter) []*Chapter {
	ret := []*Chapter{}
	for _, c := range r.chapters {
		if filter.matches(c) {
			ret = append(ret, c)
		}
	}
	sort.SliceStable(ret, func(i, j int) bool {
		li, lj := levelRank(ret[i].Level), levelRank(ret[j].Level)
		if li != lj {
			return li < lj
		}
		return ret[i].Title < ret[j].Title
	})
	return ret
}

func (r *StaticRepository) Badges() []Badge {
	return append([]Badge{}, r.badges...)
}

func (r *StaticRepository) Badge(id string) (Badge, bool) {
	for _, b := range r.badges {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

func levelRank(l Level) int {
	for i, v := range Levels {
		if v == l {
			return i
		}
	}
	return len(Levels)
}
