/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package stories loads story files: a role catalog plus the copy shown to
// players for each role and objective.
package stories

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/drilonhametaj25/milionario-game/game"
	"go.yaml.in/yaml/v3"
)

//go:embed data/*.yaml
var builtin embed.FS

// DefaultSlug is the story used when a room does not pick one.
const DefaultSlug = "milionario"

var ErrUnknownStory = errors.New("unknown story")

// ObjectiveCopy is the display text of one objective.
type ObjectiveCopy struct {
	Key          string `json:"key"`
	Category     string `json:"category"`
	Text         string `json:"text"`
	Hint         string `json:"hint,omitempty"`
	Points       int    `json:"points"`
	Risk         string `json:"risk,omitempty"`
	TargetRole   string `json:"target_role,omitempty"`
	Requires     string `json:"requires_discovery,omitempty"`
	FallbackText string `json:"fallback_text,omitempty"`
}

// RoleCopy is the display text of one role.
type RoleCopy struct {
	Key         string          `json:"key"`
	Kind        string          `json:"kind"`
	Name        string          `json:"name"`
	Emoji       string          `json:"emoji,omitempty"`
	Description string          `json:"description,omitempty"`
	Objectives  []ObjectiveCopy `json:"objectives"`
}

// Story is a loaded, validated story.
type Story struct {
	Slug       string
	Title      string
	Tagline    string
	Setting    string
	Emoji      string
	MinPlayers int
	MaxPlayers int
	Options    game.AssignOptions
	Catalog    *game.Catalog

	roles map[string]RoleCopy
}

// Role returns the display copy for a role key.
func (s *Story) Role(key string) (RoleCopy, bool) {
	r, ok := s.roles[key]
	return r, ok
}

// Capacity is the largest room the story supports: its declared maximum,
// capped by what the catalog can actually seat.
func (s *Story) Capacity() int {
	seats := s.Catalog.MaxPlayers(s.Options)
	if s.MaxPlayers > 0 && s.MaxPlayers < seats {
		return s.MaxPlayers
	}
	return seats
}

type objectiveFile struct {
	Key          string `yaml:"key"`
	Category     string `yaml:"category"`
	Text         string `yaml:"text"`
	Hint         string `yaml:"hint"`
	Points       int    `yaml:"points"`
	Risk         string `yaml:"risk"`
	TargetRole   string `yaml:"target_role"`
	Requires     string `yaml:"requires_discovery"`
	FallbackText string `yaml:"fallback_text"`
}

type roleFile struct {
	Key            string          `yaml:"key"`
	Kind           string          `yaml:"kind"`
	Name           string          `yaml:"name"`
	Emoji          string          `yaml:"emoji"`
	Description    string          `yaml:"description"`
	PairedWith     string          `yaml:"paired_with"`
	OutcomeScoring map[string]int  `yaml:"outcome_scoring"`
	Objectives     []objectiveFile `yaml:"objectives"`
}

type storyFile struct {
	Slug                      string     `yaml:"slug"`
	Title                     string     `yaml:"title"`
	Tagline                   string     `yaml:"tagline"`
	Setting                   string     `yaml:"setting"`
	Emoji                     string     `yaml:"emoji"`
	MinPlayers                int        `yaml:"min_players"`
	MaxPlayers                int        `yaml:"max_players"`
	HasAccomplice             *bool      `yaml:"has_accomplice"`
	AccompliceThreshold       int        `yaml:"accomplice_threshold"`
	SecondAccompliceThreshold int        `yaml:"second_accomplice_threshold"`
	RegularsFrom              string     `yaml:"regulars_from"`
	Pairs                     [][]string `yaml:"pairs"`
	Roles                     []roleFile `yaml:"roles"`
}

// Parse decodes and validates one standalone story file. Unknown fields
// are rejected. Stories borrowing regulars_from another story can only be
// loaded through a Library.
func Parse(data []byte) (*Story, error) {
	f, err := decode(data)
	if err != nil {
		return nil, err
	}
	if f.RegularsFrom != "" {
		return nil, fmt.Errorf("story %s: regulars_from %q needs a library", f.Slug, f.RegularsFrom)
	}

	return f.build()
}

func decode(data []byte) (*storyFile, error) {
	var f storyFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode story: %w", err)
	}

	f.RegularsFrom = strings.ToLower(strings.TrimSpace(f.RegularsFrom))

	return &f, nil
}

// declaredPairs returns pairs, or when empty the pairs implied by the
// paired_with fields of roles.
func declaredPairs(roles []roleFile, pairs [][]string) [][]string {
	if len(pairs) > 0 {
		return pairs
	}

	var out [][]string
	seen := make(map[string]bool)
	for _, r := range roles {
		if r.PairedWith == "" || seen[r.Key] || seen[r.PairedWith] {
			continue
		}
		seen[r.Key] = true
		seen[r.PairedWith] = true
		out = append(out, []string{r.Key, r.PairedWith})
	}

	return out
}

// borrow fills the story's seats with every regular role of base it does
// not define itself. Its own pairs keep priority over base's.
func (f *storyFile) borrow(base *storyFile) *storyFile {
	out := *f
	out.RegularsFrom = ""
	out.Roles = append([]roleFile(nil), f.Roles...)
	out.Pairs = append([][]string(nil), declaredPairs(f.Roles, f.Pairs)...)

	own := make(map[string]bool, len(f.Roles))
	for _, r := range f.Roles {
		own[r.Key] = true
	}

	added := make(map[string]bool)
	for _, r := range base.Roles {
		if game.RoleKind(r.Kind) != game.KindRegular || own[r.Key] {
			continue
		}
		out.Roles = append(out.Roles, r)
		added[r.Key] = true
	}

	for _, p := range declaredPairs(base.Roles, base.Pairs) {
		if len(p) == 2 && added[p[0]] && added[p[1]] {
			out.Pairs = append(out.Pairs, p)
		}
	}

	return &out
}

func (f *storyFile) build() (*Story, error) {
	f.Slug = strings.ToLower(strings.TrimSpace(f.Slug))
	if f.Slug == "" {
		return nil, errors.New("story slug is required")
	}
	if f.MinPlayers < 1 {
		f.MinPlayers = 1
	}
	if f.MaxPlayers != 0 && f.MaxPlayers < f.MinPlayers {
		return nil, fmt.Errorf("story %s: max_players %d is below min_players %d", f.Slug, f.MaxPlayers, f.MinPlayers)
	}

	opts := game.DefaultAssignOptions()
	if f.HasAccomplice != nil {
		opts.UseAccomplice = *f.HasAccomplice
	}
	if f.AccompliceThreshold > 0 {
		opts.AccompliceThreshold = f.AccompliceThreshold
	}
	if f.SecondAccompliceThreshold > 0 {
		opts.SecondAccompliceThreshold = f.SecondAccompliceThreshold
	}
	if opts.SecondAccompliceThreshold < opts.AccompliceThreshold {
		return nil, fmt.Errorf("story %s: second_accomplice_threshold must not be below accomplice_threshold", f.Slug)
	}

	roles := make([]game.Role, 0, len(f.Roles))
	copies := make(map[string]RoleCopy, len(f.Roles))

	for _, r := range f.Roles {
		role := game.Role{
			Key:            r.Key,
			Kind:           game.RoleKind(r.Kind),
			PairedWith:     r.PairedWith,
			OutcomeScoring: r.OutcomeScoring,
		}
		rc := RoleCopy{
			Key:         r.Key,
			Kind:        r.Kind,
			Name:        r.Name,
			Emoji:       r.Emoji,
			Description: r.Description,
		}

		for _, o := range r.Objectives {
			switch o.Risk {
			case "", "low", "medium", "high":
			default:
				return nil, fmt.Errorf("story %s: role %s objective %s: unknown risk %q", f.Slug, r.Key, o.Key, o.Risk)
			}

			role.Objectives = append(role.Objectives, game.Objective{
				Key:                  o.Key,
				Category:             game.Category(o.Category),
				Points:               o.Points,
				TargetRoleKey:        o.TargetRole,
				RequiresDiscoveryKey: o.Requires,
			})
			rc.Objectives = append(rc.Objectives, ObjectiveCopy(o))
		}

		roles = append(roles, role)
		copies[r.Key] = rc
	}

	pairs := make([]game.Pair, 0, len(f.Pairs))
	for i, p := range f.Pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("story %s: pair %d must name exactly two roles", f.Slug, i)
		}
		pairs = append(pairs, game.Pair{First: p[0], Second: p[1]})
	}

	catalog, err := game.NewCatalog(roles, pairs)
	if err != nil {
		return nil, fmt.Errorf("story %s: %w", f.Slug, err)
	}

	s := &Story{
		Slug:       f.Slug,
		Title:      f.Title,
		Tagline:    f.Tagline,
		Setting:    f.Setting,
		Emoji:      f.Emoji,
		MinPlayers: f.MinPlayers,
		MaxPlayers: f.MaxPlayers,
		Options:    opts,
		Catalog:    catalog,
		roles:      copies,
	}

	if s.Capacity() < s.MinPlayers {
		return nil, fmt.Errorf("story %s: catalog seats %d players, below min_players %d", f.Slug, s.Capacity(), s.MinPlayers)
	}

	return s, nil
}

// Library is a set of stories keyed by slug.
type Library struct {
	stories map[string]*Story
	files   map[string]*storyFile
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{
		stories: make(map[string]*Story),
		files:   make(map[string]*storyFile),
	}
}

// Add registers a story, refusing duplicate slugs.
func (l *Library) Add(s *Story) error {
	if _, ok := l.stories[s.Slug]; ok {
		return fmt.Errorf("story %s: declared twice", s.Slug)
	}
	l.stories[s.Slug] = s
	return nil
}

// LoadFS adds every .yaml or .yml file at the root of fsys. Stories with
// regulars_from are built last, so they may borrow from a story in the
// same directory or from one loaded earlier.
func (l *Library) LoadFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read story directory: %w", err)
	}

	var borrowing []*storyFile
	names := make(map[*storyFile]string)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(e.Name())) {
		case ".yaml", ".yml":
		default:
			continue
		}

		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Name(), err)
		}

		f, err := decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}

		if f.RegularsFrom != "" {
			borrowing = append(borrowing, f)
			names[f] = e.Name()
			continue
		}

		if err := l.addFile(f); err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
	}

	for _, f := range borrowing {
		base, ok := l.files[f.RegularsFrom]
		if !ok {
			return fmt.Errorf("%s: regulars_from: %w: %q", names[f], ErrUnknownStory, f.RegularsFrom)
		}

		if err := l.addFile(f.borrow(base)); err != nil {
			return fmt.Errorf("%s: %w", names[f], err)
		}
	}

	return nil
}

func (l *Library) addFile(f *storyFile) error {
	s, err := f.build()
	if err != nil {
		return err
	}

	if err := l.Add(s); err != nil {
		return err
	}

	l.files[s.Slug] = f
	return nil
}

// Get returns the story with the given slug.
func (l *Library) Get(slug string) (*Story, error) {
	s, ok := l.stories[strings.ToLower(slug)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStory, slug)
	}
	return s, nil
}

// List returns every story ordered by slug.
func (l *Library) List() []*Story {
	out := make([]*Story, 0, len(l.stories))
	for _, s := range l.stories {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Slug < out[j].Slug
	})

	return out
}

// Len is the number of stories.
func (l *Library) Len() int {
	return len(l.stories)
}

// Load builds a library from the embedded stories plus, when dir is not
// empty, every story file in dir.
func Load(dir string) (*Library, error) {
	l := NewLibrary()

	data, err := fs.Sub(builtin, "data")
	if err != nil {
		return nil, err
	}
	if err := l.LoadFS(data); err != nil {
		return nil, err
	}

	if dir != "" {
		if err := l.LoadFS(os.DirFS(dir)); err != nil {
			return nil, err
		}
	}

	return l, nil
}
