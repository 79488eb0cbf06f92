/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game holds the role assignment and scoring rules of the secret
// millionaire party game. Everything here is pure: callers hand in complete
// snapshots (players, votes, catalog) and receive complete results back.
package game

import (
	"fmt"
	"strings"
)

// RoleKind separates the hidden target, its accomplices and everyone else.
type RoleKind string

const (
	KindTarget     RoleKind = "target"
	KindAccomplice RoleKind = "accomplice"
	KindRegular    RoleKind = "regular"
)

// Category is the flavour of an objective.
type Category string

const (
	CategoryPersonal    Category = "personal"
	CategoryDiscovery   Category = "discovery"
	CategoryInteraction Category = "interaction"
)

// Outcome scoring bucket names, as used by story files.
const (
	OutcomeNotCaught          = "notCaught"
	OutcomePartiallyCaught    = "partiallyCaught"
	OutcomeCaught             = "caught"
	OutcomeMillionaireSafe    = "millionaireSafe"
	OutcomeMillionairePartial = "millionairePartial"
	OutcomeMillionaireCaught  = "millionaireCaught"
)

// Objective is the scoring structure of one objective. Display copy lives
// with the story, not here.
type Objective struct {
	Key                  string
	Category             Category
	Points               int
	TargetRoleKey        string // discovery only
	RequiresDiscoveryKey string // interaction only
}

// Role is one catalog entry.
type Role struct {
	Key            string
	Kind           RoleKind
	PairedWith     string
	Objectives     []Objective
	OutcomeScoring map[string]int
}

// Objective returns the objective with the given key.
func (r Role) Objective(key string) (Objective, bool) {
	for _, o := range r.Objectives {
		if o.Key == key {
			return o, true
		}
	}
	return Objective{}, false
}

// Pair is two Regular roles that should land in the same game together.
type Pair struct {
	First  string
	Second string
}

// Catalog is an immutable, validated set of roles for one story.
type Catalog struct {
	roles      []Role
	index      map[string]int
	target     string
	accomplice string
	regular    []string
	pairs      []Pair
}

// NewCatalog validates roles and pairs and returns a catalog that is safe to
// share between concurrently running games. When pairs is empty they are
// derived from the roles' PairedWith fields in declaration order.
func NewCatalog(roles []Role, pairs []Pair) (*Catalog, error) {
	c := &Catalog{
		roles: make([]Role, 0, len(roles)),
		index: make(map[string]int, len(roles)),
	}

	for _, r := range roles {
		r.Key = strings.TrimSpace(r.Key)
		if r.Key == "" {
			return nil, configErr(CodeUnknownRole, "role key is required")
		}
		if _, dup := c.index[r.Key]; dup {
			return nil, configErr(CodeDuplicateRole, "role declared twice", "role", r.Key)
		}

		switch r.Kind {
		case KindTarget:
			if c.target != "" {
				return nil, configErr(CodeDuplicateTarget, "catalog declares more than one target role", "role", r.Key, "existing", c.target)
			}
			c.target = r.Key
		case KindAccomplice:
			if c.accomplice != "" {
				return nil, configErr(CodeDuplicateAccomplice, "catalog declares more than one accomplice role", "role", r.Key, "existing", c.accomplice)
			}
			c.accomplice = r.Key
		case KindRegular:
			if len(r.OutcomeScoring) > 0 {
				return nil, configErr(CodeInvalidScoring, "outcome scoring is only allowed on target and accomplice roles", "role", r.Key)
			}
			c.regular = append(c.regular, r.Key)
		default:
			return nil, configErr(CodeUnknownRole, fmt.Sprintf("unknown role kind %q", r.Kind), "role", r.Key)
		}

		c.index[r.Key] = len(c.roles)
		c.roles = append(c.roles, cloneRole(r))
	}

	if c.target == "" {
		return nil, configErr(CodeMissingTarget, "catalog has no target role")
	}
	if len(c.regular) == 0 {
		return nil, configErr(CodeNoRegularRoles, "catalog has no regular roles")
	}

	for _, r := range c.roles {
		if err := c.validateObjectives(r); err != nil {
			return nil, err
		}
	}

	if len(pairs) == 0 {
		pairs = c.derivePairs()
	}
	if err := c.setPairs(pairs); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Catalog) validateObjectives(r Role) error {
	seen := make(map[string]Objective, len(r.Objectives))

	for _, o := range r.Objectives {
		if o.Key == "" {
			return configErr(CodeInvalidObjective, "objective key is required", "role", r.Key)
		}
		if _, dup := seen[o.Key]; dup {
			return configErr(CodeInvalidObjective, "objective declared twice", "role", r.Key, "objective", o.Key)
		}
		if o.Points < 0 {
			return configErr(CodeInvalidObjective, "objective points must not be negative", "role", r.Key, "objective", o.Key)
		}

		switch o.Category {
		case CategoryPersonal:
		case CategoryDiscovery:
			if o.TargetRoleKey == "" {
				return configErr(CodeInvalidObjective, "discovery objective needs a target role", "role", r.Key, "objective", o.Key)
			}
			if _, ok := c.index[o.TargetRoleKey]; !ok {
				return configErr(CodeUnknownRole, "discovery objective targets an unknown role", "role", r.Key, "objective", o.Key, "target", o.TargetRoleKey)
			}
		case CategoryInteraction:
		default:
			return configErr(CodeInvalidObjective, fmt.Sprintf("unknown objective category %q", o.Category), "role", r.Key, "objective", o.Key)
		}

		if o.Category != CategoryDiscovery && o.TargetRoleKey != "" {
			return configErr(CodeInvalidObjective, "only discovery objectives may target a role", "role", r.Key, "objective", o.Key)
		}
		if o.Category != CategoryInteraction && o.RequiresDiscoveryKey != "" {
			return configErr(CodeInvalidObjective, "only interaction objectives may require a discovery", "role", r.Key, "objective", o.Key)
		}

		seen[o.Key] = o
	}

	// Dependencies point from interaction to discovery only, so the graph is
	// acyclic with depth one once every reference resolves.
	for _, o := range r.Objectives {
		if o.RequiresDiscoveryKey == "" {
			continue
		}
		dep, ok := seen[o.RequiresDiscoveryKey]
		if !ok || dep.Category != CategoryDiscovery {
			return configErr(CodeInvalidObjective, "interaction objective requires an unknown discovery", "role", r.Key, "objective", o.Key, "requires", o.RequiresDiscoveryKey)
		}
	}

	return nil
}

func (c *Catalog) derivePairs() []Pair {
	var pairs []Pair
	seen := make(map[string]bool)

	for _, key := range c.regular {
		r := c.roles[c.index[key]]
		if r.PairedWith == "" || seen[r.Key] || seen[r.PairedWith] {
			continue
		}
		seen[r.Key] = true
		seen[r.PairedWith] = true
		pairs = append(pairs, Pair{First: r.Key, Second: r.PairedWith})
	}

	return pairs
}

func (c *Catalog) setPairs(pairs []Pair) error {
	partner := make(map[string]string, len(pairs)*2)

	for _, p := range pairs {
		for _, key := range []string{p.First, p.Second} {
			i, ok := c.index[key]
			if !ok {
				return configErr(CodeUnknownRole, "pair references an unknown role", "role", key)
			}
			if c.roles[i].Kind != KindRegular {
				return configErr(CodeInvalidPair, "only regular roles can be paired", "role", key)
			}
			if _, taken := partner[key]; taken {
				return configErr(CodeInvalidPair, "role belongs to more than one pair", "role", key)
			}
		}
		if p.First == p.Second {
			return configErr(CodeInvalidPair, "role cannot be paired with itself", "role", p.First)
		}

		partner[p.First] = p.Second
		partner[p.Second] = p.First
	}

	for _, key := range c.regular {
		r := c.roles[c.index[key]]
		if r.PairedWith == "" {
			continue
		}
		if _, ok := c.index[r.PairedWith]; !ok {
			return configErr(CodeUnknownRole, "role is paired with an unknown role", "role", r.Key, "paired_with", r.PairedWith)
		}
		if got, ok := partner[r.Key]; ok && got != r.PairedWith {
			return configErr(CodeInvalidPair, "role partner disagrees with declared pairs", "role", r.Key, "paired_with", r.PairedWith, "pair", got)
		}
	}

	c.pairs = append([]Pair(nil), pairs...)

	return nil
}

// Role returns the role with the given key.
func (c *Catalog) Role(key string) (Role, bool) {
	i, ok := c.index[key]
	if !ok {
		return Role{}, false
	}
	return cloneRole(c.roles[i]), true
}

// Kind returns the kind of the given role key, or "" when unknown.
func (c *Catalog) Kind(key string) RoleKind {
	i, ok := c.index[key]
	if !ok {
		return ""
	}
	return c.roles[i].Kind
}

// Roles returns every role in declaration order.
func (c *Catalog) Roles() []Role {
	out := make([]Role, len(c.roles))
	for i, r := range c.roles {
		out[i] = cloneRole(r)
	}
	return out
}

// TargetKey is the key of the single target role.
func (c *Catalog) TargetKey() string {
	return c.target
}

// AccompliceKey is the key of the accomplice role, or "" if the story has none.
func (c *Catalog) AccompliceKey() string {
	return c.accomplice
}

// RegularKeys lists the regular role keys in declaration order.
func (c *Catalog) RegularKeys() []string {
	return append([]string(nil), c.regular...)
}

// Pairs lists the declared pairs in priority order.
func (c *Catalog) Pairs() []Pair {
	return append([]Pair(nil), c.pairs...)
}

// MaxPlayers is the largest player count the catalog can seat under opts.
func (c *Catalog) MaxPlayers(opts AssignOptions) int {
	best := 0
	for n := 1; n <= len(c.regular)+3; n++ {
		if n-1-c.accompliceCount(n, opts) <= len(c.regular) {
			best = n
		}
	}
	return best
}

func cloneRole(r Role) Role {
	r.Objectives = append([]Objective(nil), r.Objectives...)
	if r.OutcomeScoring != nil {
		scoring := make(map[string]int, len(r.OutcomeScoring))
		for k, v := range r.OutcomeScoring {
			scoring[k] = v
		}
		r.OutcomeScoring = scoring
	}
	return r
}
