/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math/rand/v2"
	"slices"
	"strconv"
)

// Default thresholds used by stories that do not set their own.
const (
	DefaultAccompliceThreshold       = 12
	DefaultSecondAccompliceThreshold = 16
)

// AssignOptions controls the accomplice slots of an assignment.
type AssignOptions struct {
	UseAccomplice             bool
	AccompliceThreshold       int
	SecondAccompliceThreshold int
}

// DefaultAssignOptions enables the accomplice with the default thresholds.
func DefaultAssignOptions() AssignOptions {
	return AssignOptions{
		UseAccomplice:             true,
		AccompliceThreshold:       DefaultAccompliceThreshold,
		SecondAccompliceThreshold: DefaultSecondAccompliceThreshold,
	}
}

// Assignment maps player id to role key. It is created once per game and
// never edited afterwards.
type Assignment map[string]string

// RoleOf returns the role key assigned to playerID.
func (a Assignment) RoleOf(playerID string) (string, bool) {
	key, ok := a[playerID]
	return key, ok
}

// Holders lists the players assigned roleKey, sorted by id.
func (a Assignment) Holders(roleKey string) []string {
	var ids []string
	for id, key := range a {
		if key == roleKey {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Assignor partitions players into roles. Its random source is the only
// non-deterministic input, so an Assignor built from a fixed seed always
// produces the same assignment for the same arguments. An Assignor is not
// safe for concurrent use.
type Assignor struct {
	rng *rand.Rand
}

// NewAssignor returns an Assignor drawing from rng. A nil rng is replaced by
// one seeded from crypto/rand.
func NewAssignor(rng *rand.Rand) *Assignor {
	if rng == nil {
		rng = NewRand(MustSeed())
	}
	return &Assignor{rng: rng}
}

// Assign gives every player exactly one role: the target first, then up to
// two accomplices, then regular roles drawn pair by pair from the catalog.
func (a *Assignor) Assign(playerIDs []string, catalog *Catalog, opts AssignOptions) (Assignment, error) {
	if catalog == nil {
		return nil, configErr(CodeMissingTarget, "catalog is required")
	}
	if len(playerIDs) == 0 {
		return nil, configErr(CodeNoPlayers, "at least one player is required")
	}

	seen := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		if seen[id] {
			return nil, configErr(CodeDuplicatePlayer, "player listed twice", "player", id)
		}
		seen[id] = true
	}

	n := len(playerIDs)
	accomplices := min(catalog.accompliceCount(n, opts), n-1)
	remaining := n - 1 - accomplices

	pool := catalog.regularPool(remaining)
	if len(pool) < remaining {
		return nil, configErr(CodeRegularPoolExhausted, "story does not define enough regular roles for this many players",
			"players", strconv.Itoa(n),
			"needed", strconv.Itoa(remaining),
			"available", strconv.Itoa(len(pool)),
		)
	}

	shuffled := append([]string(nil), playerIDs...)
	a.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	assignment := make(Assignment, n)

	next := 0
	assignment[shuffled[next]] = catalog.target
	next++

	for i := 0; i < accomplices; i++ {
		assignment[shuffled[next]] = catalog.accomplice
		next++
	}

	a.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	for i := 0; next < n; i++ {
		assignment[shuffled[next]] = pool[i]
		next++
	}

	return assignment, nil
}

func (c *Catalog) accompliceCount(players int, opts AssignOptions) int {
	if !opts.UseAccomplice || c.accomplice == "" || players < opts.AccompliceThreshold {
		return 0
	}
	if players >= opts.SecondAccompliceThreshold {
		return 2
	}
	return 1
}

// regularPool collects regular role keys for demand seats: whole pairs in
// catalog order until demand is met, then unpaired leftovers in declaration
// order. The pool may overshoot demand by one when the last pair is split.
func (c *Catalog) regularPool(demand int) []string {
	if demand <= 0 {
		return nil
	}

	pool := make([]string, 0, demand+1)
	used := make(map[string]bool, demand+1)

	for _, p := range c.pairs {
		if len(pool) >= demand {
			break
		}
		if used[p.First] || used[p.Second] {
			continue
		}
		pool = append(pool, p.First, p.Second)
		used[p.First] = true
		used[p.Second] = true
	}

	for _, key := range c.regular {
		if len(pool) >= demand {
			break
		}
		if used[key] {
			continue
		}
		pool = append(pool, key)
		used[key] = true
	}

	return pool
}
