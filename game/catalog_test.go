/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogDerivesPairs(t *testing.T) {
	c := testCatalog(t, 3, 1)

	assert.Equal(t, "millionaire", c.TargetKey())
	assert.Equal(t, "accomplice", c.AccompliceKey())
	assert.Len(t, c.RegularKeys(), 7)
	assert.Equal(t, []Pair{
		{First: "pair00a", Second: "pair00b"},
		{First: "pair01a", Second: "pair01b"},
		{First: "pair02a", Second: "pair02b"},
	}, c.Pairs())
}

func TestNewCatalogExplicitPairsKeepOrder(t *testing.T) {
	pairs := []Pair{
		{First: "pair01a", Second: "pair01b"},
		{First: "pair00a", Second: "pair00b"},
	}

	c, err := NewCatalog(testRoles(2, 0), pairs)
	require.NoError(t, err)
	assert.Equal(t, pairs, c.Pairs())
}

func TestNewCatalogRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]Role) []Role
		pairs  []Pair
		code   ErrorCode
	}{
		{
			name: "no target",
			mutate: func(r []Role) []Role {
				return r[1:]
			},
			code: CodeMissingTarget,
		},
		{
			name: "two targets",
			mutate: func(r []Role) []Role {
				return append(r, Role{Key: "other", Kind: KindTarget})
			},
			code: CodeDuplicateTarget,
		},
		{
			name: "two accomplices",
			mutate: func(r []Role) []Role {
				return append(r, Role{Key: "other", Kind: KindAccomplice})
			},
			code: CodeDuplicateAccomplice,
		},
		{
			name: "no regular roles",
			mutate: func(r []Role) []Role {
				return r[:2]
			},
			code: CodeNoRegularRoles,
		},
		{
			name: "duplicate key",
			mutate: func(r []Role) []Role {
				return append(r, Role{Key: "single00", Kind: KindRegular})
			},
			code: CodeDuplicateRole,
		},
		{
			name: "unknown kind",
			mutate: func(r []Role) []Role {
				return append(r, Role{Key: "ghost", Kind: "ghost"})
			},
			code: CodeUnknownRole,
		},
		{
			name: "outcome scoring on regular",
			mutate: func(r []Role) []Role {
				r[2].OutcomeScoring = map[string]int{OutcomeNotCaught: 5}
				return r
			},
			code: CodeInvalidScoring,
		},
		{
			name: "discovery without target",
			mutate: func(r []Role) []Role {
				r[2].Objectives = []Objective{{Key: "find", Category: CategoryDiscovery, Points: 1}}
				return r
			},
			code: CodeInvalidObjective,
		},
		{
			name: "discovery of unknown role",
			mutate: func(r []Role) []Role {
				r[2].Objectives = []Objective{{Key: "find", Category: CategoryDiscovery, TargetRoleKey: "nobody"}}
				return r
			},
			code: CodeUnknownRole,
		},
		{
			name: "interaction requiring personal",
			mutate: func(r []Role) []Role {
				r[2].Objectives = []Objective{
					{Key: "solo", Category: CategoryPersonal},
					{Key: "talk", Category: CategoryInteraction, RequiresDiscoveryKey: "solo"},
				}
				return r
			},
			code: CodeInvalidObjective,
		},
		{
			name: "personal with requirement",
			mutate: func(r []Role) []Role {
				r[2].Objectives = []Objective{
					{Key: "find", Category: CategoryDiscovery, TargetRoleKey: "millionaire"},
					{Key: "solo", Category: CategoryPersonal, RequiresDiscoveryKey: "find"},
				}
				return r
			},
			code: CodeInvalidObjective,
		},
		{
			name: "negative points",
			mutate: func(r []Role) []Role {
				r[2].Objectives = []Objective{{Key: "solo", Category: CategoryPersonal, Points: -1}}
				return r
			},
			code: CodeInvalidObjective,
		},
		{
			name: "paired with unknown role",
			mutate: func(r []Role) []Role {
				r[len(r)-1].PairedWith = "nobody"
				return r
			},
			code: CodeUnknownRole,
		},
		{
			name:   "pair with target",
			mutate: func(r []Role) []Role { return r },
			pairs:  []Pair{{First: "millionaire", Second: "single00"}},
			code:   CodeInvalidPair,
		},
		{
			name:   "role in two pairs",
			mutate: func(r []Role) []Role { return r },
			pairs: []Pair{
				{First: "pair00a", Second: "pair00b"},
				{First: "pair00a", Second: "single00"},
			},
			code: CodeInvalidPair,
		},
		{
			name:   "self pair",
			mutate: func(r []Role) []Role { return r },
			pairs:  []Pair{{First: "single00", Second: "single00"}},
			code:   CodeInvalidPair,
		},
		{
			name:   "pair disagrees with paired_with",
			mutate: func(r []Role) []Role { return r },
			pairs:  []Pair{{First: "pair00a", Second: "single00"}},
			code:   CodeInvalidPair,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.mutate(testRoles(1, 1)), tt.pairs)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			assert.True(t, errors.Is(err, &ConfigurationError{Code: tt.code}), "got %v", err)
		})
	}
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := testCatalog(t, 1, 0)

	role, ok := c.Role("millionaire")
	require.True(t, ok)
	role.OutcomeScoring[OutcomeNotCaught] = 999
	role.Objectives[0].Points = 999

	again, _ := c.Role("millionaire")
	assert.Equal(t, 40, again.OutcomeScoring[OutcomeNotCaught])
	assert.Equal(t, 15, again.Objectives[0].Points)
}

func TestCatalogMaxPlayers(t *testing.T) {
	c := testCatalog(t, 5, 0)

	assert.Equal(t, 11, c.MaxPlayers(AssignOptions{}))
	// 10 regular + target + accomplice at 12, and 16 is out of reach.
	assert.Equal(t, 12, c.MaxPlayers(DefaultAssignOptions()))
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := configErr(CodeInvalidPair, "bad pair", "role", "a", "partner", "b")

	assert.Equal(t, "bad pair (partner=b, role=a)", err.Error())
	assert.True(t, errors.Is(err, &ConfigurationError{}))
	assert.False(t, errors.Is(err, &ConfigurationError{Code: CodeMissingTarget}))
}
