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

func countKinds(c *Catalog, a Assignment) map[RoleKind]int {
	counts := make(map[RoleKind]int)
	for _, key := range a {
		counts[c.Kind(key)]++
	}
	return counts
}

func TestAssignGivesEveryPlayerOneRole(t *testing.T) {
	c := testCatalog(t, 8, 2)
	assignor := NewAssignor(NewRand(7))

	for n := 1; n <= c.MaxPlayers(DefaultAssignOptions()); n++ {
		ids := playerIDs(n)

		a, err := assignor.Assign(ids, c, DefaultAssignOptions())
		require.NoError(t, err, "players=%d", n)
		require.Len(t, a, n)

		for _, id := range ids {
			key, ok := a.RoleOf(id)
			require.True(t, ok, "player %s has no role", id)
			assert.NotEmpty(t, c.Kind(key))
		}

		// Regular roles are never handed out twice.
		seen := make(map[string]bool)
		for _, key := range a {
			if c.Kind(key) != KindRegular {
				continue
			}
			assert.False(t, seen[key], "role %s assigned twice", key)
			seen[key] = true
		}

		assert.Equal(t, 1, countKinds(c, a)[KindTarget], "players=%d", n)
	}
}

func TestAssignAccompliceThresholds(t *testing.T) {
	c := testCatalog(t, 8, 2)
	assignor := NewAssignor(NewRand(11))

	tests := []struct {
		players int
		opts    AssignOptions
		want    int
	}{
		{players: 6, opts: DefaultAssignOptions(), want: 0},
		{players: 11, opts: DefaultAssignOptions(), want: 0},
		{players: 12, opts: DefaultAssignOptions(), want: 1},
		{players: 15, opts: DefaultAssignOptions(), want: 1},
		{players: 16, opts: DefaultAssignOptions(), want: 2},
		{players: 16, opts: AssignOptions{UseAccomplice: false, AccompliceThreshold: 12, SecondAccompliceThreshold: 16}, want: 0},
		{players: 6, opts: AssignOptions{UseAccomplice: true, AccompliceThreshold: 6, SecondAccompliceThreshold: 8}, want: 1},
	}

	for _, tt := range tests {
		a, err := assignor.Assign(playerIDs(tt.players), c, tt.opts)
		require.NoError(t, err)
		assert.Equal(t, tt.want, countKinds(c, a)[KindAccomplice], "players=%d opts=%+v", tt.players, tt.opts)
	}
}

func TestAssignWithoutAccompliceRole(t *testing.T) {
	roles := testRoles(8, 0)
	roles = append(roles[:1], roles[2:]...)

	c, err := NewCatalog(roles, nil)
	require.NoError(t, err)

	a, err := NewAssignor(NewRand(3)).Assign(playerIDs(16), c, DefaultAssignOptions())
	require.NoError(t, err)

	kinds := countKinds(c, a)
	assert.Equal(t, 1, kinds[KindTarget])
	assert.Equal(t, 0, kinds[KindAccomplice])
	assert.Equal(t, 15, kinds[KindRegular])
}

func TestAssignKeepsPairsTogether(t *testing.T) {
	c := testCatalog(t, 8, 2)

	for seed := int64(1); seed <= 50; seed++ {
		assignor := NewAssignor(NewRand(seed))

		for n := 2; n <= 14; n++ {
			a, err := assignor.Assign(playerIDs(n), c, DefaultAssignOptions())
			require.NoError(t, err)

			held := make(map[string]bool)
			for _, key := range a {
				held[key] = true
			}

			split := 0
			for _, p := range c.Pairs() {
				if held[p.First] != held[p.Second] {
					split++
				}
			}

			regular := countKinds(c, a)[KindRegular]
			if regular%2 == 0 {
				assert.Zero(t, split, "seed=%d players=%d", seed, n)
			} else {
				assert.LessOrEqual(t, split, 1, "seed=%d players=%d", seed, n)
			}
		}
	}
}

func TestAssignPrefersPairsOverSingles(t *testing.T) {
	c := testCatalog(t, 3, 2)

	// 7 players: target + 6 regular seats, exactly the three pairs.
	a, err := NewAssignor(NewRand(5)).Assign(playerIDs(7), c, DefaultAssignOptions())
	require.NoError(t, err)

	for _, key := range a {
		assert.NotContains(t, []string{"single00", "single01"}, key)
	}

	// 9 players: every pair plus both singles.
	a, err = NewAssignor(NewRand(5)).Assign(playerIDs(9), c, DefaultAssignOptions())
	require.NoError(t, err)
	assert.Len(t, a.Holders("single00"), 1)
	assert.Len(t, a.Holders("single01"), 1)
}

func TestAssignTwelvePlayers(t *testing.T) {
	c := testCatalog(t, 6, 0)

	a, err := NewAssignor(NewRand(42)).Assign(playerIDs(12), c, DefaultAssignOptions())
	require.NoError(t, err)

	kinds := countKinds(c, a)
	assert.Equal(t, 1, kinds[KindTarget])
	assert.Equal(t, 1, kinds[KindAccomplice])
	assert.Equal(t, 10, kinds[KindRegular])
}

func TestAssignIsDeterministicForSeed(t *testing.T) {
	c := testCatalog(t, 8, 2)
	ids := playerIDs(13)

	first, err := NewAssignor(NewRand(1234)).Assign(ids, c, DefaultAssignOptions())
	require.NoError(t, err)

	second, err := NewAssignor(NewRand(1234)).Assign(ids, c, DefaultAssignOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssignRejects(t *testing.T) {
	c := testCatalog(t, 2, 0)
	assignor := NewAssignor(NewRand(1))

	_, err := assignor.Assign(nil, c, DefaultAssignOptions())
	assert.True(t, errors.Is(err, &ConfigurationError{Code: CodeNoPlayers}))

	_, err = assignor.Assign([]string{"a", "b", "a"}, c, DefaultAssignOptions())
	assert.True(t, errors.Is(err, &ConfigurationError{Code: CodeDuplicatePlayer}))

	// 4 regular roles cannot seat 6 non-target players.
	_, err = assignor.Assign(playerIDs(7), c, DefaultAssignOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, &ConfigurationError{Code: CodeRegularPoolExhausted}))

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "6", cfgErr.Metadata["needed"])
	assert.Equal(t, "4", cfgErr.Metadata["available"])
}

func TestAssignSinglePlayerIsTarget(t *testing.T) {
	c := testCatalog(t, 1, 0)

	a, err := NewAssignor(NewRand(1)).Assign([]string{"solo"}, c, AssignOptions{UseAccomplice: true, AccompliceThreshold: 1, SecondAccompliceThreshold: 1})
	require.NoError(t, err)
	assert.Equal(t, Assignment{"solo": "millionaire"}, a)
}

func TestAssignDoesNotMutateInput(t *testing.T) {
	c := testCatalog(t, 4, 0)
	ids := playerIDs(8)
	before := append([]string(nil), ids...)

	_, err := NewAssignor(NewRand(9)).Assign(ids, c, DefaultAssignOptions())
	require.NoError(t, err)
	assert.Equal(t, before, ids)
}
