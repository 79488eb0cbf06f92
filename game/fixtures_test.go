/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// detectiveObjectives is the objective set every regular test role carries.
func detectiveObjectives() []Objective {
	return []Objective{
		{Key: "solo", Category: CategoryPersonal, Points: 3},
		{Key: "find", Category: CategoryDiscovery, Points: 5, TargetRoleKey: "millionaire"},
		{Key: "talk", Category: CategoryInteraction, Points: 10, RequiresDiscoveryKey: "find"},
	}
}

// testRoles builds a target, an accomplice, `pairs` regular pairs and
// `singles` unpaired regular roles.
func testRoles(pairs, singles int) []Role {
	roles := []Role{
		{
			Key:  "millionaire",
			Kind: KindTarget,
			Objectives: []Objective{
				{Key: "hide", Category: CategoryPersonal, Points: 15},
			},
			OutcomeScoring: map[string]int{
				OutcomeNotCaught:       40,
				OutcomePartiallyCaught: 20,
				OutcomeCaught:          0,
			},
		},
		{
			Key:  "accomplice",
			Kind: KindAccomplice,
			Objectives: []Objective{
				{Key: "cover", Category: CategoryPersonal, Points: 10},
			},
			OutcomeScoring: map[string]int{
				OutcomeMillionaireSafe:    30,
				OutcomeMillionairePartial: 15,
			},
		},
	}

	for i := range pairs {
		a := fmt.Sprintf("pair%02da", i)
		b := fmt.Sprintf("pair%02db", i)
		roles = append(roles,
			Role{Key: a, Kind: KindRegular, PairedWith: b, Objectives: detectiveObjectives()},
			Role{Key: b, Kind: KindRegular, PairedWith: a, Objectives: detectiveObjectives()},
		)
	}

	for i := range singles {
		roles = append(roles, Role{
			Key:        fmt.Sprintf("single%02d", i),
			Kind:       KindRegular,
			Objectives: detectiveObjectives(),
		})
	}

	return roles
}

func testCatalog(t *testing.T, pairs, singles int) *Catalog {
	t.Helper()

	c, err := NewCatalog(testRoles(pairs, singles), nil)
	require.NoError(t, err)

	return c
}

func playerIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%02d", i)
	}
	return ids
}
