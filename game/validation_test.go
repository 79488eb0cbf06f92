/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTallyApproved(t *testing.T) {
	assert.False(t, Tally{}.Approved())
	assert.False(t, Tally{Approvals: 1, Total: 2}.Approved())
	assert.True(t, Tally{Approvals: 2, Total: 3}.Approved())
	assert.False(t, Tally{Approvals: 2, Total: 4}.Approved())
	assert.True(t, Tally{Approvals: 1, Total: 1}.Approved())

	assert.Equal(t, 67, Tally{Approvals: 2, Total: 3}.Percentage())
	assert.Equal(t, 1, Tally{Approvals: 2, Total: 3}.Rejections())
}

func TestValidationBookLastWriteWins(t *testing.T) {
	var book ValidationBook

	book.Cast(ValidationVote{TargetPlayerID: "a", ObjectiveKey: "solo", VoterPlayerID: "b", Approved: true})
	book.Cast(ValidationVote{TargetPlayerID: "a", ObjectiveKey: "solo", VoterPlayerID: "c", Approved: true})
	book.Cast(ValidationVote{TargetPlayerID: "a", ObjectiveKey: "solo", VoterPlayerID: "b", Approved: false})

	assert.Equal(t, 2, book.Len())
	assert.Equal(t, Tally{Approvals: 1, Total: 2}, book.Tally("a", "solo"))

	approved, voted := book.Verdict("a", "solo", "b")
	assert.True(t, voted)
	assert.False(t, approved)

	_, voted = book.Verdict("a", "solo", "d")
	assert.False(t, voted)
}

func TestValidationBookTallies(t *testing.T) {
	book := NewValidationBook(
		ValidationVote{TargetPlayerID: "a", ObjectiveKey: "solo", VoterPlayerID: "b", Approved: true},
		ValidationVote{TargetPlayerID: "a", ObjectiveKey: "find", VoterPlayerID: "b", Approved: false},
		ValidationVote{TargetPlayerID: "c", ObjectiveKey: "solo", VoterPlayerID: "a", Approved: true},
	)

	tallies := book.Tallies()
	assert.Equal(t, Tally{Approvals: 1, Total: 1}, tallies["a"]["solo"])
	assert.Equal(t, Tally{Approvals: 0, Total: 1}, tallies["a"]["find"])
	assert.Equal(t, Tally{Approvals: 1, Total: 1}, tallies["c"]["solo"])

	votes := book.Votes()
	require.Len(t, votes, 3)
	assert.Equal(t, "find", votes[0].ObjectiveKey)
	assert.Equal(t, "c", votes[2].TargetPlayerID)
}

func TestValidationBookNil(t *testing.T) {
	var book *ValidationBook

	assert.Zero(t, book.Len())
	assert.Equal(t, Tally{}, book.Tally("a", "solo"))
	assert.Empty(t, book.Tallies())
	assert.Nil(t, book.Votes())
}

func TestValidationCursorWalksEveryObjective(t *testing.T) {
	c := testCatalog(t, 1, 0)
	a := Assignment{"m": "millionaire", "r1": "pair00a", "r2": "pair00b"}
	order := []string{"r1", "m", "r2"}

	cursor, done := FirstValidation(order, c, a)
	require.False(t, done)

	type step struct {
		player    string
		objective string
	}

	var walked []step
	for !done {
		id, o, ok := cursor.Current(order, c, a)
		require.True(t, ok)
		walked = append(walked, step{id, o.Key})
		cursor, done = cursor.NextObjective(order, c, a)
	}

	assert.Equal(t, []step{
		{"r1", "solo"}, {"r1", "find"}, {"r1", "talk"},
		{"m", "hide"},
		{"r2", "solo"}, {"r2", "find"}, {"r2", "talk"},
	}, walked)
}

func TestValidationCursorNextPlayer(t *testing.T) {
	c := testCatalog(t, 1, 0)
	a := Assignment{"r1": "pair00a", "m": "millionaire"}
	order := []string{"r1", "ghost", "m"}

	cursor := ValidationCursor{PlayerIndex: 0, ObjectiveIndex: 1}

	next, done := cursor.NextPlayer(order, c, a)
	require.False(t, done)
	assert.Equal(t, ValidationCursor{PlayerIndex: 2}, next)

	_, done = next.NextPlayer(order, c, a)
	assert.True(t, done)

	_, _, ok := ValidationCursor{PlayerIndex: 5}.Current(order, c, a)
	assert.False(t, ok)
}
