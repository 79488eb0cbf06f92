/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"sort"
)

// ValidationVote is one peer's verdict on another player's objective.
type ValidationVote struct {
	TargetPlayerID string `json:"target_player_id"`
	ObjectiveKey   string `json:"objective_key"`
	VoterPlayerID  string `json:"voter_player_id"`
	Approved       bool   `json:"approved"`
}

type ballotKey struct {
	target    string
	objective string
	voter     string
}

type objectiveKey struct {
	target    string
	objective string
}

// Tally is the validation count for one (player, objective) pair.
type Tally struct {
	Approvals int `json:"approvals"`
	Total     int `json:"total"`
}

// Rejections is the number of "no" votes.
func (t Tally) Rejections() int {
	return t.Total - t.Approvals
}

// Approved reports a strict majority of approvals. Ties and empty tallies
// are not approved.
func (t Tally) Approved() bool {
	return t.Total > 0 && t.Approvals*2 > t.Total
}

// Percentage is the rounded approval percentage, 0 for an empty tally.
func (t Tally) Percentage() int {
	if t.Total == 0 {
		return 0
	}
	return (t.Approvals*200 + t.Total) / (t.Total * 2)
}

// ValidationBook stores validation votes keyed by (target, objective, voter):
// casting again for the same key replaces the earlier verdict. The zero
// value is ready to use; it is not safe for concurrent use.
type ValidationBook struct {
	ballots map[ballotKey]bool
}

// NewValidationBook replays votes in order, so later votes win.
func NewValidationBook(votes ...ValidationVote) *ValidationBook {
	b := &ValidationBook{}
	for _, v := range votes {
		b.Cast(v)
	}
	return b
}

// Cast records or replaces a verdict.
func (b *ValidationBook) Cast(v ValidationVote) {
	if b.ballots == nil {
		b.ballots = make(map[ballotKey]bool)
	}
	b.ballots[ballotKey{v.TargetPlayerID, v.ObjectiveKey, v.VoterPlayerID}] = v.Approved
}

// Verdict returns voter's current verdict on the target's objective.
func (b *ValidationBook) Verdict(targetID, objective, voterID string) (approved, voted bool) {
	if b == nil {
		return false, false
	}
	approved, voted = b.ballots[ballotKey{targetID, objective, voterID}]
	return approved, voted
}

// Tally counts the verdicts on the target's objective.
func (b *ValidationBook) Tally(targetID, objective string) Tally {
	var t Tally
	if b == nil {
		return t
	}
	for k, approved := range b.ballots {
		if k.target != targetID || k.objective != objective {
			continue
		}
		t.Total++
		if approved {
			t.Approvals++
		}
	}
	return t
}

// Tallies counts every (player, objective) pair that received a vote,
// keyed by player id then objective key.
func (b *ValidationBook) Tallies() map[string]map[string]Tally {
	out := make(map[string]map[string]Tally)
	if b == nil {
		return out
	}

	counts := make(map[objectiveKey]Tally)
	for k, approved := range b.ballots {
		ok := objectiveKey{k.target, k.objective}
		t := counts[ok]
		t.Total++
		if approved {
			t.Approvals++
		}
		counts[ok] = t
	}

	for k, t := range counts {
		if out[k.target] == nil {
			out[k.target] = make(map[string]Tally)
		}
		out[k.target][k.objective] = t
	}

	return out
}

// Len is the number of distinct ballots.
func (b *ValidationBook) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ballots)
}

// Votes returns the ballots sorted by target, objective and voter.
func (b *ValidationBook) Votes() []ValidationVote {
	if b == nil {
		return nil
	}

	votes := make([]ValidationVote, 0, len(b.ballots))
	for k, approved := range b.ballots {
		votes = append(votes, ValidationVote{
			TargetPlayerID: k.target,
			ObjectiveKey:   k.objective,
			VoterPlayerID:  k.voter,
			Approved:       approved,
		})
	}

	sort.Slice(votes, func(i, j int) bool {
		if votes[i].TargetPlayerID != votes[j].TargetPlayerID {
			return votes[i].TargetPlayerID < votes[j].TargetPlayerID
		}
		if votes[i].ObjectiveKey != votes[j].ObjectiveKey {
			return votes[i].ObjectiveKey < votes[j].ObjectiveKey
		}
		return votes[i].VoterPlayerID < votes[j].VoterPlayerID
	})

	return votes
}

// ValidationCursor points at the objective currently under review: the
// ObjectiveIndex-th objective of the PlayerIndex-th player in join order.
type ValidationCursor struct {
	PlayerIndex    int `json:"player_index"`
	ObjectiveIndex int `json:"objective_index"`
}

// Current resolves the cursor to a player id and objective. ok is false
// when the cursor is past the last player or the player has no role.
func (c ValidationCursor) Current(order []string, catalog *Catalog, assignment Assignment) (playerID string, objective Objective, ok bool) {
	if c.PlayerIndex < 0 || c.PlayerIndex >= len(order) {
		return "", Objective{}, false
	}

	playerID = order[c.PlayerIndex]
	role, found := catalog.Role(assignment[playerID])
	if !found || c.ObjectiveIndex < 0 || c.ObjectiveIndex >= len(role.Objectives) {
		return playerID, Objective{}, false
	}

	return playerID, role.Objectives[c.ObjectiveIndex], true
}

// NextObjective advances to the following objective, rolling over to the
// next player after the last one. done is true once every player is past.
func (c ValidationCursor) NextObjective(order []string, catalog *Catalog, assignment Assignment) (next ValidationCursor, done bool) {
	next = ValidationCursor{PlayerIndex: c.PlayerIndex, ObjectiveIndex: c.ObjectiveIndex + 1}

	if next.PlayerIndex < len(order) {
		role, _ := catalog.Role(assignment[order[next.PlayerIndex]])
		if next.ObjectiveIndex < len(role.Objectives) {
			return next, false
		}
	}

	return c.NextPlayer(order, catalog, assignment)
}

// NextPlayer skips the rest of the current player's objectives. Players
// without objectives are skipped too.
func (c ValidationCursor) NextPlayer(order []string, catalog *Catalog, assignment Assignment) (next ValidationCursor, done bool) {
	for i := c.PlayerIndex + 1; i < len(order); i++ {
		role, _ := catalog.Role(assignment[order[i]])
		if len(role.Objectives) > 0 {
			return ValidationCursor{PlayerIndex: i}, false
		}
	}
	return ValidationCursor{}, true
}

// FirstValidation is the starting cursor, or done when nobody has an
// objective to review.
func FirstValidation(order []string, catalog *Catalog, assignment Assignment) (ValidationCursor, bool) {
	return ValidationCursor{PlayerIndex: -1}.NextPlayer(order, catalog, assignment)
}
