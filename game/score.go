/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"sort"
)

// Flat bonuses.
const (
	DiscoveryBonus    = 10
	CorrectGuessBonus = 25
)

// Suspicion thresholds in percent. Both bounds belong to the partial bucket.
const (
	partialLow  = 40
	partialHigh = 60
)

// PlayerRecord is one player's frozen state at scoring time.
type PlayerRecord struct {
	ID         string                     `json:"id"`
	Objectives map[string]ObjectiveStatus `json:"objectives"`
}

// ElectionVote is a player's guess at who holds the target role.
type ElectionVote struct {
	VoterID   string `json:"voter_id"`
	SuspectID string `json:"suspect_id"`
}

// Scores maps player id to final score.
type Scores map[string]int

// Bucket is a suspicion band.
type Bucket int

const (
	BucketNotCaught Bucket = iota
	BucketPartial
	BucketCaught
)

func (b Bucket) String() string {
	switch b {
	case BucketNotCaught:
		return "not_caught"
	case BucketPartial:
		return "partial"
	default:
		return "caught"
	}
}

// Suspicion is the share of election votes naming the real target holder.
type Suspicion struct {
	Votes int `json:"votes"`
	Total int `json:"total"`
}

// NewSuspicion counts votes against targetID. Only the first vote of each
// voter counts and votes with no suspect are ignored.
func NewSuspicion(votes []ElectionVote, targetID string) Suspicion {
	var s Suspicion
	for _, v := range firstVotes(votes) {
		s.Total++
		if targetID != "" && v.SuspectID == targetID {
			s.Votes++
		}
	}
	return s
}

// Percentage is the suspicion rounded to the nearest whole percent.
func (s Suspicion) Percentage() int {
	if s.Total == 0 {
		return 0
	}
	return (s.Votes*200 + s.Total) / (s.Total * 2)
}

// Bucket compares the exact fraction against the thresholds, so 2 of 5
// votes (40%) is partial while 1 of 3 (33.3%) is not.
func (s Suspicion) Bucket() Bucket {
	if s.Total == 0 {
		return BucketNotCaught
	}

	switch v, n := s.Votes*100, s.Total; {
	case v < partialLow*n:
		return BucketNotCaught
	case v <= partialHigh*n:
		return BucketPartial
	default:
		return BucketCaught
	}
}

// outcomeBonus picks the bucket value for a target or accomplice role.
func outcomeBonus(kind RoleKind, scoring map[string]int, b Bucket) int {
	var key string

	switch {
	case kind == KindTarget && b == BucketNotCaught:
		key = OutcomeNotCaught
	case kind == KindTarget && b == BucketPartial:
		key = OutcomePartiallyCaught
	case kind == KindAccomplice && b == BucketNotCaught:
		key = OutcomeMillionaireSafe
	case kind == KindAccomplice && b == BucketPartial:
		key = OutcomeMillionairePartial
	default:
		return 0
	}

	return scoring[key]
}

// TargetHolder returns the player holding the catalog's target role.
func TargetHolder(catalog *Catalog, assignment Assignment) (string, bool) {
	if catalog == nil {
		return "", false
	}

	ids := make([]string, 0, len(assignment))
	for id := range assignment {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if assignment[id] == catalog.target {
			return id, true
		}
	}

	return "", false
}

// Completed decides whether playerID's objective counts as done: a
// validation majority when anyone voted on it, the self-report otherwise,
// and never while its required discovery is untagged.
func Completed(playerID string, objective Objective, statuses map[string]ObjectiveStatus, validations *ValidationBook) bool {
	if !CanComplete(objective, statuses) {
		return false
	}

	if t := validations.Tally(playerID, objective.Key); t.Total > 0 {
		return t.Approved()
	}

	return statuses[objective.Key].Completed
}

// Score computes every player's total from scratch. It never mutates its
// inputs and returns the same result for the same arguments. Players
// without a resolvable role are left out of the result.
func Score(players []PlayerRecord, votes []ElectionVote, catalog *Catalog, assignment Assignment, validations *ValidationBook) Scores {
	scores := make(Scores, len(players))
	if catalog == nil {
		return scores
	}

	targetID, hasTarget := TargetHolder(catalog, assignment)
	bucket := NewSuspicion(votes, targetID).Bucket()

	guesses := make(map[string]string, len(votes))
	for _, v := range firstVotes(votes) {
		guesses[v.VoterID] = v.SuspectID
	}

	for _, p := range players {
		role, ok := catalog.Role(assignment[p.ID])
		if !ok {
			continue
		}

		total := 0

		for _, o := range role.Objectives {
			if Completed(p.ID, o, p.Objectives, validations) {
				total += o.Points
			}

			if o.Category != CategoryDiscovery {
				continue
			}
			tagged := p.Objectives[o.Key].TaggedPlayerID
			if tagged != "" && assignment[tagged] == o.TargetRoleKey {
				total += DiscoveryBonus
			}
		}

		if hasTarget {
			switch role.Kind {
			case KindTarget, KindAccomplice:
				total += outcomeBonus(role.Kind, role.OutcomeScoring, bucket)
			default:
				if guesses[p.ID] == targetID {
					total += CorrectGuessBonus
				}
			}
		}

		scores[p.ID] = total
	}

	return scores
}

// firstVotes keeps the first vote of each voter and drops empty suspects.
func firstVotes(votes []ElectionVote) []ElectionVote {
	seen := make(map[string]bool, len(votes))
	out := make([]ElectionVote, 0, len(votes))

	for _, v := range votes {
		if v.SuspectID == "" || seen[v.VoterID] {
			continue
		}
		seen[v.VoterID] = true
		out = append(out, v)
	}

	return out
}
