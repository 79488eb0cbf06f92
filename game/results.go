/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "sort"

// Standing is one leaderboard row.
type Standing struct {
	PlayerID string `json:"player_id"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// Standings orders scores highest first, breaking ties by player id. Tied
// scores share a rank.
func Standings(scores Scores) []Standing {
	rows := make([]Standing, 0, len(scores))
	for id, score := range scores {
		rows = append(rows, Standing{PlayerID: id, Score: score})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})

	for i := range rows {
		if i > 0 && rows[i].Score == rows[i-1].Score {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}

	return rows
}

// VoteResult is how many election votes one suspect received.
type VoteResult struct {
	SuspectID  string `json:"suspect_id"`
	Votes      int    `json:"votes"`
	Percentage int    `json:"percentage"`
	IsTarget   bool   `json:"is_target"`
}

// VoteResults groups the election by suspect, most votes first.
func VoteResults(votes []ElectionVote, targetID string) []VoteResult {
	counted := firstVotes(votes)

	counts := make(map[string]int)
	for _, v := range counted {
		counts[v.SuspectID]++
	}

	results := make([]VoteResult, 0, len(counts))
	for suspect, n := range counts {
		results = append(results, VoteResult{
			SuspectID:  suspect,
			Votes:      n,
			Percentage: Suspicion{Votes: n, Total: len(counted)}.Percentage(),
			IsTarget:   targetID != "" && suspect == targetID,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Votes != results[j].Votes {
			return results[i].Votes > results[j].Votes
		}
		return results[i].SuspectID < results[j].SuspectID
	})

	return results
}
