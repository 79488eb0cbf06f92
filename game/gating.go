/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "time"

// ObjectiveStatus is a player's own record of one objective.
type ObjectiveStatus struct {
	Completed      bool       `json:"completed"`
	TaggedPlayerID string     `json:"tagged_player_id,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Tagged reports whether a player has been named for this objective.
func (s ObjectiveStatus) Tagged() bool {
	return s.TaggedPlayerID != ""
}

// CanComplete reports whether objective may be marked complete given the
// player's current statuses. Only objectives that require a discovery can
// be blocked, and only until that discovery has a tagged player.
func CanComplete(objective Objective, statuses map[string]ObjectiveStatus) bool {
	if objective.RequiresDiscoveryKey == "" {
		return true
	}
	return statuses[objective.RequiresDiscoveryKey].Tagged()
}
