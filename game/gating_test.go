/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanComplete(t *testing.T) {
	objectives := detectiveObjectives()
	solo, find, talk := objectives[0], objectives[1], objectives[2]

	tests := []struct {
		name      string
		objective Objective
		statuses  map[string]ObjectiveStatus
		want      bool
	}{
		{name: "personal", objective: solo, statuses: nil, want: true},
		{name: "discovery", objective: find, statuses: nil, want: true},
		{name: "interaction without status", objective: talk, statuses: nil, want: false},
		{
			name:      "interaction with untagged discovery",
			objective: talk,
			statuses:  map[string]ObjectiveStatus{"find": {Completed: true}},
			want:      false,
		},
		{
			name:      "interaction with tagged discovery",
			objective: talk,
			statuses:  map[string]ObjectiveStatus{"find": {TaggedPlayerID: "p01"}},
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanComplete(tt.objective, tt.statuses))
		})
	}
}
