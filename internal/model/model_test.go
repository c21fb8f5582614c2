package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"SimInfo", &SimInfo{}, "sim_infos"},
		{"SimPerformance", &SimPerformance{}, "sim_performances"},
		{"Engagement", &Engagement{}, "engagements"},
		{"Unit", &Unit{}, "units"},
		{"UnitState", &UnitState{}, "unit_states"},
		{"HitEvent", &HitEvent{}, "hit_events"},
		{"KillEvent", &KillEvent{}, "kill_events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModelsHaveTableNames(t *testing.T) {
	assert.Len(t, DatabaseModels, 7)
	for _, m := range DatabaseModels {
		_, ok := m.(interface{ TableName() string })
		assert.True(t, ok, "%T has no TableName", m)
	}
}
