package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    Intent
	}{
		{"Show me Ghost Cycle alerts", IntentGhostCycle},
		{"Which equipment is wasting fuel?", IntentGhostCycle},
		{"Is anything idle right now?", IntentGhostCycle},
		{"Any choke points?", IntentRoute},
		{"Best route to dump site?", IntentRoute},
		{"Traffic congestion near the haul road", IntentRoute},
		{"Should we divert trucks?", IntentRoute},
		{"What's the average cycle time?", IntentCycleTime},
		{"Predict my next cycle time", IntentCycleTime},
		{"How long does a haul take?", IntentCycleTime},
		{"Why did the model detect that?", IntentMLExplain},
		{"Explain the ghost cycle model", IntentMLExplain},
		{"Show me the SHAP values", IntentMLExplain},
		{"How many cycles today?", IntentAnalytical},
		{"Show me the statistics", IntentAnalytical},
		{"Find safety procedures", IntentSearch},
		{"Search geotechnical reports", IntentSearch},
		{"Fleet overview please", IntentStatus},
		{"What is happening right now?", IntentStatus},
		{"hello", IntentGeneral},
		{"", IntentGeneral},
		{"thanks!", IntentGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message))
		})
	}
}

func TestClassify_FirstGroupWins(t *testing.T) {
	// Ghost-cycle keywords outrank route keywords regardless of order in
	// the message.
	assert.Equal(t, IntentGhostCycle, Classify("route trucks away from ghost cycle zones"))

	// Route outranks cycle time.
	assert.Equal(t, IntentRoute, Classify("how long is the detour on this route"))

	// Cycle time outranks analytical even when an aggregate word appears.
	assert.Equal(t, IntentCycleTime, Classify("cycle time average please"))
}

func TestClassify_CaseInsensitive(t *testing.T) {
	assert.Equal(t, IntentGhostCycle, Classify("GHOST CYCLE REPORT"))
	assert.Equal(t, IntentStatus, Classify("FLEET"))
}
