package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelConfig_Defaults(t *testing.T) {
	cfg := ModelConfig{}.agentConfig(nil)
	assert.Equal(t, DefaultAgentName, cfg.Name)
	assert.Equal(t, DefaultInstruction, cfg.Instruction)
	assert.NotContains(t, cfg.Description, "time")
	assert.Len(t, cfg.Tools, 1)
}

func TestModelConfig_Overrides(t *testing.T) {
	cfg := ModelConfig{Name: "travel_agent", Instruction: "Plan trips."}.agentConfig(nil)
	assert.Equal(t, "travel_agent", cfg.Name)
	assert.Equal(t, "Plan trips.", cfg.Instruction)
}

func TestNewLLMAgent_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMAgent(context.Background(), ModelConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}
