package agent

import (
	"context"
	"errors"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/geminitool"
	"google.golang.org/genai"
)

// Defaults for the Gemini-backed agent.
const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultAgentName   = "assistant"
	DefaultInstruction = "You are a helpful assistant. Answer concisely and use search when the question needs fresh information."
)

// ModelConfig selects the Gemini model and persona behind the default agent.
// Empty fields fall back to the package defaults.
type ModelConfig struct {
	APIKey      string
	Model       string
	Name        string
	Instruction string
}

func (c ModelConfig) agentConfig(llm model.LLM) llmagent.Config {
	name := c.Name
	if name == "" {
		name = DefaultAgentName
	}
	instruction := c.Instruction
	if instruction == "" {
		instruction = DefaultInstruction
	}
	return llmagent.Config{
		Name:        name,
		Model:       llm,
		Description: "General purpose assistant served over AG-UI.",
		Instruction: instruction,
		Tools: []tool.Tool{
			geminitool.GoogleSearch{},
		},
	}
}

// NewLLMAgent creates the Gemini-backed assistant served by the bridge.
func NewLLMAgent(ctx context.Context, cfg ModelConfig) (agent.Agent, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("agent: api key is required")
	}
	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}

	llm, err := gemini.NewModel(ctx, name, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, err
	}

	return llmagent.New(cfg.agentConfig(llm))
}
