package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/reqpilot/reqpilot/internal/governance"
	"github.com/reqpilot/reqpilot/internal/observability"
	"github.com/tmc/langchaingo/llms"
)

// plannerSystemPrompt pins the LLM to the tool allowlist and a strict output
// shape. The response is still treated as adversarial: parsed, schema
// checked, filtered through the policy engine, and capped.
const plannerSystemPrompt = `You translate a user request about a requirements repository into tool calls.

Allowed tools and their parameters:
- "list": list requirement documents. Parameters: {"limit": <integer, optional>}
- "count": count requirement documents. Parameters: {}
- "read": read one requirement. Parameters: {"name": "<REQ-NNN.md>"}
- "read-last": read the requirement with the highest number. Parameters: {}
- "create": draft a new requirement. Parameters: {"title": "<title>"}

Respond with a single JSON object and nothing else:
{"steps": [{"tool": "<name>", "parameters": {...}}]}

Use the minimum number of steps. If no tool is needed, respond {"steps": []}.`

// llmTimeout bounds the planning call so a hung backend degrades to the
// heuristic planner instead of hanging the turn.
const llmTimeout = 20 * time.Second

// LLMPlanner asks a language model for a plan and degrades deterministically
// to HeuristicPlan on any failure: network error, timeout, non-JSON output,
// or an empty response. The LLM path never surfaces an error to the user.
type LLMPlanner struct {
	Model  llms.Model
	Policy governance.PolicyEngine
	Logger *observability.Logger
}

func NewLLMPlanner(model llms.Model, policy governance.PolicyEngine, logger *observability.Logger) *LLMPlanner {
	return &LLMPlanner{Model: model, Policy: policy, Logger: logger}
}

// Plan returns the LLM's plan when a backend is configured and answers in
// time, else the heuristic plan for the same input.
func (p *LLMPlanner) Plan(ctx context.Context, chatID, input string) Plan {
	if p == nil || p.Model == nil {
		return HeuristicPlan(input)
	}
	plan, err := p.compose(ctx, chatID, input)
	if err != nil {
		log.Printf("Warning: LLM planner failed, using heuristic plan: %v", err)
		return HeuristicPlan(input)
	}
	return plan
}

func (p *LLMPlanner) compose(ctx context.Context, chatID, input string) (Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(plannerSystemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(input)},
		},
	}

	resp, err := p.Model.GenerateContent(ctx, messages, llms.WithTemperature(0), llms.WithJSONMode())
	if err != nil {
		return Plan{}, err
	}
	if len(resp.Choices) == 0 {
		return Plan{}, fmt.Errorf("no choices in response")
	}
	content := resp.Choices[0].Content

	if p.Logger != nil {
		p.Logger.LogLLM(chatID, input, content)
	}

	var raw rawPlan
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return Plan{}, fmt.Errorf("parse plan JSON: %w", err)
	}

	steps, err := decodeSteps(ctx, p.Policy, p.Logger, chatID, raw.Steps)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Steps: steps}, nil
}

// stripFences tolerates models that wrap JSON in a markdown code block
// despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
