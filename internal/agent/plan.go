package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reqpilot/reqpilot/internal/governance"
	"github.com/reqpilot/reqpilot/internal/observability"
)

// Domain-level tool identifiers. These are the only operations a planner may
// request; anything else is dropped before it can reach the executor.
const (
	ToolList     = "list"
	ToolCount    = "count"
	ToolRead     = "read"
	ToolReadLast = "read-last"
	ToolCreate   = "create"
)

// AllowedTools is the fixed allowlist handed to the policy engine.
var AllowedTools = []string{ToolList, ToolCount, ToolRead, ToolReadLast, ToolCreate}

// maxPlanSteps caps how many steps a single plan may carry. LLM output is
// untrusted; a runaway plan is truncated, not rejected.
const maxPlanSteps = 8

// Plan is an ordered list of tool invocations derived from one user turn.
// Steps execute strictly in sequence. An empty plan means "no tool call
// needed".
type Plan struct {
	Steps []PlanStep
}

// PlanStep is one tool invocation. Parameters are decoded into the typed
// variant matching the tool once, at the allowlist boundary, rather than
// re-parsed inside each executor branch.
type PlanStep struct {
	Tool   string
	List   *ListParams
	Read   *ReadParams
	Create *CreateParams
}

type ListParams struct {
	Limit int `json:"limit"`
}

type ReadParams struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type CreateParams struct {
	Title string `json:"title"`
}

// rawPlan is the wire shape a planner LLM must produce:
// {"steps":[{"tool":"...","parameters":{...}}]}
type rawPlan struct {
	Steps []rawStep `json:"steps"`
}

type rawStep struct {
	Tool       string          `json:"tool"`
	Parameters json.RawMessage `json:"parameters"`
}

// decodeSteps filters untrusted raw steps through the policy engine and
// decodes their parameter bags. Steps whose tool is denied are silently
// dropped; malformed parameters fail that step only.
func decodeSteps(ctx context.Context, policy governance.PolicyEngine, logger *observability.Logger, chatID string, raw []rawStep) ([]PlanStep, error) {
	var steps []PlanStep
	for _, r := range raw {
		if len(steps) >= maxPlanSteps {
			break
		}
		res, err := policy.Evaluate(ctx, governance.Request{Tool: r.Tool, Arguments: string(r.Parameters), ChatID: chatID})
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.LogPolicyCheck(chatID, r.Tool, string(res.Effect), res.Reason)
		}
		if res.Effect != governance.EffectAllow {
			continue
		}
		step, err := decodeStep(r)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func decodeStep(r rawStep) (PlanStep, error) {
	step := PlanStep{Tool: r.Tool}
	if len(r.Parameters) == 0 {
		return step, nil
	}
	switch r.Tool {
	case ToolList:
		var p ListParams
		if err := json.Unmarshal(r.Parameters, &p); err != nil {
			return step, fmt.Errorf("decode %s parameters: %w", r.Tool, err)
		}
		step.List = &p
	case ToolRead:
		var p ReadParams
		if err := json.Unmarshal(r.Parameters, &p); err != nil {
			return step, fmt.Errorf("decode %s parameters: %w", r.Tool, err)
		}
		if p.Name == "" && p.ID != "" {
			p.Name = reqName(keepDigits(p.ID))
		}
		step.Read = &p
	case ToolCreate:
		var p CreateParams
		if err := json.Unmarshal(r.Parameters, &p); err != nil {
			return step, fmt.Errorf("decode %s parameters: %w", r.Tool, err)
		}
		step.Create = &p
	}
	// count and read-last carry no parameters.
	return step, nil
}

// Tools lists the tool names of a plan, for logging.
func (p Plan) Tools() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Tool
	}
	return names
}
