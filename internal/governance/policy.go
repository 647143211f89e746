package governance

import (
	"context"
	"fmt"
	"regexp"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of a planned tool call to be evaluated.
type Request struct {
	Tool      string
	Arguments string
	ChatID    string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates planned tool calls against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// AllowlistPolicyEngine permits only an explicit set of tool names. Steps a
// planner emits outside the allowlist are dropped before execution; this is
// the sole defense against a misbehaving LLM planner requesting an arbitrary
// operation. Argument patterns can additionally be denied.
type AllowlistPolicyEngine struct {
	AllowedTools map[string]bool
	DeniedRegex  []*regexp.Regexp
}

func NewAllowlistPolicyEngine(tools ...string) *AllowlistPolicyEngine {
	allowed := make(map[string]bool, len(tools))
	for _, t := range tools {
		allowed[t] = true
	}
	return &AllowlistPolicyEngine{AllowedTools: allowed}
}

func (e *AllowlistPolicyEngine) DenyArguments(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

func (e *AllowlistPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if !e.AllowedTools[req.Tool] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Tool '%s' is not on the allowlist", req.Tool),
		}, nil
	}

	for _, re := range e.DeniedRegex {
		if re.MatchString(req.Arguments) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Arguments match restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by allowlist policy",
	}, nil
}
