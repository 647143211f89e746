package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/reqpilot/reqpilot/internal/governance"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel returns a canned completion or error without any network.
type fakeModel struct {
	content string
	err     error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.content}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func testPolicy() governance.PolicyEngine {
	return governance.NewAllowlistPolicyEngine(AllowedTools...)
}

func plannerWith(m llms.Model) *LLMPlanner {
	return NewLLMPlanner(m, testPolicy(), nil)
}

func TestLLMPlanner_ParsesPlan(t *testing.T) {
	p := plannerWith(&fakeModel{content: `{"steps":[{"tool":"list","parameters":{"limit":2}}]}`})
	plan := p.Plan(context.Background(), "c1", "show me a couple of requirements")
	if len(plan.Steps) != 1 || plan.Steps[0].Tool != ToolList {
		t.Fatalf("plan = %v", plan.Tools())
	}
	if plan.Steps[0].List == nil || plan.Steps[0].List.Limit != 2 {
		t.Errorf("limit = %+v, want 2", plan.Steps[0].List)
	}
}

func TestLLMPlanner_ToleratesFencedJSON(t *testing.T) {
	p := plannerWith(&fakeModel{content: "```json\n{\"steps\":[{\"tool\":\"count\",\"parameters\":{}}]}\n```"})
	plan := p.Plan(context.Background(), "c1", "how many")
	if len(plan.Steps) != 1 || plan.Steps[0].Tool != ToolCount {
		t.Errorf("plan = %v, want [count]", plan.Tools())
	}
}

func TestLLMPlanner_DropsDisallowedTools(t *testing.T) {
	p := plannerWith(&fakeModel{content: `{"steps":[
		{"tool":"shell","parameters":{"cmd":"rm -rf /"}},
		{"tool":"count","parameters":{}}
	]}`})
	plan := p.Plan(context.Background(), "c1", "tidy up")
	if len(plan.Steps) != 1 || plan.Steps[0].Tool != ToolCount {
		t.Errorf("plan = %v, want only [count]", plan.Tools())
	}
}

func TestLLMPlanner_DeniedArgumentsDropStep(t *testing.T) {
	policy := governance.NewAllowlistPolicyEngine(AllowedTools...)
	if err := policy.DenyArguments(`\.\.`); err != nil {
		t.Fatal(err)
	}
	p := NewLLMPlanner(&fakeModel{content: `{"steps":[
		{"tool":"read","parameters":{"name":"../../etc/passwd"}},
		{"tool":"read","parameters":{"name":"REQ-001.md"}}
	]}`}, policy, nil)
	plan := p.Plan(context.Background(), "c1", "read things")
	if len(plan.Steps) != 1 || plan.Steps[0].Read == nil || plan.Steps[0].Read.Name != "REQ-001.md" {
		t.Errorf("plan = %v, traversal step not dropped", plan.Tools())
	}
}

func TestLLMPlanner_CapsSteps(t *testing.T) {
	steps := `{"tool":"count","parameters":{}}`
	body := `{"steps":[` + steps
	for i := 0; i < 11; i++ {
		body += "," + steps
	}
	body += `]}`
	p := plannerWith(&fakeModel{content: body})
	plan := p.Plan(context.Background(), "c1", "count a lot")
	if len(plan.Steps) != maxPlanSteps {
		t.Errorf("len(steps) = %d, want %d", len(plan.Steps), maxPlanSteps)
	}
}

func TestLLMPlanner_FallsBackOnError(t *testing.T) {
	p := plannerWith(&fakeModel{err: errors.New("500 backend exploded")})
	plan := p.Plan(context.Background(), "c1", "list requirements")
	if len(plan.Steps) != 1 || plan.Steps[0].Tool != ToolList {
		t.Errorf("fallback plan = %v, want heuristic [list]", plan.Tools())
	}
}

func TestLLMPlanner_FallsBackOnMalformedOutput(t *testing.T) {
	p := plannerWith(&fakeModel{content: "I would be happy to help with that!"})
	plan := p.Plan(context.Background(), "c1", "how many requirements do we have")
	if len(plan.Steps) != 1 || plan.Steps[0].Tool != ToolCount {
		t.Errorf("fallback plan = %v, want heuristic [count]", plan.Tools())
	}
}

func TestLLMPlanner_NilModelUsesHeuristic(t *testing.T) {
	var p *LLMPlanner
	plan := p.Plan(context.Background(), "c1", "read the last requirement")
	if len(plan.Steps) != 1 || plan.Steps[0].Tool != ToolReadLast {
		t.Errorf("plan = %v, want [read-last]", plan.Tools())
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"{\"steps\":[]}":                      `{"steps":[]}`,
		"```json\n{\"steps\":[]}\n```":        `{"steps":[]}`,
		"```\n{\"steps\":[]}\n```":            `{"steps":[]}`,
		"  {\"steps\":[]}  ":                  `{"steps":[]}`,
	}
	for in, want := range cases {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
