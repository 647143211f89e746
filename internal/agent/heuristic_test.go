package agent

import (
	"testing"
)

func singleStep(t *testing.T, input, wantTool string) PlanStep {
	t.Helper()
	plan := HeuristicPlan(input)
	if len(plan.Steps) != 1 {
		t.Fatalf("HeuristicPlan(%q) = %d steps, want 1", input, len(plan.Steps))
	}
	step := plan.Steps[0]
	if step.Tool != wantTool {
		t.Fatalf("HeuristicPlan(%q) tool = %s, want %s", input, step.Tool, wantTool)
	}
	return step
}

func TestHeuristicPlan_ListWithLimit(t *testing.T) {
	// Digit and word forms must behave identically.
	for _, input := range []string{"list requirements top 2", "show the first two requirements"} {
		step := singleStep(t, input, ToolList)
		if step.List == nil || step.List.Limit != 2 {
			t.Errorf("HeuristicPlan(%q) limit = %+v, want 2", input, step.List)
		}
	}
}

func TestHeuristicPlan_ListLimitDefault(t *testing.T) {
	// A limiting word with no parsable number falls back to 2.
	step := singleStep(t, "show the top requirements", ToolList)
	if step.List == nil || step.List.Limit != 2 {
		t.Errorf("limit = %+v, want default 2", step.List)
	}
}

func TestHeuristicPlan_ListPlain(t *testing.T) {
	step := singleStep(t, "list requirements", ToolList)
	if step.List != nil {
		t.Errorf("plain list should carry no limit, got %+v", step.List)
	}
}

func TestHeuristicPlan_Count(t *testing.T) {
	singleStep(t, "how many requirements do we have?", ToolCount)
}

func TestHeuristicPlan_ReadLast(t *testing.T) {
	singleStep(t, "read the last requirement", ToolReadLast)
}

func TestHeuristicPlan_ReadByNumber(t *testing.T) {
	cases := map[string]string{
		"read requirement 7":    "REQ-007.md",
		"read requirement two":  "REQ-002.md",
		"show req 12":           "REQ-012.md",
		"requirement 3 please":  "REQ-003.md",
		"read wreck three":      "REQ-003.md", // speech mishearing
	}
	for input, want := range cases {
		step := singleStep(t, input, ToolRead)
		if step.Read == nil || step.Read.Name != want {
			t.Errorf("HeuristicPlan(%q) read = %+v, want name %s", input, step.Read, want)
		}
	}
}

func TestHeuristicPlan_Create(t *testing.T) {
	step := singleStep(t, "create REQ-000 Improve onboarding flow", ToolCreate)
	if step.Create == nil {
		t.Fatal("create step missing parameters")
	}
	title := step.Create.Title
	if title != "Improve onboarding flow" {
		t.Errorf("derived title = %q, want %q", title, "Improve onboarding flow")
	}
}

func TestHeuristicPlan_Empty(t *testing.T) {
	for _, input := range []string{"", "what is the weather like", "hello there"} {
		if plan := HeuristicPlan(input); len(plan.Steps) != 0 {
			t.Errorf("HeuristicPlan(%q) = %v, want empty plan", input, plan.Tools())
		}
	}
}

func TestDeriveTitle(t *testing.T) {
	cases := map[string]string{
		"create REQ-000 Improve onboarding flow": "Improve onboarding flow",
		"add a new requirement for login":        "for login",
		"create":                                 "New Requirement",
		"create req 123":                         "New Requirement",
	}
	for input, want := range cases {
		if got := DeriveTitle(input); got != want {
			t.Errorf("DeriveTitle(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		input string
		want  int
		ok    bool
	}{
		{"top 2 requirements", 2, true},
		{"first two requirements", 2, true},
		{"requirement ten", 10, true},
		{"requirement 12 now", 12, true},
		{"no numbers here", 0, false},
	}
	for _, c := range cases {
		got, ok := parseNumber(c.input)
		if got != c.want || ok != c.ok {
			t.Errorf("parseNumber(%q) = %d,%v, want %d,%v", c.input, got, ok, c.want, c.ok)
		}
	}
}
