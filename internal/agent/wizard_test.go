package agent

import (
	"strings"
	"testing"
	"time"
)

func TestParseCriteriaLines(t *testing.T) {
	raw := "- first check\n* second check\n• third check\n1. fourth check\n2) fifth check\n\n   \n"
	got := parseCriteriaLines(raw)
	want := []string{"first check", "second check", "third check", "fourth check", "fifth check"}
	if len(got) != len(want) {
		t.Fatalf("parseCriteriaLines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSuggestCriteria(t *testing.T) {
	if got := suggestCriteria("Anything", ""); len(got) != 3 {
		t.Errorf("empty description: %d suggestions, want 3", len(got))
	}
	got := suggestCriteria("Audit export", "Admins download the log. It must be fast.")
	if len(got) != 4 {
		t.Fatalf("with description: %d suggestions, want 4", len(got))
	}
	if !strings.Contains(got[0], "Admins download the log") {
		t.Errorf("first suggestion does not reference the description: %q", got[0])
	}
}

func TestRenderRequirement(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	d := &RequirementDraft{
		Title:       "Audit export",
		Description: "Admins can download the audit log.",
		Criteria:    []string{"Download completes", "CSV is valid"},
	}
	content := renderRequirement("REQ-004", d, now)
	for _, want := range []string{
		"---\nid: REQ-004\ntitle: Audit export\nstatus: draft\ncreated: 2026-08-28\n---\n",
		"Admins can download the audit log.",
		"## Acceptance",
		"- [ ] Download completes\n- [ ] CSV is valid\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}
}

func TestRenderRequirement_DefaultCriterion(t *testing.T) {
	content := renderRequirement("REQ-001", &RequirementDraft{Title: "Bare"}, time.Now())
	if !strings.Contains(content, "- [ ] Behavior is verified end to end") {
		t.Errorf("default criterion missing:\n%s", content)
	}
}

func TestFirstClause(t *testing.T) {
	if got := firstClause("Short one. And more."); got != "Short one" {
		t.Errorf("firstClause = %q", got)
	}
	long := strings.Repeat("x", 120)
	if got := firstClause(long); len(got) != 80 || !strings.HasSuffix(got, "...") {
		t.Errorf("long clause = %q (len %d)", got, len(got))
	}
}
