package agent

import (
	"context"
	"encoding/json"
	"testing"
)

func TestDecodeStep_ReadIDFallback(t *testing.T) {
	// Planners sometimes emit an id instead of a document name; the id's
	// digits are folded into the canonical zero-padded name.
	step, err := decodeStep(rawStep{Tool: ToolRead, Parameters: json.RawMessage(`{"id":"REQ-7"}`)})
	if err != nil {
		t.Fatal(err)
	}
	if step.Read == nil || step.Read.Name != "REQ-007.md" {
		t.Errorf("read = %+v, want name REQ-007.md", step.Read)
	}

	// An explicit name wins over the id.
	step, err = decodeStep(rawStep{Tool: ToolRead, Parameters: json.RawMessage(`{"name":"REQ-012.md","id":"REQ-7"}`)})
	if err != nil {
		t.Fatal(err)
	}
	if step.Read.Name != "REQ-012.md" {
		t.Errorf("name = %q, want REQ-012.md", step.Read.Name)
	}
}

func TestDecodeStep_MalformedParameters(t *testing.T) {
	_, err := decodeStep(rawStep{Tool: ToolList, Parameters: json.RawMessage(`{"limit":"two"}`)})
	if err == nil {
		t.Error("malformed parameters did not error")
	}
}

func TestDecodeSteps_NoParameters(t *testing.T) {
	steps, err := decodeSteps(context.Background(), testPolicy(), nil, "c1", []rawStep{
		{Tool: ToolCount},
		{Tool: ToolReadLast},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 || steps[0].Tool != ToolCount || steps[1].Tool != ToolReadLast {
		t.Errorf("steps = %+v", steps)
	}
}
