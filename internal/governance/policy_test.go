package governance

import (
	"context"
	"testing"
)

func TestAllowlistPolicyEngine_Evaluate(t *testing.T) {
	engine := NewAllowlistPolicyEngine("list", "count", "read", "read-last", "create")
	ctx := context.Background()

	// Test Allow (on the list)
	req1 := Request{Tool: "list"}
	res1, err := engine.Evaluate(ctx, req1)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res1.Effect != EffectAllow {
		t.Errorf("Expected EffectAllow, got %s", res1.Effect)
	}

	// Test Deny (off the list)
	req2 := Request{Tool: "shell"}
	res2, err := engine.Evaluate(ctx, req2)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res2.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny, got %s", res2.Effect)
	}
}

func TestAllowlistPolicyEngine_DenyArguments(t *testing.T) {
	engine := NewAllowlistPolicyEngine("read")
	if err := engine.DenyArguments(`\.\.`); err != nil {
		t.Fatal(err)
	}

	res, err := engine.Evaluate(context.Background(), Request{Tool: "read", Arguments: `{"name":"../secrets.md"}`})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny for traversal arguments, got %s", res.Effect)
	}
}
