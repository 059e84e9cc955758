package security

import (
	"context"
	"testing"

	"carat/internal/core/appctx"
)

func TestInMemoryFlags(t *testing.T) {
	f := NewInMemoryFlags()
	ctx := context.Background()

	if f.IsEnabled(ctx, FlagAdvancedBreakdowns) {
		t.Error("flag should be disabled by default")
	}

	f.SetFlag(FlagAdvancedBreakdowns, true)
	if !f.IsEnabled(ctx, FlagAdvancedBreakdowns) {
		t.Error("flag should be enabled after SetFlag")
	}
}

func TestRuleFlags_Evaluation(t *testing.T) {
	f, err := NewRuleFlags(map[string]string{
		FlagAdvancedBreakdowns: `authenticated && role != ""`,
		"owner_only":           `role == "Owner"`,
	}, false)
	if err != nil {
		t.Fatalf("NewRuleFlags failed: %v", err)
	}

	anon := context.Background()
	if f.IsEnabled(anon, FlagAdvancedBreakdowns) {
		t.Error("rule should deny anonymous caller")
	}

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		ActorID:       "u1",
		RoleName:      "Owner",
		Authenticated: true,
	})
	if !f.IsEnabled(ctx, FlagAdvancedBreakdowns) {
		t.Error("rule should allow authenticated caller with role")
	}
	if !f.IsEnabled(ctx, "owner_only") {
		t.Error("owner_only should allow Owner role")
	}

	// Unknown flag falls back.
	if f.IsEnabled(ctx, "unknown_flag") {
		t.Error("unknown flag should use fallback (false)")
	}
}

func TestRuleFlags_CompileErrors(t *testing.T) {
	if _, err := NewRuleFlags(map[string]string{"bad": `role ==`}, false); err == nil {
		t.Error("expected compile error for malformed rule")
	}
	if _, err := NewRuleFlags(map[string]string{"bad": `role`}, false); err == nil {
		t.Error("expected error for non-bool rule")
	}
}
