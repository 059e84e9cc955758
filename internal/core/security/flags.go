// Package security provides access-control helpers and feature flags.
package security

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"carat/internal/core/appctx"
)

// FeatureFlagProvider provides feature flag evaluation.
// Abstraction allows different backends: in-memory, rule-based, remote.
type FeatureFlagProvider interface {
	// IsEnabled checks if feature is enabled for the current caller
	IsEnabled(ctx context.Context, flag string) bool
}

// Feature flag names (constants for type safety)
const (
	FlagAdvancedBreakdowns = "advanced_breakdowns"
)

// InMemoryFlags is a simple in-memory feature flag provider.
// Suitable for tests and fixed deployments.
type InMemoryFlags struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewInMemoryFlags creates an in-memory flag provider.
func NewInMemoryFlags() *InMemoryFlags {
	return &InMemoryFlags{
		flags: make(map[string]bool),
	}
}

func (f *InMemoryFlags) IsEnabled(ctx context.Context, flag string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.flags[flag]
}

// SetFlag sets a boolean flag (for testing/admin).
func (f *InMemoryFlags) SetFlag(flag string, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[flag] = enabled
}

// RuleFlags evaluates flags as CEL expressions over the caller context.
// A rule sees the variables `actor_id`, `role`, `branch_id` and
// `authenticated`; flags without a rule fall back to the provided default.
type RuleFlags struct {
	programs map[string]cel.Program
	fallback bool
}

// NewRuleFlags compiles the given flag rules. Compilation errors are returned
// eagerly so a bad rule fails at startup, not at evaluation time.
func NewRuleFlags(rules map[string]string, fallback bool) (*RuleFlags, error) {
	env, err := cel.NewEnv(
		cel.Variable("actor_id", cel.StringType),
		cel.Variable("role", cel.StringType),
		cel.Variable("branch_id", cel.StringType),
		cel.Variable("authenticated", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	programs := make(map[string]cel.Program, len(rules))
	for flag, rule := range rules {
		ast, iss := env.Compile(rule)
		if iss.Err() != nil {
			return nil, fmt.Errorf("compile rule for %q: %w", flag, iss.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule for %q must evaluate to bool, got %s", flag, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program for %q: %w", flag, err)
		}
		programs[flag] = prg
	}

	return &RuleFlags{programs: programs, fallback: fallback}, nil
}

func (f *RuleFlags) IsEnabled(ctx context.Context, flag string) bool {
	prg, ok := f.programs[flag]
	if !ok {
		return f.fallback
	}

	vars := map[string]any{
		"actor_id":      "",
		"role":          "",
		"branch_id":     "",
		"authenticated": false,
	}
	if user := appctx.GetUser(ctx); user != nil {
		vars["actor_id"] = user.ActorID
		vars["role"] = user.RoleName
		vars["branch_id"] = user.BranchID
		vars["authenticated"] = user.Authenticated
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return f.fallback
	}
	enabled, ok := out.Value().(bool)
	if !ok {
		return f.fallback
	}
	return enabled
}
