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

// Request describes a capability invocation a worker wants to make.
type Request struct {
	Capability string
	Arguments  string
	TaskID     int
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates capability calls against a set of rules. The
// worker consults it before every tool invocation; a denial is fed
// back to the model as an observation, not an error.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine denies by capability name or by regex over the
// call arguments, and allows everything else.
type DefaultPolicyEngine struct {
	deniedCapabilities map[string]bool
	deniedArguments    []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		deniedCapabilities: make(map[string]bool),
	}
}

// NewRestrictivePolicyEngine is the default rule set wired in main:
// it blocks the obviously destructive shell patterns.
func NewRestrictivePolicyEngine() *DefaultPolicyEngine {
	e := NewDefaultPolicyEngine()
	for _, pattern := range []string{`rm\s+-rf\s+/`, `mkfs`, `shutdown`, `reboot`, `:\(\)\s*\{.*\};\s*:`} {
		_ = e.DenyArguments(pattern)
	}
	return e
}

func (e *DefaultPolicyEngine) DenyCapability(name string) {
	e.deniedCapabilities[name] = true
}

func (e *DefaultPolicyEngine) DenyArguments(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.deniedArguments = append(e.deniedArguments, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.deniedCapabilities[req.Capability] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("capability '%s' is restricted by system policy", req.Capability),
		}, nil
	}

	for _, re := range e.deniedArguments {
		if re.MatchString(req.Arguments) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("arguments match restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{Effect: EffectAllow, Reason: "approved by default policy"}, nil
}
