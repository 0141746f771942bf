package models

import (
	"fmt"
	"strings"
)

// Role is a pipeline task category for which a plan supplies a fallback chain.
type Role string

const (
	RoleSchemaAnalysis Role = "schema_analysis"
	RoleSQLGeneration  Role = "sql_generation"
)

// Roles lists every role a plan must be able to serve.
var Roles = []Role{RoleSchemaAnalysis, RoleSQLGeneration}

// PlanID identifies a registered model plan.
type PlanID string

const (
	PlanFree   PlanID = "free"
	PlanPaid   PlanID = "paid"
	PlanCustom PlanID = "custom"
)

// ModelEndpoint is an opaque provider-qualified model identifier.
// Format: "provider:model", e.g. "openrouter:deepseek/deepseek-r1-0528:free"
// or "anthropic:claude-3-5-sonnet-20241022". An unqualified value is
// treated as an OpenRouter model.
type ModelEndpoint string

const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// Provider returns the provider qualifier of the endpoint.
func (e ModelEndpoint) Provider() string {
	if i := strings.Index(string(e), ":"); i > 0 {
		switch p := string(e)[:i]; p {
		case ProviderOpenRouter, ProviderAnthropic:
			return p
		}
	}
	return ProviderOpenRouter
}

// Model returns the provider-local model name of the endpoint.
func (e ModelEndpoint) Model() string {
	if i := strings.Index(string(e), ":"); i > 0 {
		switch p := string(e)[:i]; p {
		case ProviderOpenRouter, ProviderAnthropic:
			return string(e)[i+1:]
		}
	}
	return string(e)
}

// RoleBinding is the ordered fallback chain for one role: primary first,
// fallbacks after, tried strictly left to right.
type RoleBinding []ModelEndpoint

// Validate checks the binding is non-empty and free of duplicate endpoints.
func (b RoleBinding) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("binding is empty")
	}
	seen := make(map[ModelEndpoint]struct{}, len(b))
	for _, ep := range b {
		if ep == "" {
			return fmt.Errorf("binding contains empty endpoint")
		}
		if _, ok := seen[ep]; ok {
			return fmt.Errorf("duplicate endpoint %q", ep)
		}
		seen[ep] = struct{}{}
	}
	return nil
}

// ModelPlan maps pipeline roles to their fallback chains.
type ModelPlan struct {
	ID       PlanID               `json:"id"`
	Bindings map[Role]RoleBinding `json:"bindings"`
}

// Binding returns the fallback chain bound to the role, or false if the
// plan declares no binding for it.
func (p ModelPlan) Binding(role Role) (RoleBinding, bool) {
	b, ok := p.Bindings[role]
	return b, ok && len(b) > 0
}

// Validate checks that every role has a valid binding and that the custom
// plan carries exactly one endpoint per role (no fallback).
func (p ModelPlan) Validate() error {
	for _, role := range Roles {
		b, ok := p.Bindings[role]
		if !ok {
			return fmt.Errorf("plan %q: no binding for role %q", p.ID, role)
		}
		if err := b.Validate(); err != nil {
			return fmt.Errorf("plan %q, role %q: %w", p.ID, role, err)
		}
		if p.ID == PlanCustom && len(b) != 1 {
			return fmt.Errorf("plan %q, role %q: custom plan allows exactly one endpoint, got %d", p.ID, role, len(b))
		}
	}
	return nil
}
