// Package plans holds the static model-plan registry and the role router
// that resolves a role to its endpoint fallback chain.
package plans

import (
	"fmt"

	"github.com/dataclinic-ai/engine/pkg/models"
)

// ConfigurationError reports a bad plan/role mapping. It is fatal for the
// requesting operation and never retried.
type ConfigurationError struct {
	Plan   models.PlanID
	Role   models.Role
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("configuration: plan %q, role %q: %s", e.Plan, e.Role, e.Reason)
	}
	return fmt.Sprintf("configuration: plan %q: %s", e.Plan, e.Reason)
}

// Registry is the static mapping of plan identifiers to role bindings.
type Registry struct {
	plans map[models.PlanID]models.ModelPlan
}

// builtinPlans are the server-declared plans. The custom plan is not listed
// here; it is assembled per request from user-supplied endpoints.
var builtinPlans = []models.ModelPlan{
	{
		ID: models.PlanFree,
		Bindings: map[models.Role]models.RoleBinding{
			models.RoleSchemaAnalysis: {
				"openrouter:meta-llama/llama-3.3-70b-instruct:free",
				"openrouter:google/gemma-3-27b-it:free",
			},
			models.RoleSQLGeneration: {
				"openrouter:deepseek/deepseek-r1-0528:free",
				"openrouter:qwen/qwen-2.5-coder-32b-instruct:free",
			},
		},
	},
	{
		ID: models.PlanPaid,
		Bindings: map[models.Role]models.RoleBinding{
			models.RoleSchemaAnalysis: {
				"openrouter:openai/gpt-4o",
				"anthropic:claude-3-5-sonnet-20241022",
			},
			models.RoleSQLGeneration: {
				"openrouter:deepseek/deepseek-chat",
				"anthropic:claude-3-5-sonnet-20241022",
			},
		},
	},
}

// NewRegistry builds the registry from the built-in plans. It panics on an
// invalid built-in plan because that is a programming error, not user input.
func NewRegistry() *Registry {
	r := &Registry{plans: make(map[models.PlanID]models.ModelPlan, len(builtinPlans))}
	for _, p := range builtinPlans {
		if err := p.Validate(); err != nil {
			panic(fmt.Sprintf("invalid built-in plan: %v", err))
		}
		r.plans[p.ID] = p
	}
	return r
}

// Plan returns the registered plan for the identifier.
func (r *Registry) Plan(id models.PlanID) (models.ModelPlan, error) {
	p, ok := r.plans[id]
	if !ok {
		return models.ModelPlan{}, &ConfigurationError{Plan: id, Reason: "plan not registered"}
	}
	return p, nil
}

// CustomPlan assembles the custom plan from user-supplied endpoints: exactly
// one endpoint per role, no fallback. An empty sqlEndpoint falls back to the
// analysis endpoint so a single user-supplied model can serve both roles.
func CustomPlan(analysisEndpoint, sqlEndpoint models.ModelEndpoint) (models.ModelPlan, error) {
	if analysisEndpoint == "" {
		analysisEndpoint = sqlEndpoint
	}
	if sqlEndpoint == "" {
		sqlEndpoint = analysisEndpoint
	}
	p := models.ModelPlan{
		ID: models.PlanCustom,
		Bindings: map[models.Role]models.RoleBinding{
			models.RoleSchemaAnalysis: {analysisEndpoint},
			models.RoleSQLGeneration:  {sqlEndpoint},
		},
	}
	if err := p.Validate(); err != nil {
		return models.ModelPlan{}, &ConfigurationError{Plan: models.PlanCustom, Reason: err.Error()}
	}
	return p, nil
}
