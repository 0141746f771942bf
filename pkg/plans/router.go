package plans

import (
	"github.com/dataclinic-ai/engine/pkg/models"
)

// Router resolves a task role against the active plan into the ordered
// endpoint fallback chain. Pure lookup, no side effects.
type Router struct {
	registry *Registry
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Resolve returns the attempt-ordered endpoint chain for the role under the
// plan: primary first, fallbacks after. The returned slice is a copy; callers
// may not mutate the plan through it. Fails with *ConfigurationError when the
// role is unknown or the plan declares no binding for it.
func (r *Router) Resolve(role models.Role, plan models.ModelPlan) ([]models.ModelEndpoint, error) {
	if !knownRole(role) {
		return nil, &ConfigurationError{Plan: plan.ID, Role: role, Reason: "unrecognized role"}
	}
	binding, ok := plan.Binding(role)
	if !ok {
		return nil, &ConfigurationError{Plan: plan.ID, Role: role, Reason: "no binding for role"}
	}
	chain := make([]models.ModelEndpoint, len(binding))
	copy(chain, binding)
	return chain, nil
}

// ActivePlan resolves the plan identifier, assembling the custom plan from
// the supplied endpoints when id is "custom".
func (r *Router) ActivePlan(id models.PlanID, customAnalysis, customSQL models.ModelEndpoint) (models.ModelPlan, error) {
	if id == models.PlanCustom {
		return CustomPlan(customAnalysis, customSQL)
	}
	return r.registry.Plan(id)
}

func knownRole(role models.Role) bool {
	for _, r := range models.Roles {
		if r == role {
			return true
		}
	}
	return false
}
