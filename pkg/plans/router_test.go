package plans

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataclinic-ai/engine/pkg/models"
)

func TestResolve_OrderedChain(t *testing.T) {
	router := NewRouter(NewRegistry())

	plan, err := router.ActivePlan(models.PlanFree, "", "")
	require.NoError(t, err)

	chain, err := router.Resolve(models.RoleSQLGeneration, plan)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, models.ModelEndpoint("openrouter:deepseek/deepseek-r1-0528:free"), chain[0])
	assert.Equal(t, models.ModelEndpoint("openrouter:qwen/qwen-2.5-coder-32b-instruct:free"), chain[1])
}

func TestResolve_ReturnsCopy(t *testing.T) {
	router := NewRouter(NewRegistry())

	plan, err := router.ActivePlan(models.PlanFree, "", "")
	require.NoError(t, err)

	chain, err := router.Resolve(models.RoleSchemaAnalysis, plan)
	require.NoError(t, err)
	chain[0] = "mutated"

	again, err := router.Resolve(models.RoleSchemaAnalysis, plan)
	require.NoError(t, err)
	assert.NotEqual(t, models.ModelEndpoint("mutated"), again[0])
}

func TestResolve_UnknownRole(t *testing.T) {
	router := NewRouter(NewRegistry())

	plan, err := router.ActivePlan(models.PlanPaid, "", "")
	require.NoError(t, err)

	_, err = router.Resolve("translation", plan)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, models.Role("translation"), cfgErr.Role)
}

func TestResolve_MissingBinding(t *testing.T) {
	router := NewRouter(NewRegistry())

	plan := models.ModelPlan{
		ID: models.PlanPaid,
		Bindings: map[models.Role]models.RoleBinding{
			models.RoleSchemaAnalysis: {"openrouter:openai/gpt-4o"},
		},
	}

	_, err := router.Resolve(models.RoleSQLGeneration, plan)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

func TestActivePlan_UnknownPlan(t *testing.T) {
	router := NewRouter(NewRegistry())

	_, err := router.ActivePlan("enterprise", "", "")
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, models.PlanID("enterprise"), cfgErr.Plan)
}

func TestCustomPlan_SingleEndpointNoFallback(t *testing.T) {
	plan, err := CustomPlan("openrouter:mistralai/mistral-large", "anthropic:claude-3-5-sonnet-20241022")
	require.NoError(t, err)

	router := NewRouter(NewRegistry())
	analysis, err := router.Resolve(models.RoleSchemaAnalysis, plan)
	require.NoError(t, err)
	assert.Equal(t, []models.ModelEndpoint{"openrouter:mistralai/mistral-large"}, analysis)

	generation, err := router.Resolve(models.RoleSQLGeneration, plan)
	require.NoError(t, err)
	assert.Equal(t, []models.ModelEndpoint{"anthropic:claude-3-5-sonnet-20241022"}, generation)
}

func TestCustomPlan_SharedEndpoint(t *testing.T) {
	plan, err := CustomPlan("openrouter:mistralai/mistral-large", "")
	require.NoError(t, err)

	binding, ok := plan.Binding(models.RoleSQLGeneration)
	require.True(t, ok)
	assert.Equal(t, models.RoleBinding{"openrouter:mistralai/mistral-large"}, binding)
}

func TestCustomPlan_NoEndpoints(t *testing.T) {
	_, err := CustomPlan("", "")
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, models.PlanCustom, cfgErr.Plan)
}
