package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/apperrors"
	"github.com/dataclinic-ai/engine/pkg/llm"
	"github.com/dataclinic-ai/engine/pkg/models"
	"github.com/dataclinic-ai/engine/pkg/plans"
	"github.com/dataclinic-ai/engine/pkg/prompts"
)

// Free plan chains, in attempt order.
const (
	analysisPrimary  = "openrouter:meta-llama/llama-3.3-70b-instruct:free"
	analysisFallback = "openrouter:google/gemma-3-27b-it:free"
	sqlPrimary       = "openrouter:deepseek/deepseek-r1-0528:free"
	sqlFallback      = "openrouter:qwen/qwen-2.5-coder-32b-instruct:free"
)

type stubConfig struct {
	snap ConfigSnapshot
}

func (c *stubConfig) Snapshot() ConfigSnapshot { return c.snap }

type stubSource struct {
	loaded bool
}

func (s *stubSource) Loaded() bool      { return s.loaded }
func (s *stubSource) Columns() []string { return []string{"name", "email"} }
func (s *stubSource) SampleText(_ context.Context, _ int) (string, error) {
	return "name  email\nmaria  maria@example", nil
}

type testFault struct {
	kind models.ExecutionErrorKind
	msg  string
}

func (f *testFault) ExecutionKind() models.ExecutionErrorKind { return f.kind }
func (f *testFault) Error() string                            { return f.msg }

// stubExecutor returns its scripted errors in order, then succeeds. It
// records every script it was handed.
type stubExecutor struct {
	errs    []error
	scripts []string
}

func (e *stubExecutor) Execute(_ context.Context, script string) error {
	e.scripts = append(e.scripts, script)
	if len(e.errs) == 0 {
		return nil
	}
	err := e.errs[0]
	e.errs = e.errs[1:]
	return err
}

func newTestOrchestrator(factory llm.ClientFactory, executor Executor, cfg ConfigProvider) *Orchestrator {
	logger := zap.NewNop()
	return NewOrchestrator(
		plans.NewRouter(plans.NewRegistry()),
		NewAnalyzer(factory, logger),
		NewGenerator(factory, logger),
		&stubSource{loaded: true},
		executor,
		cfg,
		logger,
	)
}

func freeConfig(maxRetries int) *stubConfig {
	return &stubConfig{snap: ConfigSnapshot{Plan: models.PlanFree, MaxRetries: maxRetries}}
}

func scriptedFactory(t *testing.T) *llm.MockClientFactory {
	t.Helper()
	factory := llm.NewMockClientFactory()
	factory.Clients[analysisPrimary] = analysisClient(diagnosisJSON, nil)
	factory.Clients[sqlPrimary] = analysisClient(scriptResponse, nil)
	return factory
}

func TestDiagnose_NoData(t *testing.T) {
	o := newTestOrchestrator(scriptedFactory(t), &stubExecutor{}, freeConfig(2))
	o.source = &stubSource{loaded: false}

	_, err := o.Diagnose(context.Background())
	require.True(t, errors.Is(err, apperrors.ErrNoData))
	assert.Nil(t, o.Run())
}

func TestDiagnose_Success(t *testing.T) {
	factory := scriptedFactory(t)
	o := newTestOrchestrator(factory, &stubExecutor{}, freeConfig(2))

	diagnosis, err := o.Diagnose(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.ModelEndpoint{analysisPrimary}, factory.CreateCalls)
	assert.Len(t, diagnosis, 2)

	run := o.Run()
	require.NotNil(t, run)
	assert.Equal(t, models.StateIdle, run.State)
	assert.Equal(t, diagnosis, run.Diagnosis)
	assert.Empty(t, run.Attempts)
}

func TestDiagnose_FallbackAfterRateLimit(t *testing.T) {
	factory := scriptedFactory(t)
	factory.Clients[analysisPrimary] = analysisClient("", llm.NewTransportError(llm.KindRateLimit, "rate limited", analysisPrimary, nil))
	factory.Clients[analysisFallback] = analysisClient(diagnosisJSON, nil)

	o := newTestOrchestrator(factory, &stubExecutor{}, freeConfig(2))

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ModelEndpoint{analysisPrimary, analysisFallback}, factory.CreateCalls)
}

func TestDiagnose_ExhaustionEndsRun(t *testing.T) {
	factory := llm.NewMockClientFactory()
	factory.Clients[analysisPrimary] = analysisClient("", llm.NewTransportError(llm.KindTimeout, "slow", analysisPrimary, nil))
	factory.Clients[analysisFallback] = analysisClient("", llm.NewTransportError(llm.KindRateLimit, "rate limited", analysisFallback, nil))

	o := newTestOrchestrator(factory, &stubExecutor{}, freeConfig(2))

	_, err := o.Diagnose(context.Background())
	require.True(t, errors.Is(err, ErrAnalysisExhausted))

	run := o.Run()
	require.NotNil(t, run)
	assert.Equal(t, models.StateAnalysisFailed, run.State)
	assert.NotEmpty(t, run.Failure)
}

func TestClean_WithoutDiagnosis(t *testing.T) {
	o := newTestOrchestrator(scriptedFactory(t), &stubExecutor{}, freeConfig(2))

	_, err := o.Clean(context.Background())
	require.True(t, errors.Is(err, apperrors.ErrNoDiagnosis))
}

func TestClean_SuccessFirstAttempt(t *testing.T) {
	factory := scriptedFactory(t)
	executor := &stubExecutor{}
	o := newTestOrchestrator(factory, executor, freeConfig(2))

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)

	run, err := o.Clean(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.StateSucceeded, run.State)
	require.Len(t, run.Attempts, 1)
	assert.True(t, run.Attempts[0].Success)
	assert.Equal(t, 1, run.Attempts[0].Number)
	assert.Equal(t, models.ModelEndpoint(sqlPrimary), run.Attempts[0].Script.Endpoint)
	assert.NotNil(t, run.FinishedAt)
	assert.Len(t, executor.scripts, 1)
}

func TestClean_ZeroRetriesFailsAfterOneAttempt(t *testing.T) {
	client := analysisClient(scriptResponse, nil)
	factory := scriptedFactory(t)
	factory.Clients[sqlPrimary] = client

	executor := &stubExecutor{errs: []error{
		&testFault{kind: models.ExecErrSyntax, msg: `near "TABEL": syntax error`},
	}}
	o := newTestOrchestrator(factory, executor, freeConfig(0))

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)

	run, err := o.Clean(context.Background())
	require.Error(t, err)

	assert.Equal(t, models.StateFailed, run.State)
	require.Len(t, run.Attempts, 1)
	assert.False(t, run.Attempts[0].Success)
	assert.Equal(t, models.ExecErrSyntax, run.Attempts[0].ErrorKind)
	// No regeneration happened: the generation model was asked exactly once.
	assert.Equal(t, 1, client.CompleteCalls)
}

func TestClean_CorrectionLoopExhaustsRetries(t *testing.T) {
	client := analysisClient(scriptResponse, nil)
	factory := scriptedFactory(t)
	factory.Clients[sqlPrimary] = client

	executor := &stubExecutor{errs: []error{
		&testFault{kind: models.ExecErrSyntax, msg: "syntax error one"},
		&testFault{kind: models.ExecErrMissingRelation, msg: "no such column: cpf"},
		&testFault{kind: models.ExecErrSyntax, msg: "syntax error three"},
	}}
	o := newTestOrchestrator(factory, executor, freeConfig(2))

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)

	run, err := o.Clean(context.Background())
	require.Error(t, err)

	assert.Equal(t, models.StateFailed, run.State)
	require.Len(t, run.Attempts, 3)
	for i, attempt := range run.Attempts {
		assert.Equal(t, i+1, attempt.Number)
		assert.False(t, attempt.Success)
	}

	// Attempts after the first are repair requests carrying the prior error.
	require.Len(t, client.Requests, 3)
	assert.Equal(t, prompts.SQLGenerationSystem, client.Requests[0].System)
	assert.Equal(t, prompts.SQLRepairSystem, client.Requests[1].System)
	assert.Contains(t, client.Requests[1].Prompt, "syntax error one")
	assert.Contains(t, client.Requests[2].Prompt, "no such column: cpf")
}

func TestClean_CorrectionSucceedsMidLoop(t *testing.T) {
	factory := scriptedFactory(t)
	executor := &stubExecutor{errs: []error{
		&testFault{kind: models.ExecErrSyntax, msg: "syntax error"},
	}}
	o := newTestOrchestrator(factory, executor, freeConfig(2))

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)

	run, err := o.Clean(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.StateSucceeded, run.State)
	require.Len(t, run.Attempts, 2)
	assert.False(t, run.Attempts[0].Success)
	assert.True(t, run.Attempts[1].Success)
}

func TestClean_GenerationExhaustion(t *testing.T) {
	factory := scriptedFactory(t)
	factory.Clients[sqlPrimary] = analysisClient("", llm.NewTransportError(llm.KindRateLimit, "rate limited", sqlPrimary, nil))
	factory.Clients[sqlFallback] = analysisClient("no sql here", nil)

	o := newTestOrchestrator(factory, &stubExecutor{}, freeConfig(2))

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)

	run, err := o.Clean(context.Background())
	require.True(t, errors.Is(err, ErrGenerationExhausted))
	assert.Equal(t, models.StateGenerationFailed, run.State)
	assert.Empty(t, run.Attempts)
}

func TestClean_PlanSwitchResetsRun(t *testing.T) {
	cfg := freeConfig(2)
	o := newTestOrchestrator(scriptedFactory(t), &stubExecutor{}, cfg)

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)

	cfg.snap.Plan = models.PlanPaid

	_, err = o.Clean(context.Background())
	require.True(t, errors.Is(err, apperrors.ErrNoDiagnosis))
	assert.Nil(t, o.Run())
}

func TestClean_AfterTerminalRunStartsFresh(t *testing.T) {
	factory := scriptedFactory(t)
	o := newTestOrchestrator(factory, &stubExecutor{}, freeConfig(2))

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)

	first, err := o.Clean(context.Background())
	require.NoError(t, err)

	second, err := o.Clean(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Diagnosis, second.Diagnosis)
	assert.Len(t, second.Attempts, 1)
	// The completed run keeps its own record.
	assert.Len(t, first.Attempts, 1)
}

func TestClean_MaxRetriesRefreshedFromConfig(t *testing.T) {
	cfg := freeConfig(5)
	client := analysisClient(scriptResponse, nil)
	factory := scriptedFactory(t)
	factory.Clients[sqlPrimary] = client

	executor := &stubExecutor{errs: []error{
		&testFault{kind: models.ExecErrSyntax, msg: "syntax error"},
	}}
	o := newTestOrchestrator(factory, executor, cfg)

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)

	cfg.snap.MaxRetries = 0

	run, err := o.Clean(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.StateFailed, run.State)
	assert.Len(t, run.Attempts, 1)
}

func TestClean_UnclassifiedExecutorError(t *testing.T) {
	factory := scriptedFactory(t)
	executor := &stubExecutor{errs: []error{errors.New("disk full")}}
	o := newTestOrchestrator(factory, executor, freeConfig(0))

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)

	run, err := o.Clean(context.Background())
	require.Error(t, err)
	require.Len(t, run.Attempts, 1)
	assert.Equal(t, models.ExecErrOther, run.Attempts[0].ErrorKind)
}

func TestRunPipeline(t *testing.T) {
	factory := scriptedFactory(t)
	o := newTestOrchestrator(factory, &stubExecutor{}, freeConfig(2))

	run, err := o.RunPipeline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, run.State)
	assert.NotNil(t, run.Diagnosis)
	require.Len(t, run.Attempts, 1)
	assert.True(t, run.Attempts[0].Success)
}

func TestReset_DiscardsRun(t *testing.T) {
	o := newTestOrchestrator(scriptedFactory(t), &stubExecutor{}, freeConfig(2))

	_, err := o.Diagnose(context.Background())
	require.NoError(t, err)
	require.NotNil(t, o.Run())

	o.Reset()
	assert.Nil(t, o.Run())
}
