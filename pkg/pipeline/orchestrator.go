package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/apperrors"
	"github.com/dataclinic-ai/engine/pkg/llm"
	"github.com/dataclinic-ai/engine/pkg/models"
	"github.com/dataclinic-ai/engine/pkg/plans"
)

// ConfigSnapshot is the externally-owned configuration read at the start of
// each stage call. A change mid-run affects the next stage transition only.
type ConfigSnapshot struct {
	Plan                   models.PlanID
	CustomAnalysisEndpoint models.ModelEndpoint
	CustomSQLEndpoint      models.ModelEndpoint
	Credentials            llm.Credentials
	MaxRetries             int
}

// ConfigProvider reads the current configuration. Implemented by the config
// store collaborator.
type ConfigProvider interface {
	Snapshot() ConfigSnapshot
}

// Executor runs a generated script against the working store. A nil return
// means success; failures should implement ExecutionFault.
type Executor interface {
	Execute(ctx context.Context, script string) error
}

// ExecutionFault is implemented by executor errors that carry a classified
// kind. Keeps the orchestrator independent of the store implementation.
type ExecutionFault interface {
	error
	ExecutionKind() models.ExecutionErrorKind
}

// SampleSource supplies the column list and prompt sample for the loaded
// dataset. Implemented by the working store.
type SampleSource interface {
	Loaded() bool
	Columns() []string
	SampleText(ctx context.Context, n int) (string, error)
}

// Orchestrator is the state machine tying the pipeline together. It is
// deliberately free of concurrency primitives: one session drives at most
// one run, and every stage is a blocking call.
type Orchestrator struct {
	router    *plans.Router
	analyzer  *Analyzer
	generator *Generator
	source    SampleSource
	executor  Executor
	config    ConfigProvider
	logger    *zap.Logger

	run *models.PipelineRun
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(
	router *plans.Router,
	analyzer *Analyzer,
	generator *Generator,
	source SampleSource,
	executor Executor,
	config ConfigProvider,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		router:    router,
		analyzer:  analyzer,
		generator: generator,
		source:    source,
		executor:  executor,
		config:    config,
		logger:    logger.Named("orchestrator"),
	}
}

// Run returns the current pipeline run, or nil if none was started.
func (o *Orchestrator) Run() *models.PipelineRun {
	return o.run
}

// Reset discards the current run and its attempt records unconditionally.
func (o *Orchestrator) Reset() {
	o.run = nil
}

// Diagnose drives Idle → Analyzing. On success the diagnosis is held on the
// run and the state returns to Idle; displaying it is a separate user-visible
// step. On chain exhaustion the request ends in AnalysisFailed and the user
// must retry manually.
func (o *Orchestrator) Diagnose(ctx context.Context) (models.SchemaDiagnosis, error) {
	if !o.source.Loaded() {
		return nil, apperrors.ErrNoData
	}

	snap := o.config.Snapshot()
	plan, err := o.router.ActivePlan(snap.Plan, snap.CustomAnalysisEndpoint, snap.CustomSQLEndpoint)
	if err != nil {
		return nil, err
	}

	// A fresh diagnosis starts a fresh run; a plan switch resets it too.
	if o.run == nil || o.run.State.Terminal() || o.run.Plan.ID != plan.ID {
		o.run = models.NewPipelineRun(plan, snap.MaxRetries)
	}
	o.run.State = models.StateAnalyzing

	endpoints, err := o.router.Resolve(models.RoleSchemaAnalysis, plan)
	if err != nil {
		o.run.Finish(models.StateAnalysisFailed, FailureText(err))
		return nil, err
	}

	sample, err := o.source.SampleText(ctx, SampleRowCount)
	if err != nil {
		o.run.Finish(models.StateAnalysisFailed, FailureText(err))
		return nil, err
	}

	o.logger.Info("diagnosis started",
		zap.String("run_id", o.run.ID.String()),
		zap.String("plan", string(plan.ID)),
		zap.Int("chain_len", len(endpoints)))

	diagnosis, err := o.analyzer.Analyze(ctx, o.source.Columns(), sample, endpoints, snap.Credentials)
	if err != nil {
		o.run.Finish(models.StateAnalysisFailed, FailureText(err))
		return nil, err
	}

	o.run.Diagnosis = diagnosis
	o.run.State = models.StateIdle
	return diagnosis, nil
}

// Clean drives Idle(with diagnosis) → Generating → Executing and the bounded
// correction loop. Its sole exit conditions are success, generation
// exhaustion, or reaching the max_retries bound.
func (o *Orchestrator) Clean(ctx context.Context) (*models.PipelineRun, error) {
	snap := o.config.Snapshot()
	plan, err := o.router.ActivePlan(snap.Plan, snap.CustomAnalysisEndpoint, snap.CustomSQLEndpoint)
	if err != nil {
		return nil, err
	}

	if o.run == nil || o.run.Diagnosis == nil {
		return nil, apperrors.ErrNoDiagnosis
	}
	if o.run.Plan.ID != plan.ID {
		// Plan switched since diagnosis: product rule is to reset the run.
		o.run = nil
		return nil, apperrors.ErrNoDiagnosis
	}
	if o.run.State.Terminal() {
		// Re-cleaning after a terminal run starts a new run; the completed
		// run's attempt records are never altered retroactively.
		prior := o.run
		o.run = models.NewPipelineRun(plan, snap.MaxRetries)
		o.run.Diagnosis = prior.Diagnosis
	}
	o.run.MaxRetries = snap.MaxRetries

	endpoints, err := o.router.Resolve(models.RoleSQLGeneration, plan)
	if err != nil {
		o.run.Finish(models.StateGenerationFailed, FailureText(err))
		return o.run, err
	}

	columns := o.source.Columns()
	sample, err := o.source.SampleText(ctx, SampleRowCount)
	if err != nil {
		o.run.Finish(models.StateGenerationFailed, FailureText(err))
		return o.run, err
	}

	o.logger.Info("cleaning started",
		zap.String("run_id", o.run.ID.String()),
		zap.String("plan", string(plan.ID)),
		zap.Int("max_retries", o.run.MaxRetries))

	var correction *CorrectionContext
	for attempt := 1; ; attempt++ {
		o.run.State = models.StateGenerating
		script, err := o.generator.Generate(ctx, o.run.Diagnosis, columns, sample, endpoints, snap.Credentials, correction)
		if err != nil {
			o.run.Finish(models.StateGenerationFailed, FailureText(err))
			return o.run, err
		}

		o.run.State = models.StateExecuting
		execErr := o.executor.Execute(ctx, script.SQL)

		record := models.AttemptRecord{
			Number:    attempt,
			Script:    script,
			Timestamp: time.Now(),
		}

		if execErr == nil {
			record.Success = true
			o.run.Attempts = append(o.run.Attempts, record)
			o.run.Finish(models.StateSucceeded, "")
			o.logger.Info("cleaning succeeded",
				zap.String("run_id", o.run.ID.String()),
				zap.Int("attempts", attempt))
			return o.run, nil
		}

		kind, msg := classifyFault(execErr)
		record.ErrorKind = kind
		record.ErrorMessage = msg
		o.run.Attempts = append(o.run.Attempts, record)
		o.run.State = models.StateExecutionFailed

		o.logger.Warn("execution failed",
			zap.String("run_id", o.run.ID.String()),
			zap.Int("attempt", attempt),
			zap.String("kind", string(kind)))

		if attempt > o.run.MaxRetries {
			o.run.Finish(models.StateFailed, executionFailureText(kind, o.run.MaxRetries))
			return o.run, execErr
		}

		correction = &CorrectionContext{PriorScript: script, ErrorKind: kind, ErrorMessage: msg}
	}
}

// RunPipeline executes the full pipeline: diagnosis followed by cleaning.
func (o *Orchestrator) RunPipeline(ctx context.Context) (*models.PipelineRun, error) {
	if _, err := o.Diagnose(ctx); err != nil {
		return o.run, err
	}
	return o.Clean(ctx)
}

// classifyFault extracts the classified kind from an executor error, falling
// back to Other for anything unclassified.
func classifyFault(err error) (models.ExecutionErrorKind, string) {
	var fault ExecutionFault
	if errors.As(err, &fault) {
		return fault.ExecutionKind(), fault.Error()
	}
	return models.ExecErrOther, err.Error()
}
