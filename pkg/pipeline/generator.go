package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/llm"
	"github.com/dataclinic-ai/engine/pkg/models"
	"github.com/dataclinic-ai/engine/pkg/prompts"
)

// CorrectionContext carries the prior script and its classified execution
// error into a regeneration attempt, instructing the model to repair rather
// than restart from scratch.
type CorrectionContext struct {
	PriorScript  models.CleaningScript
	ErrorKind    models.ExecutionErrorKind
	ErrorMessage string
}

// Generator invokes a model to produce a cleaning script from a schema
// diagnosis. It does not execute or validate SQL; that is the executor's job.
type Generator struct {
	factory llm.ClientFactory
	logger  *zap.Logger
}

// NewGenerator creates a SQL generator over the given transport factory.
func NewGenerator(factory llm.ClientFactory, logger *zap.Logger) *Generator {
	return &Generator{factory: factory, logger: logger.Named("generator")}
}

// Generate walks the endpoint chain until one model returns a script with
// extractable SQL. With a correction context the request becomes a repair
// request. A reply without SQL is a content error and advances the chain.
func (g *Generator) Generate(
	ctx context.Context,
	diagnosis models.SchemaDiagnosis,
	columns []string,
	sample string,
	endpoints []models.ModelEndpoint,
	creds llm.Credentials,
	correction *CorrectionContext,
) (models.CleaningScript, error) {
	req := llm.Request{
		System:      prompts.SQLGenerationSystem,
		Prompt:      prompts.BuildSQLGenerationPrompt(diagnosis, columns, sample),
		Temperature: 0.2,
		MaxTokens:   4000,
	}
	if correction != nil {
		req = llm.Request{
			System:      prompts.SQLRepairSystem,
			Prompt:      prompts.BuildSQLRepairPrompt(correction.PriorScript.SQL, correction.ErrorKind, correction.ErrorMessage, columns),
			Temperature: 0.1,
			MaxTokens:   3000,
		}
	}

	var script models.CleaningScript
	err := walkChain(models.RoleSQLGeneration, endpoints, func(ep models.ModelEndpoint) error {
		client := g.factory.Create(ep, creds)

		resp, err := client.Complete(ctx, req)
		if err != nil {
			return err
		}

		sqlText := llm.ExtractSQL(resp.Content)
		if sqlText == "" {
			g.logger.Warn("response contains no SQL, advancing chain",
				zap.String("endpoint", string(ep)))
			return llm.NewTransportError(llm.KindMalformed, "response contains no SQL", ep,
				fmt.Errorf("no SQL in %d-byte response", len(resp.Content)))
		}

		script = models.CleaningScript{
			SQL:       sqlText,
			Reasoning: llm.ExtractReasoning(resp.Content),
			Endpoint:  ep,
		}
		return nil
	})
	if err != nil {
		return models.CleaningScript{}, err
	}

	g.logger.Info("cleaning script generated",
		zap.String("endpoint", string(script.Endpoint)),
		zap.Int("sql_len", len(script.SQL)),
		zap.Bool("correction", correction != nil))
	return script, nil
}
