package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/llm"
	"github.com/dataclinic-ai/engine/pkg/models"
	"github.com/dataclinic-ai/engine/pkg/prompts"
)

// SampleRowCount is the fixed number of rows sent to the models as context.
const SampleRowCount = 5

// Analyzer invokes a model to classify each input column's semantic type
// and quality issues.
type Analyzer struct {
	factory llm.ClientFactory
	logger  *zap.Logger
}

// NewAnalyzer creates a schema analyzer over the given transport factory.
func NewAnalyzer(factory llm.ClientFactory, logger *zap.Logger) *Analyzer {
	return &Analyzer{factory: factory, logger: logger.Named("analyzer")}
}

// rawColumnDiagnosis is the wire shape the analysis models are asked for.
type rawColumnDiagnosis struct {
	InferredType       string   `json:"inferred_type"`
	DetectedIssues     []string `json:"detected_issues"`
	CleaningSuggestion string   `json:"cleaning_suggestion"`
}

// Analyze walks the endpoint chain until one model returns a parseable
// diagnosis covering the given columns. An unparseable reply is a content
// error and advances the chain exactly like a retryable transport failure.
func (a *Analyzer) Analyze(
	ctx context.Context,
	columns []string,
	sample string,
	endpoints []models.ModelEndpoint,
	creds llm.Credentials,
) (models.SchemaDiagnosis, error) {
	prompt := prompts.BuildSchemaAnalysisPrompt(columns, sample)

	var diagnosis models.SchemaDiagnosis
	err := walkChain(models.RoleSchemaAnalysis, endpoints, func(ep models.ModelEndpoint) error {
		client := a.factory.Create(ep, creds)

		resp, err := client.Complete(ctx, llm.Request{
			System:      prompts.SchemaAnalysisSystem,
			Prompt:      prompt,
			Temperature: 0.1,
			MaxTokens:   2000,
		})
		if err != nil {
			return err
		}

		parsed, err := parseDiagnosis(resp.Content, columns)
		if err != nil {
			a.logger.Warn("diagnosis parse failed, advancing chain",
				zap.String("endpoint", string(ep)),
				zap.Error(err))
			return llm.NewTransportError(llm.KindMalformed, err.Error(), ep, err)
		}

		diagnosis = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("schema analysis completed", zap.Int("columns", len(diagnosis)))
	return diagnosis, nil
}

// parseDiagnosis validates the model reply against the column contract:
// every diagnosed column name must match an input column exactly; columns
// the model skipped are filled in as unknown so the classified column set is
// stable across runs.
func parseDiagnosis(content string, columns []string) (models.SchemaDiagnosis, error) {
	raw, err := llm.ParseJSONResponse[map[string]rawColumnDiagnosis](content)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("diagnosis is empty")
	}

	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	for name := range raw {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("diagnosis names column %q which does not exist", name)
		}
	}

	diagnosis := make(models.SchemaDiagnosis, len(columns))
	for _, c := range columns {
		if rc, ok := raw[c]; ok {
			diagnosis[c] = models.ColumnDiagnosis{
				InferredType: models.NormalizeColumnType(rc.InferredType),
				Issues:       rc.DetectedIssues,
				Suggestion:   rc.CleaningSuggestion,
			}
		} else {
			diagnosis[c] = models.ColumnDiagnosis{InferredType: models.ColumnTypeUnknown}
		}
	}
	return diagnosis, nil
}
