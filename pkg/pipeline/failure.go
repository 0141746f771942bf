package pipeline

import (
	"errors"
	"fmt"

	"github.com/dataclinic-ai/engine/pkg/apperrors"
	"github.com/dataclinic-ai/engine/pkg/llm"
	"github.com/dataclinic-ai/engine/pkg/models"
	"github.com/dataclinic-ai/engine/pkg/plans"
)

// FailureText maps a pipeline failure to a plain-language, user-visible
// message. Raw provider or engine error text is never surfaced directly.
func FailureText(err error) string {
	if err == nil {
		return ""
	}

	var confErr *plans.ConfigurationError
	var exhausted *ExhaustedError
	var terr *llm.TransportError

	switch {
	case errors.Is(err, apperrors.ErrNoData):
		return "Load a CSV file first."
	case errors.Is(err, apperrors.ErrNoDiagnosis):
		return "Run the schema diagnosis first."
	case errors.As(err, &confErr):
		return "The active plan is not configured for this operation. Check the plan settings."
	case errors.As(err, &exhausted):
		return exhausted.UserMessage()
	case errors.As(err, &terr):
		return terr.UserMessage()
	default:
		return "The operation failed unexpectedly."
	}
}

// executionFailureText describes a run that exhausted its correction retries.
func executionFailureText(kind models.ExecutionErrorKind, maxRetries int) string {
	var cause string
	switch kind {
	case models.ExecErrSyntax:
		cause = "a syntax error"
	case models.ExecErrMissingRelation:
		cause = "a missing table or column"
	case models.ExecErrTypeMismatch:
		cause = "a type mismatch"
	default:
		cause = "an execution error"
	}
	if maxRetries == 0 {
		return fmt.Sprintf("The generated SQL failed with %s and automatic correction is disabled.", cause)
	}
	return fmt.Sprintf("The generated SQL still failed with %s after %d automatic corrections.", cause, maxRetries)
}
