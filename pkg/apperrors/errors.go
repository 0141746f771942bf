package apperrors

import "errors"

var (
	ErrNoData      = errors.New("no data loaded")
	ErrNoDiagnosis = errors.New("no schema diagnosis available")
)
