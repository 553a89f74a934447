package model

import "fmt"

// PredictionDomainError indicates a prediction request for a covariate level
// that was never declared in the category encoding.
type PredictionDomainError struct {
	Field string
	Value string
}

func (e *PredictionDomainError) Error() string {
	return fmt.Sprintf("predict: %s level %q not declared in encoding", e.Field, e.Value)
}

// MissingCoefficientError indicates posterior draws lacking a coefficient
// that the formula structure requires for the requested covariates.
type MissingCoefficientError struct {
	Name string
}

func (e *MissingCoefficientError) Error() string {
	return fmt.Sprintf("predict: posterior draws missing coefficient %q", e.Name)
}
