package search

import (
	"time"
)

// Error kinds. The set is closed: every failure surfaced to a caller
// carries exactly one of these tags.
const (
	KindSchemaInvalid      = "schema-invalid"
	KindExtractionFailed   = "extraction-failed"
	KindVocabularyMismatch = "vocabulary-mismatch"
	KindPlanInvalid        = "plan-invalid"
	KindSourceUnavailable  = "source-unavailable"
	KindSourceTimeout      = "source-timeout"
	KindDeadlineExceeded   = "deadline-exceeded"
	KindEmptyResult        = "empty-result"
)

// PipelineError is the structured error record attached to responses.
// Recovered errors did not stop the request; unrecovered ones explain why
// the candidate list is empty.
type PipelineError struct {
	Node      string    `json:"node"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Recovered bool      `json:"recovered"`
}

func newError(node, kind, message string, recovered bool) PipelineError {
	return PipelineError{
		Node:      node,
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Recovered: recovered,
	}
}
