// internal/intake/submit/result.go
package submit

import "time"

// Stage identifies a step of the submission pipeline.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageValidating         Stage = "validating"
	StageMapping            Stage = "mapping"
	StagePersisting         Stage = "persisting"
	StageGeneratingDocument Stage = "generating_document"
	StageNotifying          Stage = "notifying"
	StageComplete           Stage = "complete"
	StageFailed             Stage = "failed"
)

// StageError records where in the pipeline an error happened.
type StageError struct {
	Stage   Stage  `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of one submission attempt. It is created once per
// attempt and never modified after Submit returns.
type Result struct {
	Success  bool   `json:"success"`
	RecordID string `json:"recordId,omitempty"`

	// FieldErrors is populated only for validation failures so the UI can
	// render per-field messages.
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`

	// Errors are the fatal stage failures (at most one in practice, since the
	// pipeline stops at the first fatal stage).
	Errors []StageError `json:"errors,omitempty"`

	// Warnings are non-fatal failures: the record was persisted but a
	// best-effort stage (document, notification) did not complete.
	Warnings []StageError `json:"warnings,omitempty"`

	SubmittedAt time.Time `json:"submittedAt"`
}

// ProgressFunc surfaces pipeline progress for UI feedback only; it has no
// effect on control flow.
type ProgressFunc func(stage Stage, percent int, message string)
