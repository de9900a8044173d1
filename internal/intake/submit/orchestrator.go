// internal/intake/submit/orchestrator.go

// Package submit sequences the final submission pipeline:
// validate -> map -> persist -> generate document -> notify.
//
// Persistence is the only hard gate after validation and mapping. Once the
// external record exists it is never rolled back, so document and notification
// failures are recorded as warnings on an otherwise successful result rather
// than failing the submission.
package submit

import (
	"context"
	"sync"
	"time"

	stderrors "transaction-intake/internal/common/errors"
	"transaction-intake/internal/common/logger"
	"transaction-intake/internal/common/metrics"
	"transaction-intake/internal/intake/draft"
	"transaction-intake/internal/intake/record"
	"transaction-intake/internal/intake/template"
	"transaction-intake/internal/intake/validation"
)

// Persister stores the external record. Out of scope beyond this contract.
type Persister interface {
	CreateRecord(ctx context.Context, rec record.ExternalRecord) (string, error)
}

// Renderer produces the filled cover sheet bytes.
type Renderer interface {
	Render(ctx context.Context, templateID template.TemplateID, fields map[string]string) ([]byte, error)
}

// Attachment is a rendered document included with a notification.
type Attachment struct {
	Filename string
	Bytes    []byte
}

// Message is one admin notification. FollowUp marks submissions the agent
// flagged for follow-up; the notifier pages the on-call channel for those.
type Message struct {
	To         []string
	Subject    string
	HTMLBody   string
	Attachment *Attachment
	FollowUp   bool
}

// Notifier delivers the admin notification.
type Notifier interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Auditor records submission outcomes. Failures are logged, never surfaced.
type Auditor interface {
	RecordSubmission(ctx context.Context, res *Result) error
}

// Options tune one orchestrator instance.
type Options struct {
	Recipients []string
	Progress   ProgressFunc

	// Timeout bounds the whole pipeline. Zero means no deadline.
	Timeout time.Duration
}

// Orchestrator runs the submission state machine for one draft owner. A
// second Submit call while one is in flight is rejected, never queued.
type Orchestrator struct {
	persister Persister
	renderer  Renderer
	notifier  Notifier
	auditor   Auditor
	logger    logger.Logger
	opts      Options

	mu       sync.Mutex
	inFlight bool
}

func NewOrchestrator(p Persister, r Renderer, n Notifier, a Auditor, log logger.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		persister: p,
		renderer:  r,
		notifier:  n,
		auditor:   a,
		logger:    log.WithFields(map[string]interface{}{"component": "submission"}),
		opts:      opts,
	}
}

// Submit runs the pipeline to completion. There is no cancellation once
// validation has passed; a timeout from a collaborator is treated exactly like
// an explicit error from it.
func (o *Orchestrator) Submit(ctx context.Context, d draft.TransactionDraft) (*Result, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, stderrors.NewSubmissionInProgressError()
	}
	o.inFlight = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	res := o.run(ctx, d)

	outcome := "failed"
	if res.Success {
		outcome = "success"
	}
	metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()

	if o.auditor != nil {
		if err := o.auditor.RecordSubmission(ctx, res); err != nil {
			o.logger.Warn("audit record failed", map[string]interface{}{
				"error":    err,
				"recordId": res.RecordID,
			})
		}
	}

	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, d draft.TransactionDraft) *Result {
	res := &Result{SubmittedAt: time.Now().UTC()}

	// Validating: all steps, not just the current one. Unlike per-step
	// navigation this is a hard gate.
	o.progress(StageValidating, 10, "validating form")
	fieldErrors := o.timed(StageValidating, func() map[string]string {
		return validation.ValidateAll(d)
	})
	if len(fieldErrors) > 0 {
		verr := stderrors.NewValidationError(fieldErrors)
		res.FieldErrors = fieldErrors
		return o.fail(res, StageValidating, verr)
	}

	// Mapping: pure translation into the external record shape, then a local
	// schema check before anything goes over the wire.
	o.progress(StageMapping, 25, "preparing record")
	rec, err := record.ToExternalRecord(d)
	if err == nil {
		err = record.ValidateSchema(rec)
	}
	if err != nil {
		return o.fail(res, StageMapping, err)
	}

	// Persisting: retried at most once, no backoff.
	o.progress(StagePersisting, 50, "saving transaction")
	recordID, err := o.persistWithRetry(ctx, rec)
	if err != nil {
		return o.fail(res, StagePersisting, err)
	}
	res.RecordID = recordID

	// The record exists: from here on the submission is a success and every
	// further failure is a warning only.
	res.Success = true

	o.progress(StageGeneratingDocument, 70, "generating cover sheet")
	var attachment *Attachment
	templateID := template.Select(string(d.AgentRole))
	fields := template.Fields(d)

	docStart := time.Now()
	docBytes, err := o.renderer.Render(ctx, templateID, fields)
	metrics.SubmissionStageDuration.WithLabelValues(string(StageGeneratingDocument)).Observe(time.Since(docStart).Seconds())
	if err != nil {
		res.Warnings = append(res.Warnings, o.warn(StageGeneratingDocument, stderrors.NewDocumentError(err.Error())))
	} else {
		attachment = &Attachment{
			Filename: string(templateID) + ".pdf",
			Bytes:    docBytes,
		}
	}

	o.progress(StageNotifying, 90, "notifying staff")
	notifyStart := time.Now()
	_, err = o.notifier.Send(ctx, o.buildMessage(d, recordID, attachment))
	metrics.SubmissionStageDuration.WithLabelValues(string(StageNotifying)).Observe(time.Since(notifyStart).Seconds())
	if err != nil {
		res.Warnings = append(res.Warnings, o.warn(StageNotifying, stderrors.NewNotificationError(err.Error())))
	}

	o.progress(StageComplete, 100, "submission complete")
	o.logger.Info("submission complete", map[string]interface{}{
		"recordId": recordID,
		"warnings": len(res.Warnings),
	})
	return res
}

// persistWithRetry calls the persistence collaborator, retrying exactly once
// on failure before giving up.
func (o *Orchestrator) persistWithRetry(ctx context.Context, rec record.ExternalRecord) (string, error) {
	start := time.Now()
	defer func() {
		metrics.SubmissionStageDuration.WithLabelValues(string(StagePersisting)).Observe(time.Since(start).Seconds())
	}()

	recordID, err := o.persister.CreateRecord(ctx, rec)
	if err == nil {
		return recordID, nil
	}

	o.logger.Warn("persist failed, retrying once", map[string]interface{}{
		"error": err,
	})
	recordID, retryErr := o.persister.CreateRecord(ctx, rec)
	if retryErr != nil {
		return "", stderrors.NewPersistenceError(retryErr.Error())
	}
	return recordID, nil
}

func (o *Orchestrator) buildMessage(d draft.TransactionDraft, recordID string, attachment *Attachment) Message {
	data := map[string]interface{}{
		"propertyAddress": d.Property.Address,
		"agentRole":       string(d.AgentRole),
		"signedBy":        d.Signature.Name,
		"recordId":        recordID,
	}
	subject := renderTemplate("New transaction submitted: {{propertyAddress}}", data)
	body := renderTemplate(
		"<p>A new transaction was submitted by {{signedBy}} ({{agentRole}}).</p>"+
			"<p>Property: {{propertyAddress}}</p>"+
			"<p>Record: {{recordId}}</p>",
		data)

	return Message{
		To:         o.opts.Recipients,
		Subject:    subject,
		HTMLBody:   body,
		Attachment: attachment,
		FollowUp:   d.AdditionalInfo.RequiresFollowUp,
	}
}

func (o *Orchestrator) fail(res *Result, stage Stage, err error) *Result {
	stdErr := stderrors.Normalize(err)
	o.logger.Error("submission failed", map[string]interface{}{
		"stage":     string(stage),
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
	})
	res.Success = false
	res.Errors = append(res.Errors, StageError{
		Stage:   stage,
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
	})
	o.progress(StageFailed, 100, stdErr.Message)
	return res
}

func (o *Orchestrator) warn(stage Stage, err *stderrors.StandardError) StageError {
	o.logger.Warn("non-fatal stage failure", map[string]interface{}{
		"stage":     string(stage),
		"errorCode": string(err.Code),
		"details":   err.Details,
	})
	metrics.SubmissionWarnings.WithLabelValues(string(stage)).Inc()
	return StageError{
		Stage:   stage,
		Code:    string(err.Code),
		Message: err.Message,
	}
}

func (o *Orchestrator) progress(stage Stage, percent int, message string) {
	if o.opts.Progress != nil {
		o.opts.Progress(stage, percent, message)
	}
}

func (o *Orchestrator) timed(stage Stage, fn func() map[string]string) map[string]string {
	start := time.Now()
	out := fn()
	metrics.SubmissionStageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	return out
}
