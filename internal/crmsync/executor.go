package crmsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"salgsmotor/internal/crm"
	"salgsmotor/internal/platform/logger"
)

// Status is the overall outcome of applying one plan.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// PipelineStatus is what happened to the planned pipeline item.
type PipelineStatus string

const (
	PipelineNone    PipelineStatus = "none"
	PipelineSkipped PipelineStatus = "skipped"
	PipelineCreated PipelineStatus = "created"
	PipelineFailed  PipelineStatus = "failed"
	// PipelinePlanned is reported by dry runs in place of created.
	PipelinePlanned PipelineStatus = "planned"
)

// FieldWrite is a written (or, in dry-run, projected) field.
type FieldWrite struct {
	Field   Field       `json:"field"`
	FieldID crm.FieldID `json:"field_id"`
	Value   string      `json:"value"`
}

// FieldFailure is a field the CRM refused.
type FieldFailure struct {
	Field   Field       `json:"field"`
	FieldID crm.FieldID `json:"field_id"`
	Reason  string      `json:"reason"`
}

// Result reports what Apply did for one record.
type Result struct {
	RecordID       string            `json:"record_id"`
	Status         Status            `json:"status"`
	Written        []FieldWrite      `json:"written,omitempty"`
	Failed         []FieldFailure    `json:"failed,omitempty"`
	Pipeline       PipelineStatus    `json:"pipeline"`
	PipelineItemID string            `json:"pipeline_item_id,omitempty"`
	PipelineItem   *crm.PipelineItem `json:"pipeline_item,omitempty"`
	PipelineError  string            `json:"pipeline_error,omitempty"`
	DryRun         bool              `json:"dry_run"`
}

// Executor applies sync plans through a CRM client.
type Executor struct {
	client  crm.Client
	metrics *Metrics
	logger  *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

func WithMetrics(m *Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

func NewExecutor(client crm.Client, opts ...ExecutorOption) (*Executor, error) {
	if client == nil {
		return nil, errors.New("crm client is required")
	}
	e := &Executor{client: client, logger: logger.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Apply executes plan. In dry-run mode it makes no CRM calls and reports
// the plan as if every step succeeded.
//
// Fields are written independently; a rejected field is recorded and the
// rest are still attempted. The pipeline item is created after the fields,
// and the update log is written last, carrying the dedupe marker only when
// the item was created. A failed log write that would lose the marker is
// retried once. A CRM authorization failure stops at once and is
// returned as an error wrapping crm.ErrUnauthorized, together with the
// partial result.
func (e *Executor) Apply(ctx context.Context, plan *Plan, dryRun bool) (*Result, error) {
	res := &Result{Status: StatusSuccess, Pipeline: PipelineNone, DryRun: dryRun}
	if plan == nil {
		return res, nil
	}
	res.RecordID = plan.RecordID
	if plan.PipelineSkip != "" && plan.PipelineSkip != SkipNoRecommendation {
		res.Pipeline = PipelineSkipped
	}

	if dryRun {
		return e.project(plan, res), nil
	}

	attempted, failed := 0, 0
	var written []string

	for _, m := range plan.Mutations {
		attempted++
		err := e.client.WriteCustomField(ctx, plan.RecordID, m.FieldID, m.Value)
		if err != nil {
			failed++
			e.metrics.IncWrite("field", "error")
			res.Failed = append(res.Failed, FieldFailure{Field: m.Field, FieldID: m.FieldID, Reason: err.Error()})
			if crm.IsUnauthorized(err) {
				return e.abort(res, err)
			}
			e.logger.WarnContext(ctx, "crm field write failed",
				"record_id", plan.RecordID,
				"field", string(m.Field),
				"field_id", string(m.FieldID),
				"error", err,
			)
			continue
		}
		e.metrics.IncWrite("field", "ok")
		written = append(written, string(m.Field))
		res.Written = append(res.Written, FieldWrite{Field: m.Field, FieldID: m.FieldID, Value: m.Value})
	}

	created := false
	if plan.Pipeline != nil {
		attempted++
		item := plan.Pipeline.Item
		res.PipelineItem = &item
		id, err := e.client.CreatePipelineItem(ctx, plan.RecordID, item)
		if err != nil {
			failed++
			e.metrics.IncWrite("pipeline", "error")
			res.Pipeline = PipelineFailed
			res.PipelineError = err.Error()
			if crm.IsUnauthorized(err) {
				return e.abort(res, err)
			}
			e.logger.WarnContext(ctx, "crm pipeline item failed",
				"record_id", plan.RecordID,
				"orgnr", plan.OrgNumber,
				"error", err,
			)
		} else {
			e.metrics.IncWrite("pipeline", "ok")
			created = true
			res.Pipeline = PipelineCreated
			res.PipelineItemID = id
			written = append(written, pipelineEntry)
		}
	}

	// The log records what happened, so it is only written when something did.
	if plan.Log != nil && len(written) > 0 {
		attempted++
		marker := ""
		if created {
			marker = plan.Pipeline.Marker
		}
		value := AppendLog(plan.Log.Previous, LogEntry(plan.Log.At, written, marker))
		err := e.client.WriteCustomField(ctx, plan.RecordID, plan.Log.FieldID, value)
		if err != nil && created && !crm.IsUnauthorized(err) {
			// Without the marker the next run would file a second item.
			e.metrics.IncWrite("log", "retry")
			err = e.client.WriteCustomField(ctx, plan.RecordID, plan.Log.FieldID, value)
		}
		if err != nil {
			failed++
			e.metrics.IncWrite("log", "error")
			res.Failed = append(res.Failed, FieldFailure{Field: FieldUpdateLog, FieldID: plan.Log.FieldID, Reason: err.Error()})
			if crm.IsUnauthorized(err) {
				return e.abort(res, err)
			}
			if created {
				e.logger.ErrorContext(ctx, "pipeline item created but dedupe marker not recorded",
					"record_id", plan.RecordID,
					"orgnr", plan.OrgNumber,
					"pipeline_item_id", res.PipelineItemID,
					"marker", marker,
					"error", err,
				)
			} else {
				e.logger.WarnContext(ctx, "crm update log write failed", "record_id", plan.RecordID, "error", err)
			}
		} else {
			e.metrics.IncWrite("log", "ok")
			res.Written = append(res.Written, FieldWrite{Field: FieldUpdateLog, FieldID: plan.Log.FieldID, Value: value})
		}
	}

	res.Status = statusOf(attempted, failed)
	e.logger.InfoContext(ctx, "crm sync applied",
		"record_id", plan.RecordID,
		"orgnr", plan.OrgNumber,
		"status", string(res.Status),
		"written", len(res.Written),
		"failed", len(res.Failed),
		"pipeline", string(res.Pipeline),
	)
	return res, nil
}

func (e *Executor) project(plan *Plan, res *Result) *Result {
	for _, m := range plan.Mutations {
		res.Written = append(res.Written, FieldWrite{Field: m.Field, FieldID: m.FieldID, Value: m.Value})
	}
	if plan.Pipeline != nil {
		item := plan.Pipeline.Item
		res.PipelineItem = &item
		res.Pipeline = PipelinePlanned
	}
	if plan.Log != nil {
		res.Written = append(res.Written, FieldWrite{Field: FieldUpdateLog, FieldID: plan.Log.FieldID, Value: plan.LogValue(true)})
	}
	return res
}

func (e *Executor) abort(res *Result, err error) (*Result, error) {
	res.Status = StatusFailed
	return res, fmt.Errorf("apply sync plan for record %s: %w", res.RecordID, err)
}

func statusOf(attempted, failed int) Status {
	switch {
	case failed == 0:
		return StatusSuccess
	case failed < attempted:
		return StatusPartial
	default:
		return StatusFailed
	}
}
