// Package pipeline orchestrates a full run: extract every entity's source
// batch, then validate, coerce and upsert entity by entity in dependency
// order. A failed entity fails the run and skips everything downstream of it.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/coercer"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/types"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/upsert"
	"github.com/Lumos-Labs-HQ/ledgerflow/internal/validator"
)

// State names where an entity's load step is in its lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateCoercing   State = "coercing"
	StateUpserting  State = "upserting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Extractor supplies the source batches for a run. Fetches may happen
// concurrently; the load steps that consume them stay strictly ordered.
type Extractor interface {
	ExtractAll(ctx context.Context, descs []*entity.Descriptor) (map[string]types.Batch, error)
}

// Reporter runs the optional post-run analytics pass. Its failure is logged
// but never changes a successful run's outcome.
type Reporter interface {
	Report(ctx context.Context) error
}

// StepResult records what happened to one entity in one run.
type StepResult struct {
	Entity       string
	State        State
	Skipped      bool
	RowsLoaded   int
	UpdatedRows  int
	InsertedRows int
	ErrorMessage string
}

// RunResult is the full outcome of one pipeline run.
type RunResult struct {
	RunID        uuid.UUID
	Success      bool
	StartedAt    time.Time
	CompletedAt  time.Time
	Steps        []StepResult
	ErrorMessage string
}

// Orchestrator wires the stages together around one connected store.
type Orchestrator struct {
	registry  *entity.Registry
	extractor Extractor
	validator *validator.Validator
	coercer   *coercer.Coercer
	engine    *upsert.Engine
	store     upsert.Store
	reporter  Reporter
	log       *logrus.Logger
}

func New(registry *entity.Registry, extractor Extractor, v *validator.Validator,
	c *coercer.Coercer, engine *upsert.Engine, store upsert.Store,
	reporter Reporter, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		registry:  registry,
		extractor: extractor,
		validator: v,
		coercer:   c,
		engine:    engine,
		store:     store,
		reporter:  reporter,
		log:       log,
	}
}

// Run executes one pipeline run. Faults are always captured in the returned
// RunResult; err is only non-nil when the run could not even start or the
// context was cancelled.
func (o *Orchestrator) Run(ctx context.Context) (result RunResult, err error) {
	result = RunResult{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("run aborted: %v", r)
			result.CompletedAt = time.Now().UTC()
			o.log.WithField("run_id", result.RunID).Error(result.ErrorMessage)
		}
	}()

	o.log.WithField("run_id", result.RunID).Info("pipeline run started")

	descs, err := o.registry.Ordered()
	if err != nil {
		return o.fail(result, fmt.Sprintf("resolve load order: %v", err)), err
	}

	batches, err := o.extractor.ExtractAll(ctx, descs)
	if err != nil {
		if ctx.Err() != nil {
			return o.fail(result, "run cancelled"), ctx.Err()
		}
		return o.fail(result, fmt.Sprintf("extract sources: %v", err)), nil
	}

	done := make(map[string]bool, len(descs))
	failed := false
	for _, desc := range descs {
		if err := ctx.Err(); err != nil {
			return o.fail(result, "run cancelled"), err
		}
		step := StepResult{Entity: desc.Name, State: StatePending}
		switch {
		case failed:
			step.Skipped = true
			step.ErrorMessage = "skipped: an upstream entity failed"
		case desc.Parent != "" && !done[desc.Parent]:
			step.Skipped = true
			step.ErrorMessage = fmt.Sprintf("skipped: parent entity %s did not complete", desc.Parent)
		default:
			step = o.runStep(ctx, desc, batches[desc.Name])
		}
		if step.Skipped {
			o.log.WithFields(logrus.Fields{
				"run_id": result.RunID,
				"entity": desc.Name,
			}).Warn(step.ErrorMessage)
		}
		if step.State == StateFailed {
			failed = true
			if result.ErrorMessage == "" {
				result.ErrorMessage = fmt.Sprintf("%s: %s", step.Entity, step.ErrorMessage)
			}
		}
		if step.State == StateDone {
			done[desc.Name] = true
		}
		result.Steps = append(result.Steps, step)
	}

	result.Success = !failed
	if result.Success && o.reporter != nil {
		// Analytics is best-effort: a reporting failure never turns a
		// successful load into a failed run.
		if err := o.reporter.Report(ctx); err != nil {
			o.log.WithFields(logrus.Fields{
				"run_id": result.RunID,
			}).WithError(err).Warn("analytics pass failed")
		}
	}

	result.CompletedAt = time.Now().UTC()
	o.log.WithFields(logrus.Fields{
		"run_id":   result.RunID,
		"success":  result.Success,
		"duration": result.CompletedAt.Sub(result.StartedAt).String(),
	}).Info("pipeline run finished")
	return result, nil
}

func (o *Orchestrator) fail(result RunResult, msg string) RunResult {
	result.Success = false
	result.ErrorMessage = msg
	result.CompletedAt = time.Now().UTC()
	o.log.Error(msg)
	return result
}

func (o *Orchestrator) runStep(ctx context.Context, desc *entity.Descriptor, batch types.Batch) StepResult {
	step := StepResult{Entity: desc.Name, State: StateValidating}

	parentKeys, err := o.parentKeys(ctx, desc)
	if err != nil {
		step.State = StateFailed
		step.ErrorMessage = err.Error()
		return step
	}

	outcome := o.validator.Validate(desc, batch, parentKeys)
	if !outcome.Valid {
		step.State = StateFailed
		step.ErrorMessage = summarizeErrors(outcome.Errors)
		return step
	}

	step.State = StateCoercing
	coerced, err := o.coercer.Coerce(desc, outcome.Passed)
	if err != nil {
		step.State = StateFailed
		step.ErrorMessage = err.Error()
		return step
	}

	step.State = StateUpserting
	res, err := o.engine.Upsert(ctx, coerced, desc.TableName, desc.ConflictKey, desc.ColumnNames())
	if err != nil {
		step.State = StateFailed
		step.ErrorMessage = err.Error()
		return step
	}

	step.State = StateDone
	step.RowsLoaded = res.AttemptedRows
	step.UpdatedRows = res.UpdatedRows
	step.InsertedRows = res.InsertedRows
	return step
}

// parentKeys collects the committed conflict keys of the parent table. The
// parent step has already run by the time a child is validated, so the table
// holds both pre-existing and freshly loaded keys.
func (o *Orchestrator) parentKeys(ctx context.Context, desc *entity.Descriptor) (map[string]struct{}, error) {
	if desc.Parent == "" {
		return nil, nil
	}
	parent, err := o.registry.Lookup(desc.Parent)
	if err != nil {
		return nil, fmt.Errorf("resolve parent of %s: %w", desc.Name, err)
	}
	keys, err := o.store.Keys(ctx, parent.TableName, desc.ReferencedKeyColumn)
	if err != nil {
		return nil, fmt.Errorf("collect %s keys: %w", desc.Parent, err)
	}
	return keys, nil
}

// summarizeErrors flattens validation errors into one message, capped so a
// large bad batch does not flood logs.
func summarizeErrors(errs []validator.Error) string {
	const maxShown = 5
	parts := make([]string, 0, maxShown+1)
	for i, e := range errs {
		if i == maxShown {
			parts = append(parts, fmt.Sprintf("and %d more", len(errs)-maxShown))
			break
		}
		parts = append(parts, e.String())
	}
	return fmt.Sprintf("validation failed (%d errors): %s", len(errs), strings.Join(parts, "; "))
}
