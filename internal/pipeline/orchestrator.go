package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CatalogSync/internal/handoff"
	"CatalogSync/internal/logger"
	"CatalogSync/internal/metrics"
	"CatalogSync/internal/model"
	"CatalogSync/internal/notifier"
	"CatalogSync/internal/pricing"
	"CatalogSync/internal/staging"
	"CatalogSync/internal/supplier"

	"github.com/google/uuid"
)

// Handoff triggers downstream ingestion of a priced catalog.
type Handoff interface {
	NotifyLocation(ctx context.Context, location string, count int) (handoff.Ack, error)
	NotifyPayload(ctx context.Context, entries []model.PricedEntry) (handoff.Ack, error)
}

// Options tune a run.
type Options struct {
	Channel               string // inventory channel name
	FileName              string // staged payload name
	DirectPayloadFallback bool   // send entries inline when staging fails
}

// Orchestrator runs fetch → price → stage → hand off. It holds no per-run
// state and does no locking; callers must not overlap runs.
type Orchestrator struct {
	fetcher  supplier.Fetcher
	uploader staging.Uploader
	handoff  Handoff
	notifier notifier.Notifier
	opts     Options
	now      func() time.Time
	log      *logger.Logger
}

func New(f supplier.Fetcher, u staging.Uploader, h Handoff, n notifier.Notifier, opts Options, log *logger.Logger) *Orchestrator {
	if opts.FileName == "" {
		opts.FileName = "priced_catalog.json"
	}
	if n == nil {
		n = notifier.Noop{}
	}
	return &Orchestrator{
		fetcher:  f,
		uploader: u,
		handoff:  h,
		notifier: n,
		opts:     opts,
		now:      time.Now,
		log:      log.With("pipeline"),
	}
}

// RunOnce executes one sync and always returns a RunResult. The error is a
// *model.StageError only when the run aborted (fetch or pricing failed);
// staging and handoff failures degrade the result instead.
func (o *Orchestrator) RunOnce(ctx context.Context) (*model.RunResult, error) {
	res := &model.RunResult{
		RunID:     uuid.NewString(),
		Timestamp: o.now().UTC(),
		Stage:     model.StageFetching,
		Status:    model.RunSuccess,
	}
	o.log.Info().Str("run_id", res.RunID).Str("source", o.fetcher.Name()).Msg("run started")

	start := time.Now()
	products, err := o.fetcher.FetchFullCatalog(ctx)
	metrics.ObserveStage(string(model.StageFetching), time.Since(start), err)
	if err != nil {
		return o.abort(ctx, res, "Catalog fetch failed", err)
	}

	res.Stage = model.StagePricing
	start = time.Now()
	entries, err := pricing.ComputePricedCatalog(products, o.opts.Channel)
	metrics.ObserveStage(string(model.StagePricing), time.Since(start), err)
	if err != nil {
		return o.abort(ctx, res, "Pricing failed", err)
	}
	res.Count = len(entries)
	o.log.Info().Str("run_id", res.RunID).Int("count", res.Count).Msg("catalog priced")
	o.notify(res, func() error { return o.notifier.NotifyStarted(ctx, res.Count) })

	res.Stage = model.StageStaging
	start = time.Now()
	staged, err := o.stage(ctx, entries)
	metrics.ObserveStage(string(model.StageStaging), time.Since(start), err)
	if staged.Key != "" {
		res.StorageKey = &staged.Key
	}
	if err != nil {
		o.degrade(ctx, res, model.StageStaging, "Staging failed", err)
		if !o.opts.DirectPayloadFallback {
			return o.finish(res), nil
		}
		res.Stage = model.StageHandingOff
		start = time.Now()
		_, err = o.handoff.NotifyPayload(ctx, entries)
		metrics.ObserveStage(string(model.StageHandingOff), time.Since(start), err)
		if err != nil {
			o.degrade(ctx, res, model.StageHandingOff, "Direct payload handoff failed", err)
		}
		res.Stage = model.StageDone
		return o.finish(res), nil
	}
	res.Location = &staged.Location

	res.Stage = model.StageHandingOff
	start = time.Now()
	_, err = o.handoff.NotifyLocation(ctx, staged.Location, res.Count)
	metrics.ObserveStage(string(model.StageHandingOff), time.Since(start), err)
	if err != nil {
		o.degrade(ctx, res, model.StageHandingOff, "Bulk upload handoff failed", err)
	}

	res.Stage = model.StageDone
	return o.finish(res), nil
}

func (o *Orchestrator) stage(ctx context.Context, entries []model.PricedEntry) (staging.Staged, error) {
	data, err := json.Marshal(entries)
	if err != nil {
		return staging.Staged{}, fmt.Errorf("%w: encode priced catalog: %v", model.ErrStaging, err)
	}
	return o.uploader.Stage(ctx, staging.Payload{Name: o.opts.FileName, Data: data})
}

// abort ends the run at the current stage.
func (o *Orchestrator) abort(ctx context.Context, res *model.RunResult, title string, err error) (*model.RunResult, error) {
	res.Status = model.RunFailed
	res.Fail(res.Stage, err)
	o.log.Error().Err(err).Str("run_id", res.RunID).Str("stage", string(res.Stage)).Msg("run aborted")
	o.notify(res, func() error {
		return o.notifier.NotifyError(ctx, title, err, details(res))
	})
	o.finish(res)
	return res, &model.StageError{Stage: res.Stage, Err: err}
}

// degrade records a non-fatal stage failure.
func (o *Orchestrator) degrade(ctx context.Context, res *model.RunResult, stage model.Stage, title string, err error) {
	res.Status = model.RunDegraded
	res.Fail(stage, err)
	o.log.Warn().Err(err).Str("run_id", res.RunID).Str("stage", string(stage)).Msg("stage failed, continuing degraded")
	o.notify(res, func() error {
		return o.notifier.NotifyError(ctx, title, err, details(res))
	})
}

// notify swallows notification errors; they never change the run outcome.
func (o *Orchestrator) notify(res *model.RunResult, send func() error) {
	if err := send(); err != nil {
		metrics.NotificationFailed()
		o.log.Warn().Err(err).Str("run_id", res.RunID).Msg("notification failed")
	}
}

func (o *Orchestrator) finish(res *model.RunResult) *model.RunResult {
	metrics.RecordRun(string(res.Status), res.Count)
	ev := o.log.Info()
	if res.Status != model.RunSuccess {
		ev = o.log.Warn()
	}
	ev.Str("run_id", res.RunID).Str("stage", string(res.Stage)).Str("status", string(res.Status)).
		Int("count", res.Count).Msg("run finished")
	return res
}

func details(res *model.RunResult) string {
	return fmt.Sprintf("run_id=%s stage=%s count=%d", res.RunID, res.Stage, res.Count)
}

// AbortedStage returns the stage named by a RunOnce error.
func AbortedStage(err error) (model.Stage, bool) {
	var se *model.StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
