package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/events"
	"github.com/salespulse/platform/pkg/jobs"
	"github.com/salespulse/platform/pkg/observability/metrics"
	"github.com/salespulse/platform/pkg/targets"
)

var (
	ErrNoEligibleTargets = errors.New("no active targets to scrape")
	ErrTriggerFailed     = errors.New("scrape trigger failed")
)

// TriggerFailedError carries the id of the job that was created and then
// failed because the workflow could not be reached.
type TriggerFailedError struct {
	JobID  uuid.UUID
	Reason string
}

func (e *TriggerFailedError) Error() string {
	return fmt.Sprintf("%s for job %s: %s", ErrTriggerFailed, e.JobID, e.Reason)
}

func (e *TriggerFailedError) Unwrap() error {
	return ErrTriggerFailed
}

type TargetLister interface {
	ListActive(ctx context.Context) ([]targets.Target, error)
}

type Orchestrator struct {
	targets   TargetLister
	jobs      *jobs.Store
	trigger   Trigger
	publisher events.Publisher
}

func NewOrchestrator(targetRepo TargetLister, store *jobs.Store, trigger Trigger, publisher events.Publisher) *Orchestrator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Orchestrator{targets: targetRepo, jobs: store, trigger: trigger, publisher: publisher}
}

// TriggerScrape creates a pending job for every active target and hands the
// job to the scraping workflow. The job exists before the workflow is called
// so that an early ingest can always find it.
func (o *Orchestrator) TriggerScrape(ctx context.Context) (uuid.UUID, error) {
	active, err := o.targets.ListActive(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading active targets: %w", err)
	}
	if len(active) == 0 {
		return uuid.Nil, ErrNoEligibleTargets
	}

	job, err := o.jobs.Create(ctx, len(active), jobs.TriggerDashboard)
	if err != nil {
		return uuid.Nil, err
	}
	metrics.JobTriggered()
	log := logger.Log.WithField("job_id", job.ID)
	log.WithField("targets", len(active)).Info("scrape job created")
	events.Emit(ctx, o.publisher, events.JobCreated, job.ID.String(), map[string]interface{}{
		"total_targets": len(active),
	})

	req := models.TriggerRequest{JobID: job.ID.String(), Users: make([]models.TriggerTarget, 0, len(active))}
	for _, t := range active {
		req.Users = append(req.Users, models.TriggerTarget{ID: t.ID.String(), LinkedInURL: t.LinkedInURL})
	}

	if err := o.trigger.Trigger(ctx, req); err != nil {
		metrics.TriggerFailed()
		reason := err.Error()
		log.WithError(err).Error("scrape trigger failed")
		// The caller's context may be the one that expired; record the
		// failure regardless.
		if markErr := o.jobs.MarkFailed(context.WithoutCancel(ctx), job.ID, reason); markErr != nil {
			log.WithError(markErr).Error("failed to mark scrape job failed")
		}
		events.Emit(ctx, o.publisher, events.JobFailed, job.ID.String(), map[string]interface{}{"error": reason})
		return job.ID, &TriggerFailedError{JobID: job.ID, Reason: reason}
	}

	if err := o.jobs.MarkProcessing(ctx, job.ID); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			log.WithError(err).Info("scrape job advanced before trigger returned")
			return job.ID, nil
		}
		return job.ID, err
	}
	events.Emit(ctx, o.publisher, events.JobProcessing, job.ID.String(), nil)
	return job.ID, nil
}
