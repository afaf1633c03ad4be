package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/events"
	"github.com/salespulse/platform/pkg/jobs"
	"github.com/salespulse/platform/pkg/observability/metrics"
	"github.com/salespulse/platform/pkg/posts"
)

var ErrInvalidJobState = errors.New("job is not in a valid state for ingestion")

type PostStore interface {
	InsertIfAbsent(ctx context.Context, post *posts.Post) (bool, error)
	UpdateEngagement(ctx context.Context, externalID string, likes, comments, reposts int, scrapedAt time.Time) error
}

type TargetStore interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	TouchLastScraped(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Summary struct {
	ProcessedTargets int
	NewPosts         int
	UpdatedPosts     int
	Skipped          int
	Warnings         []string
}

type Processor struct {
	jobs      *jobs.Store
	targets   TargetStore
	posts     PostStore
	publisher events.Publisher
	now       func() time.Time
}

func NewProcessor(store *jobs.Store, targetStore TargetStore, postStore PostStore, publisher events.Publisher) *Processor {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Processor{
		jobs:      store,
		targets:   targetStore,
		posts:     postStore,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ingest applies one result batch to its job and completes the job. Bad posts
// and unknown targets are skipped and recorded as warnings; only job-level
// problems fail the call.
func (p *Processor) Ingest(ctx context.Context, batch *Batch) (Summary, error) {
	if err := p.ensureProcessing(ctx, batch.JobID); err != nil {
		return Summary{}, err
	}

	jobID := batch.JobID
	log := logger.Log.WithField("job_id", jobID)
	var summary Summary
	warn := func(msg string) {
		summary.Skipped++
		summary.Warnings = append(summary.Warnings, msg)
	}

	for _, result := range batch.Results {
		tlog := log.WithField("target_id", result.TargetID)

		exists, err := p.targets.Exists(ctx, result.TargetID)
		if err != nil {
			tlog.WithError(err).Error("failed to look up target")
			warn(fmt.Sprintf("target %s: lookup failed", result.TargetID))
			continue
		}
		if !exists {
			tlog.Warn("ingest result for unknown target skipped")
			warn(fmt.Sprintf("target %s: not tracked, %d post(s) skipped", result.TargetID, len(result.Posts)))
			continue
		}

		scrapedAt := p.now()
		for _, in := range result.Posts {
			inserted, err := p.upsert(ctx, result.TargetID, in, scrapedAt)
			if err != nil {
				tlog.WithError(err).WithField("external_post_id", in.ExternalID).Error("failed to store post")
				warn(fmt.Sprintf("post %s: not stored", in.ExternalID))
				continue
			}
			if inserted {
				summary.NewPosts++
			} else {
				summary.UpdatedPosts++
			}
		}

		if err := p.targets.TouchLastScraped(ctx, result.TargetID, scrapedAt); err != nil {
			tlog.WithError(err).Error("failed to update last_scraped_at")
		}
		if err := p.jobs.IncrementProgress(ctx, jobID, 1); err != nil {
			tlog.WithError(err).Warn("failed to advance job progress")
			if errors.Is(err, jobs.ErrProgressOverflow) {
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("target %s: more results than scheduled targets", result.TargetID))
			}
		}
		summary.ProcessedTargets++
	}

	// Posts are already written; finish the job even if the request is gone.
	finishCtx := context.WithoutCancel(ctx)
	if err := p.jobs.MarkCompleted(finishCtx, jobID, summary.NewPosts, summary.UpdatedPosts, summary.Warnings); err != nil {
		if !errors.Is(err, jobs.ErrInvalidTransition) {
			return summary, fmt.Errorf("completing job: %w", err)
		}
		log.WithError(err).Warn("job finalized by a concurrent batch")
	}

	metrics.ObserveBatch(summary.NewPosts, summary.UpdatedPosts, summary.Skipped)
	log.WithFields(map[string]interface{}{
		"processed_targets": summary.ProcessedTargets,
		"new_posts":         summary.NewPosts,
		"updated_posts":     summary.UpdatedPosts,
		"skipped":           summary.Skipped,
	}).Info("ingest batch applied")
	events.Emit(finishCtx, p.publisher, events.JobCompleted, jobID.String(), map[string]interface{}{
		"new_posts":     summary.NewPosts,
		"updated_posts": summary.UpdatedPosts,
	})
	return summary, nil
}

// ensureProcessing rejects missing or terminal jobs and advances a pending
// job to processing.
func (p *Processor) ensureProcessing(ctx context.Context, id uuid.UUID) error {
	job, err := p.jobs.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return fmt.Errorf("job %s is %s: %w", id, job.Status, ErrInvalidJobState)
	}
	if job.Status != jobs.StatusPending {
		return nil
	}

	err = p.jobs.MarkProcessing(ctx, id)
	if err == nil {
		events.Emit(ctx, p.publisher, events.JobProcessing, id.String(), nil)
		return nil
	}
	if !errors.Is(err, jobs.ErrInvalidTransition) {
		return err
	}
	// Someone else moved it; only processing is acceptable now.
	job, err = p.jobs.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != jobs.StatusProcessing {
		return fmt.Errorf("job %s is %s: %w", id, job.Status, ErrInvalidJobState)
	}
	return nil
}

func (p *Processor) upsert(ctx context.Context, targetID uuid.UUID, in PostInput, scrapedAt time.Time) (bool, error) {
	post := &posts.Post{
		TargetID:       targetID,
		ExternalPostID: in.ExternalID,
		PostURL:        in.URL,
		ContentSnippet: in.Snippet,
		PostType:       in.Type,
		PublishedAt:    in.PublishedAt,
		LikesCount:     in.Likes,
		CommentsCount:  in.Comments,
		RepostsCount:   in.Reposts,
		ScrapedAt:      scrapedAt,
	}
	inserted, err := p.posts.InsertIfAbsent(ctx, post)
	if err != nil || inserted {
		return inserted, err
	}
	if err := p.posts.UpdateEngagement(ctx, in.ExternalID, in.Likes, in.Comments, in.Reposts, scrapedAt); err != nil {
		return false, err
	}
	return false, nil
}
