// Package poller follows a scrape job from the client side until it reaches
// a terminal state.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/jobs"
)

const DefaultInterval = 3 * time.Second

var ErrNoJobID = errors.New("job id is required")

type StatusFetcher interface {
	JobStatus(ctx context.Context, jobID string) (*models.JobStatusResponse, error)
}

type Triggerer interface {
	Trigger(ctx context.Context) (string, error)
}

// Callbacks may be left nil. Exactly one of OnComplete or OnError fires per
// poll that reaches a terminal state; neither fires after Reset.
type Callbacks struct {
	OnProgress func(progress models.JobProgress)
	OnComplete func(summary models.JobSummary)
	OnError    func(message string)
}

type Poller struct {
	fetcher   StatusFetcher
	interval  time.Duration
	callbacks Callbacks

	mu     sync.Mutex
	run    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func New(fetcher StatusFetcher, interval time.Duration, callbacks Callbacks) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{fetcher: fetcher, interval: interval, callbacks: callbacks}
}

// Start checks the job immediately and then once per interval. A poll already
// in progress is reset first.
func (p *Poller) Start(ctx context.Context, jobID string) error {
	if jobID == "" {
		return ErrNoJobID
	}
	p.Reset()

	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.run++
	run := p.run
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		p.loop(pollCtx, run, jobID)
	}()
	return nil
}

// TriggerAndPoll starts a scrape through trigger and polls the resulting job.
func (p *Poller) TriggerAndPoll(ctx context.Context, trigger Triggerer) (string, error) {
	jobID, err := trigger.Trigger(ctx)
	if err != nil {
		return jobID, err
	}
	return jobID, p.Start(ctx, jobID)
}

// Reset stops polling without firing callbacks.
func (p *Poller) Reset() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.run++
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (p *Poller) IsPolling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Wait blocks until the current poll goroutine exits or ctx is done.
func (p *Poller) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) loop(ctx context.Context, run uint64, jobID string) {
	if p.check(ctx, run, jobID) {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.check(ctx, run, jobID) {
				return
			}
		}
	}
}

// check returns true once polling should stop.
func (p *Poller) check(ctx context.Context, run uint64, jobID string) bool {
	status, err := p.fetcher.JobStatus(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		logger.Log.WithError(err).WithField("job_id", jobID).Warn("job status check failed, retrying next tick")
		return false
	}

	switch status.Status {
	case jobs.StatusCompleted:
		if p.finish(run) && p.callbacks.OnComplete != nil {
			var summary models.JobSummary
			if status.Summary != nil {
				summary = *status.Summary
			}
			p.callbacks.OnComplete(summary)
		}
		return true
	case jobs.StatusFailed:
		if p.finish(run) && p.callbacks.OnError != nil {
			message := status.Error
			if message == "" {
				message = "Scrape job failed"
			}
			p.callbacks.OnError(message)
		}
		return true
	}

	if status.Progress != nil && p.callbacks.OnProgress != nil && p.current(run) {
		p.callbacks.OnProgress(*status.Progress)
	}
	return false
}

// finish claims the terminal callback for run. It fails if the run was reset
// or superseded.
func (p *Poller) finish(run uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run != run || p.cancel == nil {
		return false
	}
	p.cancel = nil
	return true
}

func (p *Poller) current(run uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run == run && p.cancel != nil
}
