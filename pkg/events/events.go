// Package events publishes scrape job lifecycle and roster notifications.
package events

import (
	"context"
	"errors"

	"github.com/salespulse/platform/pkg/common/logger"
)

const (
	JobCreated    = "scrape_job.created"
	JobProcessing = "scrape_job.processing"
	JobFailed     = "scrape_job.failed"
	JobCompleted  = "scrape_job.completed"

	// TargetChanged fires after a tracked target is created, updated or
	// deleted.
	TargetChanged = "target.changed"
)

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, eventType string, key string, data map[string]interface{}) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, map[string]interface{}) error {
	return nil
}

// Emit publishes a job event without failing the caller. Job state lives in
// the database; events only feed downstream caches.
func Emit(ctx context.Context, pub Publisher, eventType, jobID string, data map[string]interface{}) {
	emit(ctx, pub, eventType, "job_id", jobID, data)
}

// EmitTarget publishes TargetChanged for one roster mutation.
func EmitTarget(ctx context.Context, pub Publisher, targetID, action string) {
	emit(ctx, pub, TargetChanged, "target_id", targetID, map[string]interface{}{"action": action})
}

func emit(ctx context.Context, pub Publisher, eventType, idField, id string, data map[string]interface{}) {
	if pub == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data[idField] = id
	if err := pub.Publish(ctx, eventType, id, data); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_type": eventType,
			idField:      id,
		}).Warn("failed to publish event")
	}
}

// Func adapts a plain function to Publisher.
type Func func(ctx context.Context, eventType string, key string, data map[string]interface{}) error

func (f Func) Publish(ctx context.Context, eventType string, key string, data map[string]interface{}) error {
	return f(ctx, eventType, key, data)
}

// Fanout publishes to every publisher in order and returns the joined errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, eventType string, key string, data map[string]interface{}) error {
	var errs []error
	for _, pub := range f {
		if pub == nil {
			continue
		}
		if err := pub.Publish(ctx, eventType, key, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
