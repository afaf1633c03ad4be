package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrJobNotFound       = errors.New("scrape job not found")
	ErrInvalidTransition = errors.New("invalid scrape job state transition")
	ErrProgressOverflow  = errors.New("scrape job progress would exceed total targets")
)

var activeStatuses = []string{StatusPending, StatusProcessing}

// Store persists scrape jobs. Every mutation is one conditional UPDATE that
// re-checks the current status in its WHERE clause, so concurrent writers
// cannot lose increments or move a job out of a terminal state.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Job{})
}

func (s *Store) Create(ctx context.Context, totalTargets int, triggeredBy string) (*Job, error) {
	if totalTargets < 0 {
		return nil, fmt.Errorf("total targets must not be negative, got %d", totalTargets)
	}
	now := s.now()
	job := &Job{
		ID:           uuid.New(),
		Status:       StatusPending,
		TriggeredBy:  triggeredBy,
		TotalTargets: totalTargets,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("creating scrape job: %w", err)
	}
	return job, nil
}

func (s *Store) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":     StatusProcessing,
			"updated_at": s.now(),
		})
	return s.checkApplied(ctx, id, result)
}

// MarkFailed is valid from pending or processing.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	now := s.now()
	result := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Updates(map[string]interface{}{
			"status":        StatusFailed,
			"error_message": message,
			"completed_at":  now,
			"updated_at":    now,
		})
	return s.checkApplied(ctx, id, result)
}

// IncrementProgress adds delta to processed_targets. The update only applies
// while the job is active and the new value stays within total_targets.
func (s *Store) IncrementProgress(ctx context.Context, id uuid.UUID, delta int) error {
	if delta < 0 {
		return fmt.Errorf("progress delta must not be negative, got %d", delta)
	}
	result := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status IN ? AND processed_targets + ? <= total_targets", id, activeStatuses, delta).
		Updates(map[string]interface{}{
			"processed_targets": gorm.Expr("processed_targets + ?", delta),
			"updated_at":        s.now(),
		})
	if result.Error != nil {
		return fmt.Errorf("incrementing job progress: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return fmt.Errorf("job %s is %s: %w", id, job.Status, ErrInvalidTransition)
	}
	return fmt.Errorf("job %s at %d/%d: %w", id, job.ProcessedTargets, job.TotalTargets, ErrProgressOverflow)
}

// MarkCompleted finalizes a processing job with its summary counts.
func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, newPosts, updatedPosts int, warnings []string) error {
	now := s.now()
	updates := map[string]interface{}{
		"status":        StatusCompleted,
		"new_posts":     newPosts,
		"updated_posts": updatedPosts,
		"completed_at":  now,
		"updated_at":    now,
	}
	if len(warnings) > 0 {
		encoded, err := json.Marshal(warnings)
		if err != nil {
			return fmt.Errorf("encoding job warnings: %w", err)
		}
		updates["warnings"] = datatypes.JSON(encoded)
	}

	result := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusProcessing).
		Updates(updates)
	return s.checkApplied(ctx, id, result)
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	var job Job
	result := s.db.WithContext(ctx).First(&job, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &job, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var jobs []Job
	result := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&jobs)
	return jobs, result.Error
}

// LastCompleted returns the most recently completed job, or nil if none.
func (s *Store) LastCompleted(ctx context.Context) (*Job, error) {
	var job Job
	result := s.db.WithContext(ctx).
		Where("status = ?", StatusCompleted).
		Order("completed_at desc").
		Limit(1).
		Find(&job)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &job, nil
}

// checkApplied distinguishes a missing job from a rejected transition when a
// conditional update matched no rows.
func (s *Store) checkApplied(ctx context.Context, id uuid.UUID, result *gorm.DB) error {
	if result.Error != nil {
		return fmt.Errorf("updating scrape job: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("job %s is %s: %w", id, job.Status, ErrInvalidTransition)
}
