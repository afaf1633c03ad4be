package leaderboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/salespulse/platform/pkg/common/logger"
	"github.com/salespulse/platform/pkg/common/models"
	"github.com/salespulse/platform/pkg/events"
	"github.com/salespulse/platform/pkg/jobs"
	"github.com/salespulse/platform/pkg/observability/metrics"
	"github.com/salespulse/platform/pkg/posts"
)

const (
	TopPostsPerTarget = 3

	boardKey = "board"
	kpisKey  = "kpis"
)

type JobLookup interface {
	LastCompleted(ctx context.Context) (*jobs.Job, error)
}

type Service struct {
	repo  *Repository
	posts *posts.Repository
	jobs  JobLookup
	cache Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewService wires the read side. cache may be nil to disable caching.
func NewService(repo *Repository, postRepo *posts.Repository, jobLookup JobLookup, cache Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		repo:  repo,
		posts: postRepo,
		jobs:  jobLookup,
		cache: cache,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Leaderboard returns ranked standings with each target's top posts.
func (s *Service) Leaderboard(ctx context.Context) (*Board, error) {
	var board Board
	if s.cached(ctx, boardKey, &board) {
		return &board, nil
	}

	computed, err := s.computeBoard(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, boardKey, computed)
	return computed, nil
}

func (s *Service) computeBoard(ctx context.Context) (*Board, error) {
	standings, err := s.repo.Standings(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.posts.TopByTarget(ctx, TopPostsPerTarget)
	if err != nil {
		return nil, err
	}
	for i := range standings {
		standings[i].TopPosts = top[standings[i].ID]
		if standings[i].TopPosts == nil {
			standings[i].TopPosts = []posts.Post{}
		}
	}
	if standings == nil {
		standings = []Standing{}
	}
	return &Board{Standings: standings, GeneratedAt: s.now()}, nil
}

// TargetPosts is the expanded post list for one leaderboard row.
func (s *Service) TargetPosts(ctx context.Context, targetID uuid.UUID) ([]posts.Post, error) {
	out, err := s.posts.ListByTarget(ctx, targetID, 0)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []posts.Post{}
	}
	return out, nil
}

// KPIs computes dashboard figures for the current UTC calendar month.
func (s *Service) KPIs(ctx context.Context) (*KPIs, error) {
	var kpis KPIs
	if s.cached(ctx, kpisKey, &kpis) {
		return &kpis, nil
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	horizon := monthStart.AddDate(0, 1, 0)

	posters, err := s.repo.ActivePosters(ctx, monthStart)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.ActiveTargets(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.PostsBetween(ctx, monthStart, horizon)
	if err != nil {
		return nil, err
	}
	previous, err := s.repo.PostsBetween(ctx, lastMonthStart, monthStart)
	if err != nil {
		return nil, err
	}
	engagement, err := s.repo.EngagementBetween(ctx, monthStart, horizon)
	if err != nil {
		return nil, err
	}
	standings, err := s.repo.Standings(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.jobs.LastCompleted(ctx)
	if err != nil {
		return nil, err
	}

	kpis = KPIs{
		ActivePosters: ActivePosters{Count: posters, Total: total, Percentage: percentage(posters, total)},
		TotalPosts: PostVolume{
			Count:         current,
			PreviousCount: previous,
			ChangePercent: ChangePercent(current, previous),
		},
		TotalEngagement: Engagement{Count: engagement, Formatted: FormatCompact(engagement)},
	}
	if len(standings) > 0 {
		kpis.TopPerformer = &TopPerformer{Name: standings[0].Name, Score: standings[0].TotalScore}
	}
	if last != nil {
		kpis.LastUpdated = last.CompletedAt
	}
	s.store(ctx, kpisKey, &kpis)
	return &kpis, nil
}

// Invalidate drops cached payloads so the next read recomputes them.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, boardKey, kpisKey)
}

// Warm recomputes and caches the leaderboard and KPIs.
func (s *Service) Warm(ctx context.Context) error {
	if err := s.Invalidate(ctx); err != nil {
		return err
	}
	if _, err := s.Leaderboard(ctx); err != nil {
		return err
	}
	_, err := s.KPIs(ctx)
	return err
}

// Stale reports whether an event type invalidates cached standings.
func Stale(eventType string) bool {
	return eventType == events.JobCompleted || eventType == events.TargetChanged
}

// Invalidator drops the cache inline for every stale event it sees.
func (s *Service) Invalidator() events.Publisher {
	return events.Func(func(ctx context.Context, eventType, _ string, _ map[string]interface{}) error {
		if !Stale(eventType) {
			return nil
		}
		return s.Invalidate(ctx)
	})
}

// HandleEvent refreshes the cache when a scrape job completes or the roster
// changes.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) error {
	if !Stale(event.Type) {
		return nil
	}
	logger.Log.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"job_id":     event.Data["job_id"],
		"target_id":  event.Data["target_id"],
	}).Info("refreshing leaderboard cache")
	return s.Warm(ctx)
}

func (s *Service) cached(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("leaderboard cache read failed")
		return false
	}
	if !ok {
		metrics.LeaderboardMiss()
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("discarding unreadable cache entry")
		return false
	}
	metrics.LeaderboardHit()
	return true
}

func (s *Service) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("leaderboard cache write failed")
	}
}
