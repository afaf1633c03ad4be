package leaderboard

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository runs the aggregate queries. It is meant for the read-only pool.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

const standingsQuery = `
	SELECT
		t.id AS target_id,
		t.name AS name,
		t.team AS team,
		t.linkedin_url AS linkedin_url,
		t.last_scraped_at AS last_scraped_at,
		COUNT(p.id) AS total_posts,
		COALESCE(SUM(p.likes_count), 0) AS total_likes,
		COALESCE(SUM(p.comments_count), 0) AS total_comments,
		COALESCE(SUM(p.reposts_count), 0) AS total_reposts,
		COALESCE(SUM(p.score), 0) AS total_score,
		RANK() OVER (ORDER BY COALESCE(SUM(p.score), 0) DESC) AS leaderboard_rank
	FROM tracked_targets t
	LEFT JOIN linkedin_posts p ON p.tracked_target_id = t.id
	WHERE t.is_active = ?
	GROUP BY t.id, t.name, t.team, t.linkedin_url, t.last_scraped_at
	ORDER BY leaderboard_rank ASC, t.name ASC`

// Standings ranks active targets by the sum of their stored post scores.
// Ties share a rank.
func (r *Repository) Standings(ctx context.Context) ([]Standing, error) {
	var out []Standing
	if err := r.db.WithContext(ctx).Raw(standingsQuery, true).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("loading standings: %w", err)
	}
	return out, nil
}

func (r *Repository) ActivePosters(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("linkedin_posts").
		Where("published_at >= ?", since).
		Distinct("tracked_target_id").
		Count(&count).Error
	return count, err
}

func (r *Repository) ActiveTargets(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("tracked_targets").Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (r *Repository) PostsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("linkedin_posts").
		Where("published_at >= ? AND published_at < ?", from, to).
		Count(&count).Error
	return count, err
}

// EngagementBetween sums likes, comments and reposts of posts published in
// [from, to).
func (r *Repository) EngagementBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("linkedin_posts").
		Select("COALESCE(SUM(likes_count + comments_count + reposts_count), 0)").
		Where("published_at >= ? AND published_at < ?", from, to).
		Scan(&total).Error
	return total, err
}
