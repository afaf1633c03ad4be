package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salespulse/platform/pkg/scoring"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPostNotFound = errors.New("post not found")

const (
	PageSize  = 20
	SortDate  = "date"
	SortScore = "score"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Post{})
}

// InsertIfAbsent inserts the post unless one with the same external id
// exists. It reports whether a row was written.
func (r *Repository) InsertIfAbsent(ctx context.Context, post *Post) (bool, error) {
	if !post.PostType.Valid() {
		return false, fmt.Errorf("invalid post type %q", post.PostType)
	}
	post.CreatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Omit("Target").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_post_id"}},
			DoNothing: true,
		}).
		Create(post)
	if result.Error != nil {
		return false, fmt.Errorf("inserting post %s: %w", post.ExternalPostID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateEngagement refreshes the counters of an existing post and recomputes
// its score from the stored post type.
func (r *Repository) UpdateEngagement(ctx context.Context, externalID string, likes, comments, reposts int, scrapedAt time.Time) error {
	var stored Post
	result := r.db.WithContext(ctx).
		Select("id", "post_type").
		Where("external_post_id = ?", externalID).
		Limit(1).
		Find(&stored)
	if result.Error != nil {
		return fmt.Errorf("loading post %s: %w", externalID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}

	return r.db.WithContext(ctx).Model(&Post{}).
		Where("id = ?", stored.ID).
		Updates(map[string]interface{}{
			"likes_count":    likes,
			"comments_count": comments,
			"reposts_count":  reposts,
			"score":          scoring.Score(likes, comments, reposts, stored.PostType),
			"scraped_at":     scrapedAt,
		}).Error
}

func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*Post, error) {
	var post Post
	result := r.db.WithContext(ctx).First(&post, "external_post_id = ?", externalID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &post, nil
}

type ExploreQuery struct {
	Page     int
	TargetID *uuid.UUID
	Sort     string
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

type ExplorePage struct {
	Posts      []View     `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

// Explore pages through posts newest first, or by score when asked.
func (r *Repository) Explore(ctx context.Context, q ExploreQuery) (ExplorePage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	base := r.db.WithContext(ctx).Model(&Post{})
	if q.TargetID != nil {
		base = base.Where("tracked_target_id = ?", *q.TargetID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return ExplorePage{}, fmt.Errorf("counting posts: %w", err)
	}

	order := "published_at desc"
	if q.Sort == SortScore {
		order = "score desc, published_at desc"
	}

	var rows []Post
	err := base.Session(&gorm.Session{}).
		Preload("Target").
		Order(order).
		Order("id").
		Limit(PageSize).
		Offset((q.Page - 1) * PageSize).
		Find(&rows).Error
	if err != nil {
		return ExplorePage{}, fmt.Errorf("listing posts: %w", err)
	}

	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, toView(rows[i]))
	}

	totalPages := int((total + PageSize - 1) / PageSize)
	return ExplorePage{
		Posts: views,
		Pagination: Pagination{
			Page:       q.Page,
			Limit:      PageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    q.Page < totalPages,
			HasPrev:    q.Page > 1,
		},
	}, nil
}

// ListByTarget returns a target's posts by score, highest first.
func (r *Repository) ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]Post, error) {
	query := r.db.WithContext(ctx).
		Where("tracked_target_id = ?", targetID).
		Order("score desc").
		Order("published_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var out []Post
	err := query.Find(&out).Error
	return out, err
}

// TopByTarget returns up to n highest scoring posts per target.
func (r *Repository) TopByTarget(ctx context.Context, n int) (map[uuid.UUID][]Post, error) {
	var rows []Post
	err := r.db.WithContext(ctx).Raw(`
		SELECT * FROM (
			SELECT p.*, ROW_NUMBER() OVER (
				PARTITION BY p.tracked_target_id
				ORDER BY p.score DESC, p.published_at DESC
			) AS post_rank
			FROM linkedin_posts p
		) ranked
		WHERE post_rank <= ?
		ORDER BY tracked_target_id, post_rank`, n).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading top posts: %w", err)
	}

	out := make(map[uuid.UUID][]Post)
	for _, row := range rows {
		out[row.TargetID] = append(out[row.TargetID], row)
	}
	return out, nil
}

func toView(p Post) View {
	view := View{Post: p}
	if p.Target != nil {
		view.Target = p.Target.Summary()
	}
	view.Post.Target = nil
	return view
}
