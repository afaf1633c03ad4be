package posts

import (
	"time"

	"github.com/google/uuid"
	"github.com/salespulse/platform/pkg/scoring"
	"github.com/salespulse/platform/pkg/targets"
	"gorm.io/gorm"
)

// Post is one scraped LinkedIn post. ExternalPostID is the idempotency key
// for re-ingest; PostType never changes after insert.
type Post struct {
	ID             uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;column:id"`
	TargetID       uuid.UUID        `json:"tracked_target_id" gorm:"type:uuid;column:tracked_target_id;not null;index"`
	Target         *targets.Target  `json:"-" gorm:"foreignKey:TargetID;references:ID;constraint:OnDelete:CASCADE"`
	ExternalPostID string           `json:"external_post_id" gorm:"column:external_post_id;not null;uniqueIndex"`
	PostURL        string           `json:"post_url" gorm:"column:post_url;not null"`
	ContentSnippet *string          `json:"content_snippet" gorm:"column:content_snippet;size:200"`
	PostType       scoring.PostType `json:"post_type" gorm:"column:post_type;type:varchar(16);not null"`
	PublishedAt    time.Time        `json:"published_at" gorm:"column:published_at;not null;index"`
	LikesCount     int              `json:"likes_count" gorm:"column:likes_count;not null"`
	CommentsCount  int              `json:"comments_count" gorm:"column:comments_count;not null"`
	RepostsCount   int              `json:"reposts_count" gorm:"column:reposts_count;not null"`
	Score          int              `json:"score" gorm:"column:score;not null;index"`
	ScrapedAt      time.Time        `json:"scraped_at" gorm:"column:scraped_at;not null"`
	CreatedAt      time.Time        `json:"created_at" gorm:"column:created_at"`
}

func (Post) TableName() string {
	return "linkedin_posts"
}

// BeforeCreate stamps the id and derives the stored score.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Score = scoring.Score(p.LikesCount, p.CommentsCount, p.RepostsCount, p.PostType)
	return nil
}

// View is a post as listed by the explorer, with its author attached.
type View struct {
	Post
	Target targets.Summary `json:"target"`
}
