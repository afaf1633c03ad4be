package leaderboard

import (
	"time"

	"github.com/google/uuid"
	"github.com/salespulse/platform/pkg/posts"
)

type Standing struct {
	Rank          int          `json:"rank" gorm:"column:leaderboard_rank"`
	ID            uuid.UUID    `json:"id" gorm:"column:target_id"`
	Name          string       `json:"name" gorm:"column:name"`
	Team          string       `json:"team" gorm:"column:team"`
	LinkedInURL   string       `json:"linkedin_url" gorm:"column:linkedin_url"`
	LastScrapedAt *time.Time   `json:"last_scraped_at" gorm:"column:last_scraped_at"`
	TotalPosts    int          `json:"total_posts" gorm:"column:total_posts"`
	TotalLikes    int          `json:"total_likes" gorm:"column:total_likes"`
	TotalComments int          `json:"total_comments" gorm:"column:total_comments"`
	TotalReposts  int          `json:"total_reposts" gorm:"column:total_reposts"`
	TotalScore    int          `json:"total_score" gorm:"column:total_score"`
	TopPosts      []posts.Post `json:"top_posts" gorm:"-"`
}

type Board struct {
	Standings   []Standing `json:"leaderboard"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type ActivePosters struct {
	Count      int64 `json:"count"`
	Total      int64 `json:"total"`
	Percentage int   `json:"percentage"`
}

type PostVolume struct {
	Count         int64 `json:"count"`
	PreviousCount int64 `json:"previousCount"`
	ChangePercent int   `json:"changePercent"`
}

type Engagement struct {
	Count     int64  `json:"count"`
	Formatted string `json:"formatted"`
}

type TopPerformer struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type KPIs struct {
	ActivePosters   ActivePosters `json:"activePosters"`
	TotalPosts      PostVolume    `json:"totalPosts"`
	TotalEngagement Engagement    `json:"totalEngagement"`
	TopPerformer    *TopPerformer `json:"topPerformer"`
	LastUpdated     *time.Time    `json:"lastUpdated"`
}
