package targets

import (
	"time"

	"github.com/google/uuid"
)

// Target is an enrolled employee whose LinkedIn activity is scraped.
// LastScrapedAt is written only by the ingest path.
type Target struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;column:id"`
	Name          string     `json:"name" gorm:"column:name;not null;index"`
	LinkedInURL   string     `json:"linkedin_url" gorm:"column:linkedin_url;not null;uniqueIndex"`
	Team          string     `json:"team" gorm:"column:team;not null"`
	IsActive      bool       `json:"is_active" gorm:"column:is_active;not null;index"`
	LastScrapedAt *time.Time `json:"last_scraped_at" gorm:"column:last_scraped_at"`
	CreatedAt     time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Target) TableName() string {
	return "tracked_targets"
}

// Summary is the slice of a target embedded in post listings.
type Summary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Team string    `json:"team"`
}

func (t *Target) Summary() Summary {
	return Summary{ID: t.ID, Name: t.Name, Team: t.Team}
}
