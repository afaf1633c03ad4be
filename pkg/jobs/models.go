package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const TriggerDashboard = "dashboard"

type Job struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;column:id"`
	Status           string         `json:"status" gorm:"column:status;not null;index"`
	TriggeredBy      string         `json:"triggered_by" gorm:"column:triggered_by;not null"`
	TotalTargets     int            `json:"total_targets" gorm:"column:total_targets;not null"`
	ProcessedTargets int            `json:"processed_targets" gorm:"column:processed_targets;not null"`
	NewPosts         int            `json:"new_posts" gorm:"column:new_posts;not null"`
	UpdatedPosts     int            `json:"updated_posts" gorm:"column:updated_posts;not null"`
	ErrorMessage     *string        `json:"error_message,omitempty" gorm:"column:error_message"`
	Warnings         datatypes.JSON `json:"warnings,omitempty" gorm:"column:warnings"`
	CreatedAt        time.Time      `json:"created_at" gorm:"column:created_at;index"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"column:updated_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty" gorm:"column:completed_at"`
}

func (Job) TableName() string {
	return "scrape_jobs"
}

func (j *Job) IsTerminal() bool {
	return IsTerminal(j.Status)
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

func (j *Job) WarningList() []string {
	if len(j.Warnings) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(j.Warnings, &out); err != nil {
		return nil
	}
	return out
}
