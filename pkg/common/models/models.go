package models

import (
	"time"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // scrape_job.created, scrape_job.completed, ...
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Scrape trigger
type TriggerResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Outbound payload sent to the external scraping workflow.
type TriggerRequest struct {
	JobID string          `json:"jobId"`
	Users []TriggerTarget `json:"users"`
}

type TriggerTarget struct {
	ID          string `json:"id"`
	LinkedInURL string `json:"linkedinUrl"`
}

// Job status polling
type JobProgress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
}

type JobSummary struct {
	NewPosts     int        `json:"newPosts"`
	UpdatedPosts int        `json:"updatedPosts"`
	CompletedAt  *time.Time `json:"completedAt"`
	Warnings     []string   `json:"warnings,omitempty"`
}

// JobStatusResponse carries progress while a job runs, summary once it
// completes and error once it fails.
type JobStatusResponse struct {
	Status   string       `json:"status"`
	Progress *JobProgress `json:"progress,omitempty"`
	Summary  *JobSummary  `json:"summary,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Ingest webhook
type IngestSummary struct {
	ProcessedUsers int `json:"processedUsers"`
	NewPosts       int `json:"newPosts"`
	UpdatedPosts   int `json:"updatedPosts"`
}

type IngestResponse struct {
	Success bool          `json:"success"`
	Summary IngestSummary `json:"summary"`
}

// Admin session
type SessionRequest struct {
	Password string `json:"password"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ErrorResponse struct {
	Error   string              `json:"error"`
	Details map[string][]string `json:"details,omitempty"`
}
