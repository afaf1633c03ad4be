package jobs

import "github.com/salespulse/platform/pkg/common/models"

// StatusResponse shapes a job for pollers: progress while active, summary once
// completed, error once failed.
func StatusResponse(job *Job) models.JobStatusResponse {
	switch job.Status {
	case StatusPending, StatusProcessing:
		return models.JobStatusResponse{
			Status: job.Status,
			Progress: &models.JobProgress{
				Total:     job.TotalTargets,
				Processed: job.ProcessedTargets,
			},
		}
	case StatusCompleted:
		return models.JobStatusResponse{
			Status: job.Status,
			Summary: &models.JobSummary{
				NewPosts:     job.NewPosts,
				UpdatedPosts: job.UpdatedPosts,
				CompletedAt:  job.CompletedAt,
				Warnings:     job.WarningList(),
			},
		}
	case StatusFailed:
		msg := "Unknown error"
		if job.ErrorMessage != nil && *job.ErrorMessage != "" {
			msg = *job.ErrorMessage
		}
		return models.JobStatusResponse{Status: job.Status, Error: msg}
	}
	return models.JobStatusResponse{Status: job.Status}
}
