package services

import (
	"context"
	"time"

	"github.com/farmconnect/contracts-api/internal/jobs"
	"github.com/farmconnect/contracts-api/pkg/logger"
)

type JobService struct {
	worker      *jobs.Worker
	contractSvc *ContractService
}

func NewJobService(worker *jobs.Worker, contractSvc *ContractService) *JobService {
	return &JobService{
		worker:      worker,
		contractSvc: contractSvc,
	}
}

func (s *JobService) GetStatus() map[string]interface{} {
	if s.worker == nil {
		return map[string]interface{}{"running": false}
	}
	stats := s.worker.GetStats()
	return map[string]interface{}{
		"running":        true,
		"active_jobs":    stats.ActiveJobs,
		"completed_jobs": stats.CompletedJobs,
		"failed_jobs":    stats.FailedJobs,
		"queue_length":   stats.QueueLength,
		"max_concurrent": stats.MaxConcurrent,
	}
}

// ScheduleTenderExpiry runs the overdue tender sweep every interval.
// A non-positive interval leaves expiry to the callers.
func (s *JobService) ScheduleTenderExpiry(interval time.Duration) {
	if interval <= 0 || s.worker == nil {
		return
	}
	s.worker.ScheduleEvery(interval, s.ExpireTenders)
	logger.Info("tender expiry sweep scheduled", "interval", interval.String())
}

// ExpireTenders runs one sweep; it is the scheduled job body
func (s *JobService) ExpireTenders(ctx context.Context) error {
	_, err := s.ExpireTendersNow(ctx)
	return err
}

// ExpireTendersNow runs one sweep and reports how many tenders expired
func (s *JobService) ExpireTendersNow(ctx context.Context) (int, error) {
	return s.contractSvc.ExpireOverdueTenders(ctx)
}
