package services

import (
	"context"
	"fmt"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/repos"
)

// ReportService is a thin read-only facade over the analytics views. All
// the aggregation lives in the views themselves; this layer only shapes
// the rows for the API.
type ReportService struct {
	reports repos.ReportRepo
	log     *logger.Logger
}

func NewReportService(reports repos.ReportRepo, log *logger.Logger) *ReportService {
	return &ReportService{reports: reports, log: log.With("service", "ReportService")}
}

func (s *ReportService) MatchSummary(ctx context.Context, taskID string) ([]repos.MatchSummaryRow, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task_id is required")
	}
	rows, err := s.reports.MatchSummary(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("match summary for %s: %w", taskID, err)
	}
	return rows, nil
}

func (s *ReportService) PlayerDaySummary(ctx context.Context) ([]repos.PlayerDaySummaryRow, error) {
	rows, err := s.reports.PlayerDaySummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("player day summary: %w", err)
	}
	return rows, nil
}

func (s *ReportService) ServeTimeTrend(ctx context.Context, taskID string) ([]repos.ServeTimeTrendRow, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task_id is required")
	}
	rows, err := s.reports.ServeTimeTrend(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("serve time trend for %s: %w", taskID, err)
	}
	return rows, nil
}

func (s *ReportService) ServeLocDistribution(ctx context.Context, taskID string) ([]repos.ServeLocRow, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task_id is required")
	}
	rows, err := s.reports.ServeLocDistribution(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("serve location distribution for %s: %w", taskID, err)
	}
	return rows, nil
}
