package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/vbonduro/floodzone/internal/domain"
)

const (
	reportsPath = "/reportes"
	reportPath  = reportsPath + "/reportar"
	heatmapPath = reportsPath + "/heatmap"
)

type ReportService struct {
	api    transport
	logger *slog.Logger
}

func NewReportService(api transport, logger *slog.Logger) *ReportService {
	return &ReportService{api: api, logger: logger}
}

// Create submits a draft and returns the canonical report stored by the backend.
func (s *ReportService) Create(ctx context.Context, draft domain.ReportDraft) (*domain.Report, error) {
	var report domain.Report
	if err := s.api.Post(ctx, reportPath, draft, &report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	s.logger.Info("report created", "report_id", report.ID, "lat", report.Latitude, "lon", report.Longitude)
	return &report, nil
}

// Heatmap returns the raw, unvalidated density points around a coordinate.
// A points field that is missing or not an array yields no points, and
// entries that are not JSON objects are skipped.
func (s *ReportService) Heatmap(ctx context.Context, latitude, longitude float64) ([]domain.RawHeatmapPoint, error) {
	query := url.Values{
		"latitude":  {strconv.FormatFloat(latitude, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(longitude, 'f', -1, 64)},
	}
	var resp struct {
		Points json.RawMessage `json:"points"`
	}
	if err := s.api.Get(ctx, heatmapPath, query, &resp); err != nil {
		return nil, fmt.Errorf("failed to get heatmap: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(resp.Points, &entries); err != nil {
		s.logger.Warn("heatmap response has no points array")
		return []domain.RawHeatmapPoint{}, nil
	}

	points := make([]domain.RawHeatmapPoint, 0, len(entries))
	for _, entry := range entries {
		var p domain.RawHeatmapPoint
		if err := json.Unmarshal(entry, &p); err != nil {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}
