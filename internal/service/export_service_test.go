package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dts-adp-api/internal/models"
	"github.com/noah-isme/dts-adp-api/pkg/export"
	"github.com/noah-isme/dts-adp-api/pkg/storage"
)

type analyticsStub struct{}

func (analyticsStub) CourseAnalytics(ctx context.Context, courseID string) (*models.CourseAnalytics, bool, error) {
	return &models.CourseAnalytics{
		CourseID:    courseID,
		ProgramName: "Defensive Driving L2",
		ClosedAt:    time.Now(),
		Students: []models.StudentAnalytics{
			{
				Record: models.StudentPerformanceRecord{
					FullName:            "Aiken",
					SlalomControl:       85,
					LaneChangeControl:   78,
					SlalomRunsUntilPass: 2,
					OverallScore:        82.4,
				},
				FinalExercise: models.FinalExerciseAggregate{AverageFinalResult: 86, LowStressAverage: 88, HighStressAverage: 84},
			},
			{
				Record: models.StudentPerformanceRecord{
					FullName:          "Brant",
					SlalomControl:     92,
					LaneChangeControl: 88,
					OverallScore:      88.1,
				},
				FinalExercise: models.FinalExerciseAggregate{AverageFinalResult: 90},
			},
		},
		ComputedAt: time.Now(),
	}, false, nil
}

func (a analyticsStub) TopPerformers(ctx context.Context, courseID string, limit int) ([]models.TopPerformer, error) {
	performers := []models.TopPerformer{
		{Rank: 1, FullName: "Brant", ControlPct: 90, OverallScore: 88.1},
		{Rank: 2, FullName: "Aiken", ControlPct: 81.5, OverallScore: 82.4},
	}
	if limit > 0 && limit < len(performers) {
		performers = performers[:limit]
	}
	return performers, nil
}

type allocationsStub struct{}

func (allocationsStub) State(ctx context.Context, courseID string) (*AllocationState, error) {
	return &AllocationState{
		Allocations: []models.SeatAllocationDetail{
			{SeatAllocation: models.SeatAllocation{CourseID: courseID, ClientID: "client-1", SeatsAllocated: 12}, ClientName: "Logistics Co"},
		},
		RemainingSeats: 8,
		Totals:         models.AllocationTotals{TotalAllocated: 12, MaxStudents: 20, AllocationPercentage: 60},
	}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(analyticsStub{}, allocationsStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeCourseAnalytics,
		Params:    models.ReportJobParams{CourseID: "course-1", Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/reports/download/")

	path := store.Path(result.RelativePath)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateTopNCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-top",
		Type:      models.ReportTypeCourseAnalytics,
		Params:    models.ReportJobParams{CourseID: "course-1", TopN: 1, Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	payload, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Contains(t, string(payload), "Brant")
	require.NotContains(t, string(payload), "Aiken")
}

func TestExportServiceGenerateAllocationsPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeAllocations,
		Params:    models.ReportJobParams{CourseID: "course-1", Format: models.ReportFormatPDF},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	path := filepath.Clean(store.Path(result.RelativePath))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}
