package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dts-adp-api/internal/models"
	"github.com/noah-isme/dts-adp-api/pkg/export"
	"github.com/noah-isme/dts-adp-api/pkg/storage"
)

type courseAnalyticsProvider interface {
	CourseAnalytics(ctx context.Context, courseID string) (*models.CourseAnalytics, bool, error)
	TopPerformers(ctx context.Context, courseID string, limit int) ([]models.TopPerformer, error)
}

type allocationStateProvider interface {
	State(ctx context.Context, courseID string) (*AllocationState, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	analytics   courseAnalyticsProvider
	allocations allocationStateProvider
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(analytics courseAnalyticsProvider, allocations allocationStateProvider, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		analytics:   analytics,
		allocations: allocations,
		storage:     storage,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds dataset according to job definition and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/reports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	coursePart := sanitizeFilename(job.Params.CourseID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), coursePart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeCourseAnalytics:
		return s.buildAnalyticsDataset(ctx, job.Params)
	case models.ReportTypeAllocations:
		return s.buildAllocationsDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildAnalyticsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	analytics, _, err := s.analytics.CourseAnalytics(ctx, params.CourseID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	students := analytics.Students
	if params.TopN > 0 {
		performers, err := s.analytics.TopPerformers(ctx, params.CourseID, params.TopN)
		if err != nil {
			return export.Dataset{}, "", err
		}
		students = filterStudentsByName(students, performers)
	}

	dataRows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		r := st.Record
		dataRows = append(dataRows, map[string]string{
			"Name":               r.FullName,
			"Slalom Control (%)": fmt.Sprintf("%.1f", r.SlalomControl),
			"Lane Change (%)":    fmt.Sprintf("%.1f", r.LaneChangeControl),
			"Runs Until Pass":    fmt.Sprintf("%d", r.SlalomRunsUntilPass+r.LaneChangeRunsUntilPass),
			"Final Exercise Avg": fmt.Sprintf("%d", st.FinalExercise.AverageFinalResult),
			"Low Stress Avg":     fmt.Sprintf("%.1f", st.FinalExercise.LowStressAverage),
			"High Stress Avg":    fmt.Sprintf("%.1f", st.FinalExercise.HighStressAverage),
			"Overall Score":      fmt.Sprintf("%.2f", r.OverallScore),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Name", "Slalom Control (%)", "Lane Change (%)", "Runs Until Pass",
			"Final Exercise Avg", "Low Stress Avg", "High Stress Avg", "Overall Score"},
		Rows: dataRows,
	}
	title := fmt.Sprintf("Course Analytics %s", analytics.ProgramName)
	return dataset, title, nil
}

func (s *ExportService) buildAllocationsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	state, err := s.allocations.State(ctx, params.CourseID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(state.Allocations)+1)
	for _, alloc := range state.Allocations {
		dataRows = append(dataRows, map[string]string{
			"Client":          alloc.ClientName,
			"Seats Allocated": fmt.Sprintf("%d", alloc.SeatsAllocated),
			"Utilisation (%)": "",
		})
	}
	dataRows = append(dataRows, map[string]string{
		"Client":          "TOTAL",
		"Seats Allocated": fmt.Sprintf("%d / %d", state.Totals.TotalAllocated, state.Totals.MaxStudents),
		"Utilisation (%)": fmt.Sprintf("%.1f", state.Totals.AllocationPercentage),
	})
	dataset := export.Dataset{
		Headers: []string{"Client", "Seats Allocated", "Utilisation (%)"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Seat Allocations %s", params.CourseID)
	return dataset, title, nil
}

func filterStudentsByName(students []models.StudentAnalytics, performers []models.TopPerformer) []models.StudentAnalytics {
	keep := make(map[string]int, len(performers))
	for _, p := range performers {
		keep[p.FullName] = p.Rank
	}
	filtered := make([]models.StudentAnalytics, 0, len(performers))
	for _, st := range students {
		if _, ok := keep[st.Record.FullName]; ok {
			filtered = append(filtered, st)
		}
	}
	return filtered
}
