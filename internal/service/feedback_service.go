package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	"github.com/gppalanpur/portal-api/pkg/csvio"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

type feedbackRepository interface {
	Create(ctx context.Context, f *models.FeedbackAnalysis) error
	FindByID(ctx context.Context, id string) (*models.FeedbackAnalysis, error)
	UpdateReport(ctx context.Context, id string, report []byte) error
}

// FeedbackService aggregates uploaded course feedback and derives per-subject
// analysis reports.
type FeedbackService struct {
	repo    feedbackRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(repo feedbackRepository, metrics *MetricsService, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{repo: repo, metrics: metrics, logger: logger}
}

// FeedbackReport is the analysis view served by the report endpoint.
type FeedbackReport struct {
	*models.FeedbackAnalysis
	Scores map[string]float64 `json:"scores"`
	Report json.RawMessage    `json:"report"`
}

var feedbackSampleHeaders = []string{
	"year", "term", "branch", "semester", "subject_code",
	"subject_name", "faculty_name", "total_responses",
	"q1_score", "q2_score", "q3_score", "q4_score",
	"q5_score", "q6_score", "q7_score", "q8_score",
	"q9_score", "q10_score", "q11_score", "q12_score",
}

// SampleCSV returns the upload template with one example row.
func (s *FeedbackService) SampleCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(feedbackSampleHeaders)
	_ = w.Write([]string{
		"2025", "Odd", "CSE", "5", "CS501",
		"Software Engineering", "Dr. John Doe", "45",
		"4.2", "4.0", "3.8", "4.1",
		"3.9", "4.3", "3.7", "4.2",
		"4.5", "4.0", "3.6", "4.4",
	})
	w.Flush()
	return buf.Bytes()
}

// Import parses aggregated feedback rows from CSV, stores them and derives
// each row's analysis report.
func (s *FeedbackService) Import(ctx context.Context, reader io.Reader) (*models.ImportReport, error) {
	rows, err := csvio.ReadAll(reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFile.Code, appErrors.ErrInvalidFile.Status, "failed to parse csv")
	}

	report := &models.ImportReport{}
	for _, row := range rows {
		f := &models.FeedbackAnalysis{
			Year:           row.Int(0, "year"),
			Term:           strings.TrimSpace(row.Get("term")),
			Branch:         strings.TrimSpace(row.Get("branch")),
			Semester:       row.Int(0, "semester", "sem"),
			SubjectCode:    strings.TrimSpace(row.Get("subject_code")),
			SubjectName:    strings.TrimSpace(row.Get("subject_name")),
			FacultyName:    strings.TrimSpace(row.Get("faculty_name")),
			TotalResponses: row.Int(0, "total_responses", "responses"),
		}
		if f.Year == 0 || f.Term == "" || f.Branch == "" || f.SubjectCode == "" || f.FacultyName == "" {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "missing required feedback fields"})
			continue
		}

		for i, field := range f.ScoreFields() {
			*field = row.Float(0, fmt.Sprintf("q%d_score", i+1), fmt.Sprintf("q%d", i+1))
		}
		f.AverageScore = meanScore(f.QuestionScores())

		if err := s.repo.Create(ctx, f); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, models.ImportIssue{Row: row.Line, Message: "create failed"})
			continue
		}
		if _, err := s.analyseAndStore(ctx, f); err != nil {
			s.logger.Warn("feedback analysis failed", zap.String("id", f.ID), zap.Error(err))
			report.Warnings = append(report.Warnings, models.ImportIssue{Row: row.Line, Message: "analysis deferred"})
		}
		report.Created++
	}

	s.metrics.RecordImportRows("feedback", report.Created, 0, report.Skipped)
	return report, nil
}

// Analyze derives statistics and recommendations for one feedback row and
// stores them on the record.
func (s *FeedbackService) Analyze(ctx context.Context, id string) (*models.FeedbackAnalysisResult, error) {
	f, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.analyseAndStore(ctx, f)
}

// Report returns the JSON analysis view of one feedback row, computing the
// analysis on first access.
func (s *FeedbackService) Report(ctx context.Context, id string) (*FeedbackReport, error) {
	f, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(f.ReportData) == 0 {
		if _, err := s.analyseAndStore(ctx, f); err != nil {
			return nil, err
		}
	}

	scores := make(map[string]float64, models.FeedbackQuestionCount)
	for i, v := range f.QuestionScores() {
		scores[fmt.Sprintf("q%d", i+1)] = v
	}
	return &FeedbackReport{FeedbackAnalysis: f, Scores: scores, Report: json.RawMessage(f.ReportData)}, nil
}

func (s *FeedbackService) get(ctx context.Context, id string) (*models.FeedbackAnalysis, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback record")
	}
	return f, nil
}

func (s *FeedbackService) analyseAndStore(ctx context.Context, f *models.FeedbackAnalysis) (*models.FeedbackAnalysisResult, error) {
	result := analyseFeedback(f)
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode analysis")
	}
	if err := s.repo.UpdateReport(ctx, f.ID, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store analysis")
	}
	f.ReportData = payload
	return result, nil
}

// analyseFeedback computes distribution statistics and flags questions more
// than 0.2 away from the mean as strengths or weaknesses.
func analyseFeedback(f *models.FeedbackAnalysis) *models.FeedbackAnalysisResult {
	scores := f.QuestionScores()
	mean := meanScore(scores)

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]

	var variance float64
	minScore, maxScore := sorted[0], sorted[len(sorted)-1]
	for _, v := range scores {
		variance += (v - mean) * (v - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(scores)))

	var strengths, weaknesses []string
	for i, v := range scores {
		switch {
		case v >= mean+0.2:
			strengths = append(strengths, fmt.Sprintf("Q%d: %.2f", i+1, v))
		case v <= mean-0.2:
			weaknesses = append(weaknesses, fmt.Sprintf("Q%d: %.2f", i+1, v))
		}
	}

	var recommendations []string
	if len(weaknesses) > 0 {
		recommendations = append(recommendations, fmt.Sprintf("Consider improving in areas: %s", strings.Join(weaknesses, ", ")))
	}
	if mean < 3.5 {
		recommendations = append(recommendations, "Overall feedback score is below average. Consider comprehensive improvement strategies.")
	} else if mean >= 4.0 {
		recommendations = append(recommendations, "Excellent overall feedback. Maintain current teaching methodologies.")
	}

	return &models.FeedbackAnalysisResult{
		FeedbackID: f.ID,
		Statistics: models.FeedbackStatistics{
			Mean:           mean,
			Median:         median,
			StdDev:         stdDev,
			Min:            minScore,
			Max:            maxScore,
			Strengths:      strengths,
			Weaknesses:     weaknesses,
			TotalResponses: f.TotalResponses,
		},
		Recommendations: recommendations,
		AnalyzedAt:      time.Now().UTC(),
	}
}

func meanScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}
