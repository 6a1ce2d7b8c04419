package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gppalanpur/portal-api/internal/models"
)

type mockFeedbackRepo struct {
	rows map[string]*models.FeedbackAnalysis
}

func newMockFeedbackRepo() *mockFeedbackRepo {
	return &mockFeedbackRepo{rows: make(map[string]*models.FeedbackAnalysis)}
}

func (m *mockFeedbackRepo) Create(ctx context.Context, f *models.FeedbackAnalysis) error {
	if f.ID == "" {
		f.ID = "fb-" + f.SubjectCode
	}
	m.rows[f.ID] = f
	return nil
}

func (m *mockFeedbackRepo) FindByID(ctx context.Context, id string) (*models.FeedbackAnalysis, error) {
	f, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return f, nil
}

func (m *mockFeedbackRepo) UpdateReport(ctx context.Context, id string, report []byte) error {
	f, ok := m.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	f.ReportData = report
	return nil
}

func TestFeedbackServiceImport(t *testing.T) {
	repo := newMockFeedbackRepo()
	svc := NewFeedbackService(repo, nil, nil)

	csv := strings.Join([]string{
		"year,term,branch,semester,subject_code,subject_name,faculty_name,total_responses,q1_score,q2_score,q3_score,q4_score,q5_score,q6_score,q7_score,q8_score,q9_score,q10_score,q11_score,q12_score",
		"2025,Odd,CSE,5,CS501,Software Engineering,Dr. John Doe,45,4.2,4.0,3.8,4.1,3.9,4.3,3.7,4.2,4.5,4.0,3.6,4.4",
		",Odd,CSE,5,CS502,Missing Year,Dr. Jane Roe,30,4,4,4,4,4,4,4,4,4,4,4,4",
	}, "\n")

	report, err := svc.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)

	f, err := repo.FindByID(context.Background(), "fb-CS501")
	require.NoError(t, err)
	assert.Equal(t, 2025, f.Year)
	assert.Equal(t, "Dr. John Doe", f.FacultyName)
	assert.Equal(t, 45, f.TotalResponses)
	assert.InDelta(t, 4.0583, f.AverageScore, 0.001)
	assert.NotEmpty(t, f.ReportData)
}

func TestFeedbackServiceImportSampleRoundTrip(t *testing.T) {
	repo := newMockFeedbackRepo()
	svc := NewFeedbackService(repo, nil, nil)

	report, err := svc.Import(context.Background(), strings.NewReader(string(svc.SampleCSV())))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Skipped)
}

func TestFeedbackServiceReport(t *testing.T) {
	repo := newMockFeedbackRepo()
	svc := NewFeedbackService(repo, nil, nil)

	f := &models.FeedbackAnalysis{
		ID: "fb-1", Year: 2025, Term: "Odd", Branch: "CSE", Semester: 5,
		SubjectCode: "CS501", SubjectName: "Software Engineering",
		FacultyName: "Dr. John Doe", TotalResponses: 45,
		Q1Score: 4.2, Q2Score: 4.0, Q3Score: 3.8, Q4Score: 4.1,
		Q5Score: 3.9, Q6Score: 4.3, Q7Score: 3.7, Q8Score: 4.2,
		Q9Score: 4.5, Q10Score: 4.0, Q11Score: 3.6, Q12Score: 4.4,
	}
	require.NoError(t, repo.Create(context.Background(), f))

	view, err := svc.Report(context.Background(), "fb-1")
	require.NoError(t, err)
	assert.Len(t, view.Scores, models.FeedbackQuestionCount)
	assert.Equal(t, 4.5, view.Scores["q9"])

	var result models.FeedbackAnalysisResult
	require.NoError(t, json.Unmarshal(view.Report, &result))
	assert.Equal(t, "fb-1", result.FeedbackID)
	assert.InDelta(t, 4.0583, result.Statistics.Mean, 0.001)
	assert.Equal(t, 4.5, result.Statistics.Max)
	assert.Equal(t, 3.6, result.Statistics.Min)
	assert.Contains(t, result.Statistics.Strengths, "Q9: 4.50")
	assert.Contains(t, result.Statistics.Weaknesses, "Q11: 3.60")
	require.NotEmpty(t, result.Recommendations)
	assert.Contains(t, result.Recommendations[len(result.Recommendations)-1], "Excellent overall feedback")
}

func TestFeedbackServiceReportNotFound(t *testing.T) {
	svc := NewFeedbackService(newMockFeedbackRepo(), nil, nil)

	_, err := svc.Report(context.Background(), "missing")
	require.Error(t, err)
}
