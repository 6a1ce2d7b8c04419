package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

type mockProjectRepo struct {
	projects    map[string]*models.Project
	evaluations []*models.ProjectEvaluation
	winners     []models.ProjectWinner
	deptWinners []models.ProjectWinner
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[string]*models.Project)}
}

func (m *mockProjectRepo) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	var out []models.Project
	for _, p := range m.projects {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id string) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (m *mockProjectRepo) ListByTeams(ctx context.Context, teamIDs []string) ([]models.Project, error) {
	var out []models.Project
	for _, p := range m.projects {
		for _, id := range teamIDs {
			if p.TeamID == id {
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

func (m *mockProjectRepo) Create(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = "proj-1"
	}
	m.projects[p.ID] = p
	return nil
}

func (m *mockProjectRepo) Update(ctx context.Context, p *models.Project) error {
	m.projects[p.ID] = p
	return nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id string) error {
	delete(m.projects, id)
	return nil
}

func (m *mockProjectRepo) UpsertEvaluation(ctx context.Context, eval *models.ProjectEvaluation) error {
	m.evaluations = append(m.evaluations, eval)
	return nil
}

func (m *mockProjectRepo) CountByColumn(ctx context.Context, eventID, column string) (map[string]int, error) {
	return map[string]int{"x": len(m.projects)}, nil
}

func (m *mockProjectRepo) EvaluationSummary(ctx context.Context, eventID string) (int, float64, error) {
	return len(m.evaluations), 72.5, nil
}

func (m *mockProjectRepo) Winners(ctx context.Context, eventID string, limit int) ([]models.ProjectWinner, error) {
	out := make([]models.ProjectWinner, len(m.winners))
	copy(out, m.winners)
	return out, nil
}

func (m *mockProjectRepo) DepartmentWinners(ctx context.Context, eventID string, limit int) ([]models.ProjectWinner, error) {
	out := make([]models.ProjectWinner, len(m.deptWinners))
	copy(out, m.deptWinners)
	return out, nil
}

type mockTeamLookup struct {
	teams    map[string]*models.ProjectTeam
	byMember map[string][]string
}

func (m *mockTeamLookup) FindByID(ctx context.Context, id string) (*models.ProjectTeam, error) {
	team, ok := m.teams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return team, nil
}

func (m *mockTeamLookup) ListIDsByMember(ctx context.Context, userID string) ([]string, error) {
	return m.byMember[userID], nil
}

type mockEventLookup struct {
	events map[string]*models.ProjectEvent
	total  int
}

func (m *mockEventLookup) FindByID(ctx context.Context, id string) (*models.ProjectEvent, error) {
	event, ok := m.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return event, nil
}

func (m *mockEventLookup) CountProjects(ctx context.Context, eventID string) (int, error) {
	return m.total, nil
}

func openEvent() *models.ProjectEvent {
	return &models.ProjectEvent{
		ID:                "ev1",
		Name:              "Project Fair 2026",
		RegistrationStart: time.Now().Add(-time.Hour),
		RegistrationEnd:   time.Now().Add(time.Hour),
		IsActive:          true,
	}
}

func newProjectService(repo *mockProjectRepo, teams *mockTeamLookup, events *mockEventLookup) *ProjectService {
	if teams == nil {
		teams = &mockTeamLookup{teams: map[string]*models.ProjectTeam{"t1": {ID: "t1"}}, byMember: map[string][]string{}}
	}
	if events == nil {
		events = &mockEventLookup{events: map[string]*models.ProjectEvent{"ev1": openEvent()}}
	}
	return NewProjectService(repo, teams, events, validator.New(), zap.NewNop())
}

func projectRequest() ProjectRequest {
	return ProjectRequest{
		Title:        "Smart Irrigation",
		Category:     "IoT",
		Abstract:     "Soil moisture driven irrigation controller",
		DepartmentID: "d1",
		TeamID:       "t1",
		EventID:      "ev1",
	}
}

func TestProjectServiceCreate(t *testing.T) {
	repo := newMockProjectRepo()
	svc := newProjectService(repo, nil, nil)

	project, err := svc.Create(context.Background(), "u1", projectRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusSubmitted, project.Status)
	require.NotNil(t, project.CreatedBy)
	assert.Equal(t, "u1", *project.CreatedBy)
}

func TestProjectServiceCreateRegistrationClosed(t *testing.T) {
	repo := newMockProjectRepo()
	closed := openEvent()
	closed.RegistrationEnd = time.Now().Add(-time.Minute)
	events := &mockEventLookup{events: map[string]*models.ProjectEvent{"ev1": closed}}
	svc := newProjectService(repo, nil, events)

	_, err := svc.Create(context.Background(), "u1", projectRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestProjectServiceCreateUnknownTeam(t *testing.T) {
	repo := newMockProjectRepo()
	teams := &mockTeamLookup{teams: map[string]*models.ProjectTeam{}}
	svc := newProjectService(repo, teams, nil)

	_, err := svc.Create(context.Background(), "u1", projectRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProjectServiceEvaluateCentralMarksEvaluated(t *testing.T) {
	repo := newMockProjectRepo()
	repo.projects["p1"] = &models.Project{ID: "p1", Status: models.ProjectStatusSubmitted}
	svc := newProjectService(repo, nil, nil)

	score := 81.0
	project, err := svc.Evaluate(context.Background(), "p1", "jury-1", EvaluationRequest{Stage: models.EvaluationStageCentral, Score: &score})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusEvaluated, project.Status)
	require.Len(t, repo.evaluations, 1)
	assert.True(t, repo.evaluations[0].Completed)
	require.NotNil(t, repo.evaluations[0].JuryUserID)
	assert.Equal(t, "jury-1", *repo.evaluations[0].JuryUserID)
}

func TestProjectServiceEvaluateDeptKeepsStatus(t *testing.T) {
	repo := newMockProjectRepo()
	repo.projects["p1"] = &models.Project{ID: "p1", Status: models.ProjectStatusSubmitted}
	svc := newProjectService(repo, nil, nil)

	score := 65.0
	project, err := svc.Evaluate(context.Background(), "p1", "jury-1", EvaluationRequest{Stage: models.EvaluationStageDept, Score: &score})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusSubmitted, project.Status)
}

func TestProjectServiceWinnersUnpublished(t *testing.T) {
	repo := newMockProjectRepo()
	score := 92.0
	repo.winners = []models.ProjectWinner{{Rank: 1, ProjectID: "p1", Score: &score}}
	svc := newProjectService(repo, nil, nil)

	_, err := svc.Winners(context.Background(), "ev1", "", 3, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	winners, err := svc.Winners(context.Background(), "ev1", "", 3, true)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	require.NotNil(t, winners[0].Score)
	assert.Equal(t, 92.0, *winners[0].Score)
}

func TestProjectServiceWinnersPublishedHideScores(t *testing.T) {
	repo := newMockProjectRepo()
	score := 92.0
	repo.winners = []models.ProjectWinner{{Rank: 1, ProjectID: "p1", Score: &score}}
	published := openEvent()
	published.PublishResults = true
	events := &mockEventLookup{events: map[string]*models.ProjectEvent{"ev1": published}}
	svc := newProjectService(repo, nil, events)

	winners, err := svc.Winners(context.Background(), "ev1", "", 3, false)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Nil(t, winners[0].Score, "unprivileged callers must not see jury scores")
	assert.Equal(t, 92.0, score, "stripping must not touch stored rows")
}

func TestProjectServiceWinnersDeptStage(t *testing.T) {
	repo := newMockProjectRepo()
	ce, de := 90.0, 84.0
	repo.winners = []models.ProjectWinner{{Rank: 1, ProjectID: "p1", Score: &ce}}
	repo.deptWinners = []models.ProjectWinner{
		{Rank: 1, ProjectID: "p2", Department: "CSE", Score: &de},
		{Rank: 1, ProjectID: "p3", Department: "EC", Score: &de},
	}
	svc := newProjectService(repo, nil, nil)

	winners, err := svc.Winners(context.Background(), "ev1", models.EvaluationStageDept, 3, true)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, "p2", winners[0].ProjectID)

	_, err = svc.Winners(context.Background(), "ev1", "regional", 3, true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProjectServiceMyProjects(t *testing.T) {
	repo := newMockProjectRepo()
	repo.projects["p1"] = &models.Project{ID: "p1", TeamID: "t1"}
	repo.projects["p2"] = &models.Project{ID: "p2", TeamID: "t2"}
	teams := &mockTeamLookup{teams: map[string]*models.ProjectTeam{}, byMember: map[string][]string{"u1": {"t1"}}}
	svc := newProjectService(repo, teams, nil)

	projects, err := svc.MyProjects(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "p1", projects[0].ID)
}

func TestProjectServiceStatistics(t *testing.T) {
	repo := newMockProjectRepo()
	repo.projects["p1"] = &models.Project{ID: "p1"}
	events := &mockEventLookup{events: map[string]*models.ProjectEvent{"ev1": openEvent()}, total: 5}
	svc := newProjectService(repo, nil, events)

	stats, err := svc.Statistics(context.Background(), "ev1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 5, stats.Pending)
	assert.Equal(t, 72.5, stats.AverageScore)
}
