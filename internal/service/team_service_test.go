package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

type mockTeamRepo struct {
	teams         map[string]*models.ProjectTeam
	projectCounts map[string]int
}

func newMockTeamRepo() *mockTeamRepo {
	return &mockTeamRepo{teams: make(map[string]*models.ProjectTeam), projectCounts: make(map[string]int)}
}

func (m *mockTeamRepo) List(ctx context.Context, eventID, departmentID string, page, pageSize int) ([]models.ProjectTeam, int, error) {
	var out []models.ProjectTeam
	for _, team := range m.teams {
		out = append(out, *team)
	}
	return out, len(out), nil
}

func (m *mockTeamRepo) FindByID(ctx context.Context, id string) (*models.ProjectTeam, error) {
	team, ok := m.teams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return team, nil
}

func (m *mockTeamRepo) Create(ctx context.Context, team *models.ProjectTeam) error {
	if team.ID == "" {
		team.ID = "team-1"
	}
	m.teams[team.ID] = team
	return nil
}

func (m *mockTeamRepo) Update(ctx context.Context, team *models.ProjectTeam) error {
	m.teams[team.ID] = team
	return nil
}

func (m *mockTeamRepo) Delete(ctx context.Context, id string) error {
	delete(m.teams, id)
	return nil
}

func (m *mockTeamRepo) CountProjects(ctx context.Context, teamID string) (int, error) {
	return m.projectCounts[teamID], nil
}

func (m *mockTeamRepo) ListIDsByMember(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	for id, team := range m.teams {
		for _, member := range team.Members {
			if member.UserID == userID {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

func teamRequest(members ...TeamMemberRequest) TeamRequest {
	return TeamRequest{Name: "Volt", DepartmentID: "d1", EventID: "ev1", Members: members}
}

func member(userID string, leader bool) TeamMemberRequest {
	return TeamMemberRequest{UserID: userID, Name: "Member " + userID, EnrollmentNo: "2024" + userID, IsLeader: leader}
}

func TestTeamServiceCreate(t *testing.T) {
	repo := newMockTeamRepo()
	svc := NewTeamService(repo, validator.New(), zap.NewNop())

	team, err := svc.Create(context.Background(), "u1", teamRequest(member("u1", true), member("u2", false)))
	require.NoError(t, err)
	require.Len(t, team.Members, 2)
	assert.Equal(t, "member", team.Members[1].Role)
}

func TestTeamServiceCreateTooLarge(t *testing.T) {
	svc := NewTeamService(newMockTeamRepo(), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "u1", teamRequest(
		member("u1", true), member("u2", false), member("u3", false), member("u4", false), member("u5", false),
	))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeamServiceCreateNeedsOneLeader(t *testing.T) {
	svc := NewTeamService(newMockTeamRepo(), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "u1", teamRequest(member("u1", false), member("u2", false)))
	require.Error(t, err)

	_, err = svc.Create(context.Background(), "u1", teamRequest(member("u1", true), member("u2", true)))
	require.Error(t, err)
}

func TestTeamServiceCreateDuplicateMember(t *testing.T) {
	svc := NewTeamService(newMockTeamRepo(), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "u1", teamRequest(member("u1", true), member("u1", false)))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeamServiceMyTeams(t *testing.T) {
	repo := newMockTeamRepo()
	svc := NewTeamService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "u1", teamRequest(member("u1", true), member("u2", false)))
	require.NoError(t, err)

	teams, err := svc.MyTeams(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, teams, 1)

	teams, err = svc.MyTeams(context.Background(), "u9")
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestTeamServiceAddMember(t *testing.T) {
	repo := newMockTeamRepo()
	svc := NewTeamService(repo, validator.New(), zap.NewNop())

	team, err := svc.Create(context.Background(), "u1", teamRequest(member("u1", true)))
	require.NoError(t, err)

	team, err = svc.AddMember(context.Background(), team.ID, member("u2", false))
	require.NoError(t, err)
	require.Len(t, team.Members, 2)

	_, err = svc.AddMember(context.Background(), team.ID, member("u2", false))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeamServiceRemoveMember(t *testing.T) {
	repo := newMockTeamRepo()
	svc := NewTeamService(repo, validator.New(), zap.NewNop())

	team, err := svc.Create(context.Background(), "u1", teamRequest(member("u1", true), member("u2", false)))
	require.NoError(t, err)

	_, err = svc.RemoveMember(context.Background(), team.ID, "u1")
	require.Error(t, err)

	team, err = svc.RemoveMember(context.Background(), team.ID, "u2")
	require.NoError(t, err)
	require.Len(t, team.Members, 1)
	assert.Equal(t, "u1", team.Members[0].UserID)
}

func TestTeamServiceSetLeader(t *testing.T) {
	repo := newMockTeamRepo()
	svc := NewTeamService(repo, validator.New(), zap.NewNop())

	team, err := svc.Create(context.Background(), "u1", teamRequest(member("u1", true), member("u2", false)))
	require.NoError(t, err)

	team, err = svc.SetLeader(context.Background(), team.ID, "u2")
	require.NoError(t, err)
	for _, m := range team.Members {
		assert.Equal(t, m.UserID == "u2", m.IsLeader)
	}

	_, err = svc.SetLeader(context.Background(), team.ID, "u9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeamServiceDeleteWithProjects(t *testing.T) {
	repo := newMockTeamRepo()
	repo.teams["t1"] = &models.ProjectTeam{ID: "t1"}
	repo.projectCounts["t1"] = 2
	svc := NewTeamService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "t1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
