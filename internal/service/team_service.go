package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

const maxTeamSize = 4

type teamRepository interface {
	List(ctx context.Context, eventID, departmentID string, page, pageSize int) ([]models.ProjectTeam, int, error)
	FindByID(ctx context.Context, id string) (*models.ProjectTeam, error)
	Create(ctx context.Context, team *models.ProjectTeam) error
	Update(ctx context.Context, team *models.ProjectTeam) error
	Delete(ctx context.Context, id string) error
	CountProjects(ctx context.Context, teamID string) (int, error)
	ListIDsByMember(ctx context.Context, userID string) ([]string, error)
}

// TeamMemberRequest describes one member in a team payload.
type TeamMemberRequest struct {
	UserID       string `json:"user_id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	EnrollmentNo string `json:"enrollment_no" validate:"required"`
	Role         string `json:"role"`
	IsLeader     bool   `json:"is_leader"`
}

// TeamRequest payload for creating or updating a team.
type TeamRequest struct {
	Name         string              `json:"name" validate:"required"`
	DepartmentID string              `json:"department_id" validate:"required"`
	EventID      string              `json:"event_id" validate:"required"`
	Members      []TeamMemberRequest `json:"members" validate:"required,min=1,dive"`
}

// TeamService provides project team management use cases.
type TeamService struct {
	repo      teamRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeamService constructs a TeamService.
func NewTeamService(repo teamRepository, validate *validator.Validate, logger *zap.Logger) *TeamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeamService{repo: repo, validator: validate, logger: logger}
}

// List returns teams, optionally scoped to an event or department.
func (s *TeamService) List(ctx context.Context, eventID, departmentID string, page, pageSize int) ([]models.ProjectTeam, *models.Pagination, error) {
	teams, total, err := s.repo.List(ctx, eventID, departmentID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teams")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return teams, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a team with its members.
func (s *TeamService) Get(ctx context.Context, id string) (*models.ProjectTeam, error) {
	team, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	return team, nil
}

// Create registers a team. Teams carry one leader and at most four members.
func (s *TeamService) Create(ctx context.Context, creatorID string, req TeamRequest) (*models.ProjectTeam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid team payload")
	}
	if err := checkMembers(req.Members); err != nil {
		return nil, err
	}

	team := &models.ProjectTeam{
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
		EventID:      req.EventID,
		Members:      toMembers(req.Members),
	}
	if creatorID != "" {
		team.CreatedBy = &creatorID
	}
	if err := s.repo.Create(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create team")
	}
	return team, nil
}

// Update modifies a team and its member list.
func (s *TeamService) Update(ctx context.Context, id string, req TeamRequest) (*models.ProjectTeam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid team payload")
	}
	if err := checkMembers(req.Members); err != nil {
		return nil, err
	}

	team, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	team.Name = req.Name
	team.DepartmentID = req.DepartmentID
	team.EventID = req.EventID
	team.Members = toMembers(req.Members)

	if err := s.repo.Update(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update team")
	}
	return team, nil
}

// Delete removes a team. Teams with registered projects are protected.
func (s *TeamService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	projects, err := s.repo.CountProjects(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count team projects")
	}
	if projects > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "team has registered projects")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete team")
	}
	return nil
}

// MyTeams lists the teams the given user is a member of.
func (s *TeamService) MyTeams(ctx context.Context, userID string) ([]models.ProjectTeam, error) {
	ids, err := s.repo.ListIDsByMember(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}
	teams := make([]models.ProjectTeam, 0, len(ids))
	for _, id := range ids {
		team, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *team)
	}
	return teams, nil
}

// AddMember adds a student to a team.
func (s *TeamService) AddMember(ctx context.Context, teamID string, req TeamMemberRequest) (*models.ProjectTeam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}

	team, err := s.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if len(team.Members)+1 > maxTeamSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teams may have at most four members")
	}
	for _, m := range team.Members {
		if m.UserID == req.UserID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user is already a team member")
		}
	}
	if req.IsLeader {
		for i := range team.Members {
			team.Members[i].IsLeader = false
		}
	}
	team.Members = append(team.Members, toMembers([]TeamMemberRequest{req})...)

	if err := s.repo.Update(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add team member")
	}
	return team, nil
}

// RemoveMember removes a student from a team. The leader cannot be removed.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID string) (*models.ProjectTeam, error) {
	team, err := s.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}

	kept := team.Members[:0]
	found := false
	for _, m := range team.Members {
		if m.UserID == userID {
			if m.IsLeader {
				return nil, appErrors.Clone(appErrors.ErrValidation, "assign a new leader before removing the current one")
			}
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found in team")
	}
	if len(kept) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teams need at least one member")
	}
	team.Members = kept

	if err := s.repo.Update(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove team member")
	}
	return team, nil
}

// SetLeader hands team leadership to an existing member.
func (s *TeamService) SetLeader(ctx context.Context, teamID, userID string) (*models.ProjectTeam, error) {
	team, err := s.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range team.Members {
		isTarget := team.Members[i].UserID == userID
		team.Members[i].IsLeader = isTarget
		if isTarget {
			found = true
		}
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found in team")
	}

	if err := s.repo.Update(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set team leader")
	}
	return team, nil
}

func checkMembers(members []TeamMemberRequest) error {
	if len(members) > maxTeamSize {
		return appErrors.Clone(appErrors.ErrValidation, "teams may have at most four members")
	}
	leaders := 0
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.IsLeader {
			leaders++
		}
		if seen[m.UserID] {
			return appErrors.Clone(appErrors.ErrValidation, "duplicate member in team")
		}
		seen[m.UserID] = true
	}
	if leaders != 1 {
		return appErrors.Clone(appErrors.ErrValidation, "teams need exactly one leader")
	}
	return nil
}

func toMembers(reqs []TeamMemberRequest) []models.TeamMember {
	members := make([]models.TeamMember, 0, len(reqs))
	for _, m := range reqs {
		role := m.Role
		if role == "" {
			role = "member"
		}
		members = append(members, models.TeamMember{
			UserID:       m.UserID,
			Name:         m.Name,
			EnrollmentNo: m.EnrollmentNo,
			Role:         role,
			IsLeader:     m.IsLeader,
		})
	}
	return members
}
