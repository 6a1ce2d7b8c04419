package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

type projectRepository interface {
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
	FindByID(ctx context.Context, id string) (*models.Project, error)
	ListByTeams(ctx context.Context, teamIDs []string) ([]models.Project, error)
	Create(ctx context.Context, p *models.Project) error
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id string) error
	UpsertEvaluation(ctx context.Context, eval *models.ProjectEvaluation) error
	CountByColumn(ctx context.Context, eventID, column string) (map[string]int, error)
	EvaluationSummary(ctx context.Context, eventID string) (int, float64, error)
	Winners(ctx context.Context, eventID string, limit int) ([]models.ProjectWinner, error)
	DepartmentWinners(ctx context.Context, eventID string, limit int) ([]models.ProjectWinner, error)
}

type projectTeamRepository interface {
	FindByID(ctx context.Context, id string) (*models.ProjectTeam, error)
	ListIDsByMember(ctx context.Context, userID string) ([]string, error)
}

type projectEventRepository interface {
	FindByID(ctx context.Context, id string) (*models.ProjectEvent, error)
	CountProjects(ctx context.Context, eventID string) (int, error)
}

// ProjectRequest payload for registering or updating a project.
type ProjectRequest struct {
	Title         string  `json:"title" validate:"required"`
	Category      string  `json:"category" validate:"required"`
	Abstract      string  `json:"abstract" validate:"required"`
	Requirements  *string `json:"requirements"`
	DepartmentID  string  `json:"department_id" validate:"required"`
	TeamID        string  `json:"team_id" validate:"required"`
	EventID       string  `json:"event_id" validate:"required"`
	GuideUserID   *string `json:"guide_user_id"`
	PowerRequired bool    `json:"power_required"`
	InternetNeed  bool    `json:"internet_required"`
	SpecialSpace  bool    `json:"special_space_required"`
}

// EvaluationRequest records a jury score for one stage.
type EvaluationRequest struct {
	Stage    string   `json:"stage" validate:"required,oneof=department central"`
	Score    *float64 `json:"score" validate:"required,min=0,max=100"`
	Feedback *string  `json:"feedback"`
}

// ProjectService provides project-fair use cases.
type ProjectService struct {
	repo      projectRepository
	teams     projectTeamRepository
	events    projectEventRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProjectService constructs a ProjectService.
func NewProjectService(repo projectRepository, teams projectTeamRepository, events projectEventRepository, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProjectService{repo: repo, teams: teams, events: events, validator: validate, logger: logger}
}

// List returns projects matching the filter.
func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, *models.Pagination, error) {
	projects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return projects, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a project by ID.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

// MyProjects returns projects of teams the user belongs to.
func (s *ProjectService) MyProjects(ctx context.Context, userID string) ([]models.Project, error) {
	teamIDs, err := s.teams.ListIDsByMember(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user teams")
	}
	projects, err := s.repo.ListByTeams(ctx, teamIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list user projects")
	}
	return projects, nil
}

// Create registers a project for an event. Registration must be open.
func (s *ProjectService) Create(ctx context.Context, creatorID string, req ProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "event does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check event")
	}
	now := time.Now().UTC()
	if now.Before(event.RegistrationStart) || now.After(event.RegistrationEnd) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "event registration is closed")
	}

	if _, err := s.teams.FindByID(ctx, req.TeamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "team does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check team")
	}

	project := &models.Project{
		Title:         req.Title,
		Category:      req.Category,
		Abstract:      req.Abstract,
		Requirements:  req.Requirements,
		DepartmentID:  req.DepartmentID,
		TeamID:        req.TeamID,
		EventID:       req.EventID,
		GuideUserID:   req.GuideUserID,
		PowerRequired: req.PowerRequired,
		InternetNeed:  req.InternetNeed,
		SpecialSpace:  req.SpecialSpace,
		Status:        models.ProjectStatusSubmitted,
	}
	if creatorID != "" {
		project.CreatedBy = &creatorID
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}
	return project, nil
}

// Update modifies an existing project.
func (s *ProjectService) Update(ctx context.Context, id string, req ProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	project.Title = req.Title
	project.Category = req.Category
	project.Abstract = req.Abstract
	project.Requirements = req.Requirements
	project.DepartmentID = req.DepartmentID
	project.TeamID = req.TeamID
	project.EventID = req.EventID
	project.GuideUserID = req.GuideUserID
	project.PowerRequired = req.PowerRequired
	project.InternetNeed = req.InternetNeed
	project.SpecialSpace = req.SpecialSpace

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project")
	}
	return project, nil
}

// Delete removes a project.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete project")
	}
	return nil
}

// Evaluate records a jury score for a project stage. Completing the central
// stage marks the project evaluated.
func (s *ProjectService) Evaluate(ctx context.Context, projectID, juryUserID string, req EvaluationRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}

	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	eval := &models.ProjectEvaluation{
		ProjectID:   projectID,
		Stage:       req.Stage,
		Completed:   true,
		Score:       req.Score,
		Feedback:    req.Feedback,
		EvaluatedAt: &now,
	}
	if juryUserID != "" {
		eval.JuryUserID = &juryUserID
	}
	if err := s.repo.UpsertEvaluation(ctx, eval); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record evaluation")
	}

	if req.Stage == models.EvaluationStageCentral && project.Status != models.ProjectStatusEvaluated {
		project.Status = models.ProjectStatusEvaluated
		if err := s.repo.Update(ctx, project); err != nil {
			s.logger.Warn("failed to flag project evaluated", zap.Error(err))
		}
	}

	return s.Get(ctx, projectID)
}

// Statistics aggregates per-event counts for dashboards.
func (s *ProjectService) Statistics(ctx context.Context, eventID string) (*models.ProjectStatistics, error) {
	total, err := s.events.CountProjects(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count projects")
	}
	evaluated, avgScore, err := s.repo.EvaluationSummary(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise evaluations")
	}
	byDept, err := s.repo.CountByColumn(ctx, eventID, "department")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to group by department")
	}
	byCategory, err := s.repo.CountByColumn(ctx, eventID, "category")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to group by category")
	}
	byStatus, err := s.repo.CountByColumn(ctx, eventID, "status")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to group by status")
	}

	return &models.ProjectStatistics{
		Total:        total,
		Evaluated:    evaluated,
		Pending:      total - evaluated,
		AverageScore: avgScore,
		ByDepartment: byDept,
		ByCategory:   byCategory,
		ByStatus:     byStatus,
	}, nil
}

// Winners lists the top-ranked projects of an event, overall for the
// central stage or per department for the dept stage. Results must be
// published unless the caller is privileged, and raw jury scores are
// stripped for unprivileged callers.
func (s *ProjectService) Winners(ctx context.Context, eventID, stage string, limit int, privileged bool) ([]models.ProjectWinner, error) {
	if stage == "" {
		stage = models.EvaluationStageCentral
	}
	if stage != models.EvaluationStageCentral && stage != models.EvaluationStageDept {
		return nil, appErrors.Clone(appErrors.ErrValidation, "stage must be department or central")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !event.PublishResults && !privileged {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "results are not published yet")
	}

	var winners []models.ProjectWinner
	if stage == models.EvaluationStageDept {
		winners, err = s.repo.DepartmentWinners(ctx, eventID, limit)
	} else {
		winners, err = s.repo.Winners(ctx, eventID, limit)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list winners")
	}

	if !privileged {
		for i := range winners {
			winners[i].Score = nil
		}
	}
	return winners, nil
}
