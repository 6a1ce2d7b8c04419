package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gppalanpur/portal-api/internal/models"
)

// ProjectRepository manages persistence for projects, teams and events.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs a ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, title, category, abstract, requirements, department_id, team_id, event_id,
        guide_user_id, power_required, internet_required, special_space_required, status, created_by,
        created_at, updated_at`

// List returns projects matching the provided filters.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	baseQuery := `FROM projects WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.EventID != "" {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)+1))
		args = append(args, filter.EventID)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(abstract) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"title":      true,
		"category":   true,
		"status":     true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", projectColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	return projects, total, nil
}

// FindByID fetches a project with its evaluations.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 LIMIT 1`
	var p models.Project
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project by id: %w", err)
	}
	evals, err := r.ListEvaluations(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range evals {
		switch evals[i].Stage {
		case models.EvaluationStageDept:
			p.DeptEvaluation = &evals[i]
		case models.EvaluationStageCentral:
			p.CentralEvaluation = &evals[i]
		}
	}
	return &p, nil
}

// ListByTeams returns projects belonging to any of the given teams.
func (r *ProjectRepository) ListByTeams(ctx context.Context, teamIDs []string) ([]models.Project, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+projectColumns+` FROM projects WHERE team_id IN (?) ORDER BY created_at DESC`, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("build team projects query: %w", err)
	}
	query = r.db.Rebind(query)
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("list projects by teams: %w", err)
	}
	return projects, nil
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	const query = `INSERT INTO projects (id, title, category, abstract, requirements, department_id, team_id, event_id,
        guide_user_id, power_required, internet_required, special_space_required, status, created_by, created_at, updated_at)
        VALUES (:id, :title, :category, :abstract, :requirements, :department_id, :team_id, :event_id,
        :guide_user_id, :power_required, :internet_required, :special_space_required, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// Update modifies an existing project.
func (r *ProjectRepository) Update(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now().UTC()
	const query = `UPDATE projects SET title = :title, category = :category, abstract = :abstract, requirements = :requirements,
        department_id = :department_id, team_id = :team_id, event_id = :event_id, guide_user_id = :guide_user_id,
        power_required = :power_required, internet_required = :internet_required, special_space_required = :special_space_required,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// Delete removes a project with its evaluations.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM project_evaluations WHERE project_id = $1`, id); err != nil {
		return fmt.Errorf("delete project evaluations: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// ListEvaluations returns all evaluations for a project.
func (r *ProjectRepository) ListEvaluations(ctx context.Context, projectID string) ([]models.ProjectEvaluation, error) {
	const query = `SELECT project_id, stage, completed, score, feedback, jury_user_id, evaluated_at FROM project_evaluations WHERE project_id = $1 ORDER BY stage`
	var evals []models.ProjectEvaluation
	if err := r.db.SelectContext(ctx, &evals, query, projectID); err != nil {
		return nil, fmt.Errorf("list project evaluations: %w", err)
	}
	return evals, nil
}

// UpsertEvaluation stores or replaces an evaluation for one stage.
func (r *ProjectRepository) UpsertEvaluation(ctx context.Context, eval *models.ProjectEvaluation) error {
	const query = `INSERT INTO project_evaluations (project_id, stage, completed, score, feedback, jury_user_id, evaluated_at)
        VALUES (:project_id, :stage, :completed, :score, :feedback, :jury_user_id, :evaluated_at)
        ON CONFLICT (project_id, stage) DO UPDATE SET completed = EXCLUDED.completed, score = EXCLUDED.score,
        feedback = EXCLUDED.feedback, jury_user_id = EXCLUDED.jury_user_id, evaluated_at = EXCLUDED.evaluated_at`
	if _, err := r.db.NamedExecContext(ctx, query, eval); err != nil {
		return fmt.Errorf("upsert project evaluation: %w", err)
	}
	return nil
}

// CountByColumn groups project counts by the given column.
func (r *ProjectRepository) CountByColumn(ctx context.Context, eventID, column string) (map[string]int, error) {
	allowed := map[string]string{
		"department": "department_id",
		"category":   "category",
		"status":     "status",
	}
	col, ok := allowed[column]
	if !ok {
		return nil, fmt.Errorf("count projects: unsupported column %q", column)
	}
	query := fmt.Sprintf("SELECT %s AS key, COUNT(*) AS count FROM projects WHERE event_id = $1 GROUP BY %s", col, col)
	rows := []struct {
		Key   string `db:"key"`
		Count int    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, fmt.Errorf("count projects by %s: %w", column, err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

// EvaluationSummary returns evaluated counts and the average central score.
func (r *ProjectRepository) EvaluationSummary(ctx context.Context, eventID string) (evaluated int, avgScore float64, err error) {
	const query = `SELECT COUNT(*) AS evaluated, COALESCE(AVG(e.score), 0) AS avg_score
        FROM project_evaluations e JOIN projects p ON p.id = e.project_id
        WHERE p.event_id = $1 AND e.stage = $2 AND e.completed = TRUE`
	row := struct {
		Evaluated int     `db:"evaluated"`
		AvgScore  float64 `db:"avg_score"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, eventID, models.EvaluationStageCentral); err != nil {
		return 0, 0, fmt.Errorf("evaluation summary: %w", err)
	}
	return row.Evaluated, row.AvgScore, nil
}

// Winners returns the top central-stage scores for an event.
func (r *ProjectRepository) Winners(ctx context.Context, eventID string, limit int) ([]models.ProjectWinner, error) {
	if limit <= 0 {
		limit = 3
	}
	query := fmt.Sprintf(`SELECT p.id AS project_id, p.title, t.name AS team_name, d.name AS department, e.score
        FROM project_evaluations e
        JOIN projects p ON p.id = e.project_id
        JOIN project_teams t ON t.id = p.team_id
        JOIN departments d ON d.id = p.department_id
        WHERE p.event_id = $1 AND e.stage = $2 AND e.completed = TRUE
        ORDER BY e.score DESC LIMIT %d`, limit)
	rows := []struct {
		ProjectID  string  `db:"project_id"`
		Title      string  `db:"title"`
		TeamName   string  `db:"team_name"`
		Department string  `db:"department"`
		Score      float64 `db:"score"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, eventID, models.EvaluationStageCentral); err != nil {
		return nil, fmt.Errorf("list winners: %w", err)
	}
	winners := make([]models.ProjectWinner, 0, len(rows))
	for i, row := range rows {
		score := row.Score
		winners = append(winners, models.ProjectWinner{
			Rank:       i + 1,
			ProjectID:  row.ProjectID,
			Title:      row.Title,
			TeamName:   row.TeamName,
			Department: row.Department,
			Score:      &score,
		})
	}
	return winners, nil
}

// DepartmentWinners returns the top dept-stage scores per department.
func (r *ProjectRepository) DepartmentWinners(ctx context.Context, eventID string, limit int) ([]models.ProjectWinner, error) {
	if limit <= 0 {
		limit = 3
	}
	query := fmt.Sprintf(`SELECT project_id, title, team_name, department, score, position FROM (
        SELECT p.id AS project_id, p.title, t.name AS team_name, d.name AS department, e.score,
               ROW_NUMBER() OVER (PARTITION BY p.department_id ORDER BY e.score DESC) AS position
        FROM project_evaluations e
        JOIN projects p ON p.id = e.project_id
        JOIN project_teams t ON t.id = p.team_id
        JOIN departments d ON d.id = p.department_id
        WHERE p.event_id = $1 AND e.stage = $2 AND e.completed = TRUE) ranked
        WHERE position <= %d ORDER BY department, position`, limit)
	rows := []struct {
		ProjectID  string  `db:"project_id"`
		Title      string  `db:"title"`
		TeamName   string  `db:"team_name"`
		Department string  `db:"department"`
		Score      float64 `db:"score"`
		Position   int     `db:"position"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, eventID, models.EvaluationStageDept); err != nil {
		return nil, fmt.Errorf("list department winners: %w", err)
	}
	winners := make([]models.ProjectWinner, 0, len(rows))
	for _, row := range rows {
		score := row.Score
		winners = append(winners, models.ProjectWinner{
			Rank:       row.Position,
			ProjectID:  row.ProjectID,
			Title:      row.Title,
			TeamName:   row.TeamName,
			Department: row.Department,
			Score:      &score,
		})
	}
	return winners, nil
}
