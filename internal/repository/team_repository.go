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

// TeamRepository manages persistence for project teams.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository constructs a TeamRepository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = `id, name, department_id, event_id, created_by, created_at, updated_at`

// List returns teams, optionally scoped to an event or department.
func (r *TeamRepository) List(ctx context.Context, eventID, departmentID string, page, pageSize int) ([]models.ProjectTeam, int, error) {
	baseQuery := `FROM project_teams WHERE 1=1`
	var conditions []string
	var args []interface{}

	if eventID != "" {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)+1))
		args = append(args, eventID)
	}
	if departmentID != "" {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, departmentID)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", teamColumns, baseQuery, pageSize, offset)

	var teams []models.ProjectTeam
	if err := r.db.SelectContext(ctx, &teams, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list teams: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teams: %w", err)
	}

	for i := range teams {
		if err := r.loadMembers(ctx, &teams[i]); err != nil {
			return nil, 0, err
		}
	}

	return teams, total, nil
}

// FindByID fetches a team with its members.
func (r *TeamRepository) FindByID(ctx context.Context, id string) (*models.ProjectTeam, error) {
	const query = `SELECT ` + teamColumns + ` FROM project_teams WHERE id = $1 LIMIT 1`
	var team models.ProjectTeam
	if err := r.db.GetContext(ctx, &team, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find team by id: %w", err)
	}
	if err := r.loadMembers(ctx, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// ListIDsByMember returns team IDs the given user belongs to.
func (r *TeamRepository) ListIDsByMember(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT team_id FROM team_members WHERE user_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list teams by member: %w", err)
	}
	return ids, nil
}

func (r *TeamRepository) loadMembers(ctx context.Context, team *models.ProjectTeam) error {
	const query = `SELECT id, team_id, user_id, name, enrollment_no, role, is_leader FROM team_members WHERE team_id = $1 ORDER BY is_leader DESC, name`
	if err := r.db.SelectContext(ctx, &team.Members, query, team.ID); err != nil {
		return fmt.Errorf("load team members: %w", err)
	}
	return nil
}

// Create inserts a team and its members.
func (r *TeamRepository) Create(ctx context.Context, team *models.ProjectTeam) error {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if team.CreatedAt.IsZero() {
		team.CreatedAt = now
	}
	team.UpdatedAt = now
	const query = `INSERT INTO project_teams (id, name, department_id, event_id, created_by, created_at, updated_at)
        VALUES (:id, :name, :department_id, :event_id, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, team); err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return r.replaceMembers(ctx, team)
}

// Update modifies a team and rewrites its members.
func (r *TeamRepository) Update(ctx context.Context, team *models.ProjectTeam) error {
	team.UpdatedAt = time.Now().UTC()
	const query = `UPDATE project_teams SET name = :name, department_id = :department_id, event_id = :event_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, team); err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	return r.replaceMembers(ctx, team)
}

func (r *TeamRepository) replaceMembers(ctx context.Context, team *models.ProjectTeam) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, team.ID); err != nil {
		return fmt.Errorf("clear team members: %w", err)
	}
	const query = `INSERT INTO team_members (id, team_id, user_id, name, enrollment_no, role, is_leader) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range team.Members {
		m := &team.Members[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.TeamID = team.ID
		if _, err := r.db.ExecContext(ctx, query, m.ID, m.TeamID, m.UserID, m.Name, m.EnrollmentNo, m.Role, m.IsLeader); err != nil {
			return fmt.Errorf("insert team member: %w", err)
		}
	}
	return nil
}

// Delete removes a team and its members.
func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, id); err != nil {
		return fmt.Errorf("delete team members: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM project_teams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

// CountProjects returns the number of projects registered by a team.
func (r *TeamRepository) CountProjects(ctx context.Context, teamID string) (int, error) {
	const query = `SELECT COUNT(*) FROM projects WHERE team_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teamID); err != nil {
		return 0, fmt.Errorf("count team projects: %w", err)
	}
	return count, nil
}
