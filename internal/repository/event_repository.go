package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gppalanpur/portal-api/internal/models"
)

// EventRepository manages persistence for project events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, name, academic_year, event_date, registration_start, registration_end,
        is_active, status, publish_results, schedule, created_at, updated_at`

// List returns all events, newest first.
func (r *EventRepository) List(ctx context.Context) ([]models.ProjectEvent, error) {
	const query = `SELECT ` + eventColumns + ` FROM project_events ORDER BY event_date DESC`
	var events []models.ProjectEvent
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListActive returns events currently flagged active.
func (r *EventRepository) ListActive(ctx context.Context) ([]models.ProjectEvent, error) {
	const query = `SELECT ` + eventColumns + ` FROM project_events WHERE is_active = TRUE ORDER BY event_date DESC`
	var events []models.ProjectEvent
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list active events: %w", err)
	}
	return events, nil
}

// FindByID fetches an event by identifier.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.ProjectEvent, error) {
	const query = `SELECT ` + eventColumns + ` FROM project_events WHERE id = $1 LIMIT 1`
	var event models.ProjectEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.ProjectEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	const query = `INSERT INTO project_events (id, name, academic_year, event_date, registration_start, registration_end,
        is_active, status, publish_results, schedule, created_at, updated_at)
        VALUES (:id, :name, :academic_year, :event_date, :registration_start, :registration_end,
        :is_active, :status, :publish_results, :schedule, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update modifies an existing event.
func (r *EventRepository) Update(ctx context.Context, event *models.ProjectEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE project_events SET name = :name, academic_year = :academic_year, event_date = :event_date,
        registration_start = :registration_start, registration_end = :registration_end, is_active = :is_active,
        status = :status, publish_results = :publish_results, schedule = :schedule, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM project_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// CountProjects returns the number of projects registered for an event.
func (r *EventRepository) CountProjects(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM projects WHERE event_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, fmt.Errorf("count event projects: %w", err)
	}
	return count, nil
}
