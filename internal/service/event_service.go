package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gppalanpur/portal-api/internal/models"
	appErrors "github.com/gppalanpur/portal-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context) ([]models.ProjectEvent, error)
	ListActive(ctx context.Context) ([]models.ProjectEvent, error)
	FindByID(ctx context.Context, id string) (*models.ProjectEvent, error)
	Create(ctx context.Context, event *models.ProjectEvent) error
	Update(ctx context.Context, event *models.ProjectEvent) error
	Delete(ctx context.Context, id string) error
	CountProjects(ctx context.Context, eventID string) (int, error)
}

// EventRequest payload for creating or updating a project event.
type EventRequest struct {
	Name              string                     `json:"name" validate:"required"`
	AcademicYear      string                     `json:"academic_year" validate:"required"`
	EventDate         time.Time                  `json:"event_date" validate:"required"`
	RegistrationStart time.Time                  `json:"registration_start" validate:"required"`
	RegistrationEnd   time.Time                  `json:"registration_end" validate:"required"`
	IsActive          *bool                      `json:"is_active"`
	Status            string                     `json:"status"`
	PublishResults    *bool                      `json:"publish_results"`
	Schedule          []models.EventScheduleItem `json:"schedule"`
}

// EventService provides project event management use cases.
type EventService struct {
	repo      eventRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(repo eventRepository, validate *validator.Validate, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EventService{repo: repo, validator: validate, logger: logger}
}

// List returns all events, or only the active ones.
func (s *EventService) List(ctx context.Context, activeOnly bool) ([]models.ProjectEvent, error) {
	var (
		events []models.ProjectEvent
		err    error
	)
	if activeOnly {
		events, err = s.repo.ListActive(ctx)
	} else {
		events, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	for i := range events {
		decodeSchedule(&events[i])
	}
	return events, nil
}

// Get returns an event by ID.
func (s *EventService) Get(ctx context.Context, id string) (*models.ProjectEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	decodeSchedule(event)
	return event, nil
}

// Create adds a new event.
func (s *EventService) Create(ctx context.Context, req EventRequest) (*models.ProjectEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.RegistrationEnd.After(req.RegistrationStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration window must end after it starts")
	}

	event := &models.ProjectEvent{
		Name:              req.Name,
		AcademicYear:      req.AcademicYear,
		EventDate:         req.EventDate,
		RegistrationStart: req.RegistrationStart,
		RegistrationEnd:   req.RegistrationEnd,
		IsActive:          true,
		Status:            models.EventStatusUpcoming,
		Schedule:          req.Schedule,
	}
	if req.IsActive != nil {
		event.IsActive = *req.IsActive
	}
	if req.Status != "" {
		event.Status = req.Status
	}
	if req.PublishResults != nil {
		event.PublishResults = *req.PublishResults
	}
	if err := encodeSchedule(event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// Update modifies an existing event.
func (s *EventService) Update(ctx context.Context, id string, req EventRequest) (*models.ProjectEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.RegistrationEnd.After(req.RegistrationStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration window must end after it starts")
	}

	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	event.Name = req.Name
	event.AcademicYear = req.AcademicYear
	event.EventDate = req.EventDate
	event.RegistrationStart = req.RegistrationStart
	event.RegistrationEnd = req.RegistrationEnd
	if req.IsActive != nil {
		event.IsActive = *req.IsActive
	}
	if req.Status != "" {
		event.Status = req.Status
	}
	if req.PublishResults != nil {
		event.PublishResults = *req.PublishResults
	}
	if req.Schedule != nil {
		event.Schedule = req.Schedule
	}
	if err := encodeSchedule(event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

// Delete removes an event. Events with registered projects are protected.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	projects, err := s.repo.CountProjects(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count event projects")
	}
	if projects > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "event has registered projects")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}

// SetSchedule replaces an event's day plan.
func (s *EventService) SetSchedule(ctx context.Context, id string, schedule []models.EventScheduleItem) (*models.ProjectEvent, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Schedule = schedule
	if err := encodeSchedule(event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event schedule")
	}
	return event, nil
}

// PublishResults toggles whether an event's rankings are publicly visible.
func (s *EventService) PublishResults(ctx context.Context, id string, publish bool) (*models.ProjectEvent, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	event.PublishResults = publish
	if err := encodeSchedule(event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

func decodeSchedule(event *models.ProjectEvent) {
	event.Schedule = nil
	if len(event.ScheduleRaw) == 0 {
		return
	}
	if err := json.Unmarshal(event.ScheduleRaw, &event.Schedule); err != nil {
		event.Schedule = nil
	}
}

func encodeSchedule(event *models.ProjectEvent) error {
	if event.Schedule == nil {
		event.ScheduleRaw = []byte("[]")
		return nil
	}
	raw, err := json.Marshal(event.Schedule)
	if err != nil {
		return err
	}
	event.ScheduleRaw = raw
	return nil
}
