package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/audit"
	"jogosescolares/internal/database"
	"jogosescolares/internal/user"
	"jogosescolares/internal/util"

	"github.com/google/uuid"
)

type Event struct {
	ID                          uuid.UUID                `json:"id"`
	OwnerID                     uuid.UUID                `json:"owner_id"`
	Name                        string                   `json:"name"`
	Location                    string                   `json:"location"`
	StartDate                   time.Time                `json:"start_date"`
	EndDate                     time.Time                `json:"end_date"`
	RegistrationIndividualStart util.Optional[time.Time] `json:"registration_individual_start"`
	RegistrationIndividualEnd   util.Optional[time.Time] `json:"registration_individual_end"`
	RegistrationCollectiveStart util.Optional[time.Time] `json:"registration_collective_start"`
	RegistrationCollectiveEnd   util.Optional[time.Time] `json:"registration_collective_end"`
	AdminStatus                 AdminStatus              `json:"admin_status"`
	TimeStatus                  TimeStatus               `json:"time_status"`
	Editable                    bool                     `json:"editable"`
	CreatedAt                   time.Time                `json:"created_at"`
	UpdatedAt                   time.Time                `json:"updated_at"`
}

// IsRegistrationOpen reports whether now falls inside the registration
// window of the given kind. An unset bound leaves that side open.
func (e Event) IsRegistrationOpen(now time.Time, kind RegistrationKind) bool {
	start, end := e.RegistrationIndividualStart, e.RegistrationIndividualEnd
	if kind == RegistrationCollective {
		start, end = e.RegistrationCollectiveStart, e.RegistrationCollectiveEnd
	}
	if start.IsSet && now.Before(start.Val) {
		return false
	}
	if end.IsSet && now.After(end.Val) {
		return false
	}
	return true
}

type Manager struct {
	logger  *slog.Logger
	store   database.Store
	auditor *audit.Auditor
	now     func() time.Time
}

// NewManager builds an event manager. now defaults to time.Now.
func NewManager(logger *slog.Logger, store database.Store, auditor *audit.Auditor, now func() time.Time) Manager {
	if now == nil {
		now = time.Now
	}
	return Manager{logger: logger, store: store, auditor: auditor, now: now}
}

// Now is the manager's clock, shared with callers that evaluate windows.
func (m *Manager) Now() time.Time {
	return m.now()
}

func (m *Manager) fromDB(e database.Event) Event {
	admin := AdminStatus(e.AdminStatus)
	ts := ComputeTimeStatus(m.now(), e.StartDate, e.EndDate)
	return Event{
		ID:                          e.ID,
		OwnerID:                     e.OwnerID,
		Name:                        e.Name,
		Location:                    e.Location,
		StartDate:                   e.StartDate,
		EndDate:                     e.EndDate,
		RegistrationIndividualStart: e.RegistrationIndividualStart,
		RegistrationIndividualEnd:   e.RegistrationIndividualEnd,
		RegistrationCollectiveStart: e.RegistrationCollectiveStart,
		RegistrationCollectiveEnd:   e.RegistrationCollectiveEnd,
		AdminStatus:                 admin,
		TimeStatus:                  ts,
		Editable:                    IsEditable(admin, ts),
		CreatedAt:                   e.CreatedAt,
		UpdatedAt:                   e.UpdatedAt,
	}
}

type Schedule struct {
	Name                        string
	Location                    string
	StartDate                   time.Time
	EndDate                     time.Time
	RegistrationIndividualStart util.Optional[time.Time]
	RegistrationIndividualEnd   util.Optional[time.Time]
	RegistrationCollectiveStart util.Optional[time.Time]
	RegistrationCollectiveEnd   util.Optional[time.Time]
}

func (s Schedule) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return apperrors.Validation("event name is required")
	}
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return apperrors.Validation("event start and end dates are required")
	}
	if s.EndDate.Before(s.StartDate) {
		return apperrors.Validation("event end date must not be before its start date")
	}
	if s.RegistrationIndividualStart.IsSet && s.RegistrationIndividualEnd.IsSet &&
		s.RegistrationIndividualEnd.Val.Before(s.RegistrationIndividualStart.Val) {
		return apperrors.Validation("individual registration window ends before it starts")
	}
	if s.RegistrationCollectiveStart.IsSet && s.RegistrationCollectiveEnd.IsSet &&
		s.RegistrationCollectiveEnd.Val.Before(s.RegistrationCollectiveStart.Val) {
		return apperrors.Validation("collective registration window ends before it starts")
	}
	return nil
}

func (s Schedule) apply(e *database.Event) {
	e.Name = strings.TrimSpace(s.Name)
	e.Location = strings.TrimSpace(s.Location)
	e.StartDate = s.StartDate
	e.EndDate = s.EndDate
	e.RegistrationIndividualStart = s.RegistrationIndividualStart
	e.RegistrationIndividualEnd = s.RegistrationIndividualEnd
	e.RegistrationCollectiveStart = s.RegistrationCollectiveStart
	e.RegistrationCollectiveEnd = s.RegistrationCollectiveEnd
}

type CreateEventParams struct {
	ActorID uuid.UUID
	Schedule
}

// CreateEvent stores a DRAFT event and grants its creator the owner role in
// the same transaction.
func (m *Manager) CreateEvent(ctx context.Context, params CreateEventParams) (Event, error) {
	if err := params.validate(); err != nil {
		return Event{}, err
	}

	now := m.now().UTC()
	record := database.Event{
		ID:          uuid.New(),
		OwnerID:     params.ActorID,
		AdminStatus: string(AdminStatusDraft),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	params.apply(&record)

	err := m.store.InTx(ctx, func(q database.Queries) error {
		actor, err := q.GetUserByID(ctx, params.ActorID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperrors.NotFound("user %s not found", params.ActorID)
			}
			return fmt.Errorf("failed to get user %s: %w", params.ActorID, err)
		}
		if !user.Role(actor.Role).IsStaff() {
			return apperrors.Forbidden("only producers and admins can create events")
		}

		if err := q.CreateEvent(ctx, record); err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}

		if err := q.UpsertPermission(ctx, database.Permission{
			UserID:    params.ActorID,
			EventID:   record.ID,
			Role:      string(RoleOwner),
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to grant owner permission: %w", err)
		}

		return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeEventCreate,
			Data: map[string]any{
				"event_id": record.ID,
				"name":     record.Name,
			},
		})
	})
	if err != nil {
		return Event{}, err
	}

	m.logger.InfoContext(ctx, "Event created", "event_id", record.ID, "owner_id", params.ActorID)
	return m.fromDB(record), nil
}

func (m *Manager) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	record, err := getEvent(ctx, m.store, id)
	if err != nil {
		return Event{}, err
	}
	return m.fromDB(record), nil
}

type ListEventsParams struct {
	MemberUserID util.Optional[uuid.UUID]
}

func (m *Manager) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	records, err := m.store.ListEvents(ctx, database.ListEventsParams{MemberUserID: params.MemberUserID})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]Event, 0, len(records))
	for _, r := range records {
		events = append(events, m.fromDB(r))
	}
	return events, nil
}

type UpdateEventParams struct {
	ActorID uuid.UUID
	ID      uuid.UUID
	Schedule
}

func (m *Manager) UpdateEvent(ctx context.Context, params UpdateEventParams) (Event, error) {
	if err := params.validate(); err != nil {
		return Event{}, err
	}

	var updated database.Event
	err := m.store.InTx(ctx, func(q database.Queries) error {
		record, err := m.CheckEditable(ctx, q, params.ID)
		if err != nil {
			return err
		}

		params.apply(&record)
		record.UpdatedAt = m.now().UTC()
		if err := q.UpdateEvent(ctx, record); err != nil {
			return fmt.Errorf("failed to update event %s: %w", params.ID, err)
		}
		updated = record

		return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeEventUpdate,
			Data:    map[string]any{"event_id": params.ID},
		})
	})
	if err != nil {
		return Event{}, err
	}

	return m.fromDB(updated), nil
}

type ChangeStatusParams struct {
	ActorID uuid.UUID
	ID      uuid.UUID
	To      AdminStatus
}

// ChangeStatus applies an administrative transition. Cancelling is how
// events are retired; they are never deleted.
func (m *Manager) ChangeStatus(ctx context.Context, params ChangeStatusParams) (Event, error) {
	if !params.To.IsValid() {
		return Event{}, apperrors.Validation("invalid admin status %q", params.To)
	}

	var updated database.Event
	err := m.store.InTx(ctx, func(q database.Queries) error {
		record, err := getEvent(ctx, q, params.ID)
		if err != nil {
			return err
		}

		from := AdminStatus(record.AdminStatus)
		if !CanTransition(from, params.To) {
			return apperrors.Validation("cannot change event status from %s to %s", from, params.To).
				WithMetadata("from", string(from)).
				WithMetadata("to", string(params.To))
		}

		record.AdminStatus = string(params.To)
		record.UpdatedAt = m.now().UTC()
		if err := q.UpdateEvent(ctx, record); err != nil {
			return fmt.Errorf("failed to update event status %s: %w", params.ID, err)
		}
		updated = record

		return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeEventStatusChange,
			Data: map[string]any{
				"event_id": params.ID,
				"from":     from,
				"to":       params.To,
			},
		})
	})
	if err != nil {
		return Event{}, err
	}

	m.logger.InfoContext(ctx, "Event status changed", "event_id", params.ID, "to", params.To)
	return m.fromDB(updated), nil
}

// EnsureEditable returns a validation error unless the event accepts changes now.
func (m *Manager) EnsureEditable(ctx context.Context, id uuid.UUID) error {
	_, err := m.CheckEditable(ctx, m.store, id)
	return err
}

// CheckEditable is EnsureEditable against q, for use inside a caller's
// transaction. It returns the stored record on success.
func (m *Manager) CheckEditable(ctx context.Context, q database.Queries, id uuid.UUID) (database.Event, error) {
	record, err := getEvent(ctx, q, id)
	if err != nil {
		return record, err
	}

	e := m.fromDB(record)
	if !e.Editable {
		return record, apperrors.Validation("event %s is not editable", id).
			WithMetadata("admin_status", string(e.AdminStatus)).
			WithMetadata("time_status", string(e.TimeStatus))
	}
	return record, nil
}

type SetEventModalitiesParams struct {
	ActorID     uuid.UUID
	EventID     uuid.UUID
	ModalityIDs []uuid.UUID
}

// SetEventModalities replaces the event's modality association. An empty list
// makes the whole catalog usable.
func (m *Manager) SetEventModalities(ctx context.Context, params SetEventModalitiesParams) error {
	return m.store.InTx(ctx, func(q database.Queries) error {
		if _, err := m.CheckEditable(ctx, q, params.EventID); err != nil {
			return err
		}

		for _, id := range params.ModalityIDs {
			if _, err := q.GetModalityByID(ctx, id); err != nil {
				if errors.Is(err, database.ErrNotFound) {
					return apperrors.NotFound("modality %s not found", id)
				}
				return fmt.Errorf("failed to get modality %s: %w", id, err)
			}
		}

		if err := q.SetEventModalities(ctx, params.EventID, params.ModalityIDs); err != nil {
			return fmt.Errorf("failed to set event modalities: %w", err)
		}

		return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeEventModalities,
			Data: map[string]any{
				"event_id":     params.EventID,
				"modality_ids": params.ModalityIDs,
			},
		})
	})
}

func (m *Manager) ListEventModalityIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := getEvent(ctx, m.store, eventID); err != nil {
		return nil, err
	}
	ids, err := m.store.ListEventModalityIDs(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list event modalities: %w", err)
	}
	return ids, nil
}

func getEvent(ctx context.Context, q database.Queries, id uuid.UUID) (database.Event, error) {
	record, err := q.GetEventByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return record, apperrors.NotFound("event %s not found", id)
		}
		return record, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return record, nil
}
