package school

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/audit"
	"jogosescolares/internal/database"
	"jogosescolares/internal/event"
	"jogosescolares/internal/telemetry"
	"jogosescolares/internal/user"
	"jogosescolares/internal/util"
	"jogosescolares/internal/validator"

	"github.com/google/uuid"
)

type School struct {
	ID            uuid.UUID   `json:"id"`
	INEP          string      `json:"inep"`
	Name          string      `json:"name"`
	DirectorName  string      `json:"director_name"`
	Address       string      `json:"address"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	Phone         string      `json:"phone"`
	Email         string      `json:"email"`
	ResponsibleID uuid.UUID   `json:"responsible_id"`
	EventIDs      []uuid.UUID `json:"event_ids"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// FromDB folds the legacy single event reference into EventIDs.
func FromDB(s database.School) School {
	return School{
		ID:            s.ID,
		INEP:          s.INEP,
		Name:          s.Name,
		DirectorName:  s.DirectorName,
		Address:       s.Address,
		City:          s.City,
		State:         s.State,
		Phone:         s.Phone,
		Email:         s.Email,
		ResponsibleID: s.ResponsibleID,
		EventIDs:      mergeEventIDs(s.EventIDs, s.LegacyEventID),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (s School) LinkedTo(eventID uuid.UUID) bool {
	return slices.Contains(s.EventIDs, eventID)
}

type Manager struct {
	logger    *slog.Logger
	store     database.Store
	auditor   *audit.Auditor
	users     *user.Manager
	events    *event.Manager
	telemetry telemetry.Telemetry
	validator *validator.Validator
}

func NewManager(
	logger *slog.Logger,
	store database.Store,
	auditor *audit.Auditor,
	users *user.Manager,
	events *event.Manager,
	telemetry telemetry.Telemetry,
	validator *validator.Validator,
) Manager {
	return Manager{
		logger:    logger,
		store:     store,
		auditor:   auditor,
		users:     users,
		events:    events,
		telemetry: telemetry,
		validator: validator,
	}
}

// CheckEventAvailability rejects an INEP that is already registered for the
// target event. It never writes.
func (m *Manager) CheckEventAvailability(ctx context.Context, inep string, eventID uuid.UUID) error {
	return m.checkEventAvailability(ctx, m.store, strings.TrimSpace(inep), eventID)
}

func (m *Manager) checkEventAvailability(ctx context.Context, q database.Queries, inep string, eventID uuid.UUID) error {
	if _, err := q.GetEventByID(ctx, eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperrors.NotFound("event %s not found", eventID)
		}
		return fmt.Errorf("failed to get event %s: %w", eventID, err)
	}

	existing, err := q.GetSchoolByINEP(ctx, inep, false)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get school by INEP: %w", err)
	}

	if FromDB(existing).LinkedTo(eventID) {
		return errAlreadyRegistered(inep, eventID)
	}
	return nil
}

func errAlreadyRegistered(inep string, eventID uuid.UUID) error {
	return apperrors.Validation("school with INEP %s is already registered for this event", inep).
		WithMetadata("inep", inep).
		WithMetadata("event_id", eventID.String())
}

type ResponsibleParams struct {
	Name     string
	Email    string
	Phone    string
	CPF      string
	Password string
}

type RegisterParams struct {
	EventID      uuid.UUID
	INEP         string `validate:"required,inep"`
	Name         string `validate:"required,max=200"`
	DirectorName string `validate:"required,max=200"`
	Address      string `validate:"omitempty,max=300"`
	City         string `validate:"omitempty,max=120"`
	State        string `validate:"omitempty,uf"`
	Phone        string `validate:"omitempty,max=30"`
	Email        string `validate:"omitempty,email"`
	Responsible  ResponsibleParams
}

type RegisterResult struct {
	School      School    `json:"school"`
	Responsible user.User `json:"responsible"`
	Merged      bool      `json:"merged"`
}

// Register signs a school up for an event together with its responsible
// user. A school whose INEP already exists is merged: its event set gains
// the target event and the new user is pointed at the existing row.
func (m *Manager) Register(ctx context.Context, params RegisterParams) (RegisterResult, error) {
	params.INEP = strings.TrimSpace(params.INEP)
	params.State = strings.ToUpper(strings.TrimSpace(params.State))

	if params.EventID == uuid.Nil {
		return RegisterResult{}, apperrors.Validation("event is required")
	}
	if err := m.validator.Validate(params); err != nil {
		return RegisterResult{}, err
	}

	if err := m.CheckEventAvailability(ctx, params.INEP, params.EventID); err != nil {
		return RegisterResult{}, err
	}

	result, err := m.register(ctx, params)
	if errors.Is(err, database.ErrConflict) {
		// A concurrent registration inserted the same INEP first. The
		// second attempt sees its row and merges into it.
		m.logger.WarnContext(ctx, "School registration raced, retrying as merge", "inep", params.INEP)
		result, err = m.register(ctx, params)
	}
	if err != nil {
		return RegisterResult{}, err
	}

	m.telemetry.RecordSchoolRegistration(ctx, result.Merged)
	m.logger.InfoContext(ctx, "School registered",
		"school_id", result.School.ID,
		"inep", result.School.INEP,
		"event_id", params.EventID,
		"merged", result.Merged)

	return result, nil
}

func (m *Manager) register(ctx context.Context, params RegisterParams) (RegisterResult, error) {
	var result RegisterResult

	err := m.store.InTx(ctx, func(q database.Queries) error {
		if _, err := m.events.CheckEditable(ctx, q, params.EventID); err != nil {
			return err
		}

		// The school id exists before either row so the user can reference it.
		schoolID := uuid.New()
		responsible, err := m.users.Create(ctx, q, user.CreateUserParams{
			Role:     user.RoleSchoolAdmin,
			Name:     params.Responsible.Name,
			Email:    params.Responsible.Email,
			Phone:    params.Responsible.Phone,
			CPF:      params.Responsible.CPF,
			Password: params.Responsible.Password,
			SchoolID: util.Some(schoolID),
		})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		existing, err := q.GetSchoolByINEP(ctx, params.INEP, true)
		switch {
		case errors.Is(err, database.ErrNotFound):
			record := database.School{
				ID:            schoolID,
				INEP:          params.INEP,
				Name:          strings.TrimSpace(params.Name),
				DirectorName:  strings.TrimSpace(params.DirectorName),
				Address:       params.Address,
				City:          params.City,
				State:         params.State,
				Phone:         params.Phone,
				Email:         params.Email,
				ResponsibleID: responsible.ID,
				EventIDs:      []uuid.UUID{params.EventID},
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := q.CreateSchool(ctx, record); err != nil {
				return fmt.Errorf("failed to create school: %w", err)
			}
			result = RegisterResult{School: FromDB(record), Responsible: responsible}

			return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
				ActorID: responsible.ID,
				Type:    audit.AuditLogEventTypeSchoolRegistered,
				Data: map[string]any{
					"school_id": record.ID,
					"inep":      record.INEP,
					"event_id":  params.EventID,
				},
			})
		case err != nil:
			return fmt.Errorf("failed to get school by INEP: %w", err)
		}

		if FromDB(existing).LinkedTo(params.EventID) {
			return errAlreadyRegistered(params.INEP, params.EventID)
		}

		existing.EventIDs = mergeEventIDs(existing.EventIDs, existing.LegacyEventID, params.EventID)
		existing.LegacyEventID = util.None[uuid.UUID]()
		existing.UpdatedAt = now
		if err := q.UpdateSchool(ctx, existing); err != nil {
			return fmt.Errorf("failed to merge school %s: %w", existing.ID, err)
		}

		retargeted, err := q.GetUserByID(ctx, responsible.ID)
		if err != nil {
			return fmt.Errorf("failed to get user %s: %w", responsible.ID, err)
		}
		retargeted.SchoolID = util.Some(existing.ID)
		retargeted.UpdatedAt = now
		if err := q.UpdateUser(ctx, retargeted); err != nil {
			return fmt.Errorf("failed to retarget user %s: %w", responsible.ID, err)
		}

		result = RegisterResult{
			School:      FromDB(existing),
			Responsible: user.FromDB(retargeted),
			Merged:      true,
		}

		return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: responsible.ID,
			Type:    audit.AuditLogEventTypeSchoolMerged,
			Data: map[string]any{
				"school_id": existing.ID,
				"inep":      existing.INEP,
				"event_id":  params.EventID,
				"event_ids": existing.EventIDs,
			},
		})
	})

	return result, err
}

func (m *Manager) GetSchool(ctx context.Context, id uuid.UUID) (School, error) {
	record, err := m.store.GetSchoolByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return School{}, apperrors.NotFound("school %s not found", id)
		}
		return School{}, fmt.Errorf("failed to get school %s: %w", id, err)
	}
	return FromDB(record), nil
}

func (m *Manager) GetSchoolByINEP(ctx context.Context, inep string) (School, error) {
	record, err := m.store.GetSchoolByINEP(ctx, strings.TrimSpace(inep), false)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return School{}, apperrors.NotFound("school with INEP %s not found", inep)
		}
		return School{}, fmt.Errorf("failed to get school by INEP: %w", err)
	}
	return FromDB(record), nil
}

type ListSchoolsParams struct {
	EventID util.Optional[uuid.UUID]
}

func (m *Manager) ListSchools(ctx context.Context, params ListSchoolsParams) ([]School, error) {
	records, err := m.store.ListSchools(ctx, database.ListSchoolsParams{EventID: params.EventID})
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}

	schools := make([]School, 0, len(records))
	for _, r := range records {
		schools = append(schools, FromDB(r))
	}
	return schools, nil
}

type LinkEventParams struct {
	ActorID  uuid.UUID
	SchoolID uuid.UUID
	EventID  uuid.UUID
}

// LinkEvent adds an existing school to an event on the producer side.
func (m *Manager) LinkEvent(ctx context.Context, params LinkEventParams) (School, error) {
	var linked database.School

	err := m.store.InTx(ctx, func(q database.Queries) error {
		if _, err := m.events.CheckEditable(ctx, q, params.EventID); err != nil {
			return err
		}

		record, err := q.GetSchoolByID(ctx, params.SchoolID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperrors.NotFound("school %s not found", params.SchoolID)
			}
			return fmt.Errorf("failed to get school %s: %w", params.SchoolID, err)
		}
		if FromDB(record).LinkedTo(params.EventID) {
			return errAlreadyRegistered(record.INEP, params.EventID)
		}

		record.EventIDs = mergeEventIDs(record.EventIDs, record.LegacyEventID, params.EventID)
		record.LegacyEventID = util.None[uuid.UUID]()
		record.UpdatedAt = time.Now().UTC()
		if err := q.UpdateSchool(ctx, record); err != nil {
			return fmt.Errorf("failed to link school %s: %w", params.SchoolID, err)
		}
		linked = record

		return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeSchoolLinked,
			Data: map[string]any{
				"school_id": params.SchoolID,
				"event_id":  params.EventID,
			},
		})
	})
	if err != nil {
		return School{}, err
	}

	return FromDB(linked), nil
}

// mergeEventIDs returns the union of ids, the legacy id and extra, keeping
// first-seen order.
func mergeEventIDs(ids []uuid.UUID, legacy util.Optional[uuid.UUID], extra ...uuid.UUID) []uuid.UUID {
	merged := make([]uuid.UUID, 0, len(ids)+len(extra)+1)
	add := func(id uuid.UUID) {
		if id != uuid.Nil && !slices.Contains(merged, id) {
			merged = append(merged, id)
		}
	}
	for _, id := range ids {
		add(id)
	}
	if legacy.IsSet {
		add(legacy.Val)
	}
	for _, id := range extra {
		add(id)
	}
	return merged
}
