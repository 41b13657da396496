package inscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/audit"
	"jogosescolares/internal/database"
	"jogosescolares/internal/eligibility"
	"jogosescolares/internal/telemetry"
	"jogosescolares/internal/util"

	"github.com/google/uuid"
)

type Inscription struct {
	ID         uuid.UUID `json:"id"`
	AthleteID  uuid.UUID `json:"athlete_id"`
	EventID    uuid.UUID `json:"event_id"`
	ModalityID uuid.UUID `json:"modality_id"`
	SchoolID   uuid.UUID `json:"school_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func fromDB(i database.Inscription) Inscription {
	return Inscription{
		ID:         i.ID,
		AthleteID:  i.AthleteID,
		EventID:    i.EventID,
		ModalityID: i.ModalityID,
		SchoolID:   i.SchoolID,
		CreatedAt:  i.CreatedAt,
	}
}

type Manager struct {
	logger    *slog.Logger
	store     database.Store
	auditor   *audit.Auditor
	resolver  *eligibility.Resolver
	telemetry telemetry.Telemetry
}

func NewManager(logger *slog.Logger, store database.Store, auditor *audit.Auditor, resolver *eligibility.Resolver, telemetry telemetry.Telemetry) Manager {
	return Manager{logger: logger, store: store, auditor: auditor, resolver: resolver, telemetry: telemetry}
}

type CreateParams struct {
	ActorID    uuid.UUID
	AthleteID  uuid.UUID
	EventID    uuid.UUID
	ModalityID uuid.UUID
	SchoolID   uuid.UUID
}

// Create inserts an inscription. A second inscription of the same
// participant in the same event and modality is rejected; the store's
// unique index decides between concurrent callers.
func (m *Manager) Create(ctx context.Context, params CreateParams) (Inscription, error) {
	if params.AthleteID == uuid.Nil || params.EventID == uuid.Nil || params.ModalityID == uuid.Nil {
		return Inscription{}, apperrors.Validation("participant, event and modality are required")
	}

	record := database.Inscription{
		ID:         uuid.New(),
		AthleteID:  params.AthleteID,
		EventID:    params.EventID,
		ModalityID: params.ModalityID,
		SchoolID:   params.SchoolID,
		CreatedAt:  time.Now().UTC(),
	}

	err := m.store.InTx(ctx, func(q database.Queries) error {
		if err := q.CreateInscription(ctx, record); err != nil {
			if errors.Is(err, database.ErrConflict) {
				return apperrors.Validation("participant is already inscribed in this modality for this event").
					WithMetadata("athlete_id", params.AthleteID.String()).
					WithMetadata("event_id", params.EventID.String()).
					WithMetadata("modality_id", params.ModalityID.String())
			}
			return fmt.Errorf("failed to create inscription: %w", err)
		}

		return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeInscriptionCreate,
			Data: map[string]any{
				"inscription_id": record.ID,
				"athlete_id":     record.AthleteID,
				"event_id":       record.EventID,
				"modality_id":    record.ModalityID,
			},
		})
	})
	m.telemetry.RecordInscription(ctx, err == nil)
	if err != nil {
		return Inscription{}, err
	}

	m.logger.InfoContext(ctx, "Inscription created",
		"inscription_id", record.ID, "athlete_id", record.AthleteID, "event_id", record.EventID)
	return fromDB(record), nil
}

type EnrollParams struct {
	ActorID       uuid.UUID
	ParticipantID uuid.UUID
	EventID       uuid.UUID
	ModalityID    uuid.UUID
}

// Enroll inscribes a participant after checking the modality is among the
// categories the participant is eligible for. The school is taken from the
// participant record.
func (m *Manager) Enroll(ctx context.Context, params EnrollParams) (Inscription, error) {
	funnel, err := m.resolver.Resolve(ctx, params.ParticipantID, params.EventID)
	if err != nil {
		return Inscription{}, err
	}
	if !funnel.Allows(params.ModalityID) {
		return Inscription{}, apperrors.Validation("participant is not eligible for modality %s", params.ModalityID).
			WithMetadata("modality_id", params.ModalityID.String())
	}

	participant, err := m.store.GetParticipantByID(ctx, params.ParticipantID)
	if err != nil {
		return Inscription{}, fmt.Errorf("failed to get participant %s: %w", params.ParticipantID, err)
	}

	return m.Create(ctx, CreateParams{
		ActorID:    params.ActorID,
		AthleteID:  params.ParticipantID,
		EventID:    params.EventID,
		ModalityID: params.ModalityID,
		SchoolID:   participant.SchoolID,
	})
}

type DeleteParams struct {
	ActorID uuid.UUID
	ID      uuid.UUID
}

func (m *Manager) Delete(ctx context.Context, params DeleteParams) error {
	return m.store.InTx(ctx, func(q database.Queries) error {
		if err := q.DeleteInscriptionByID(ctx, params.ID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperrors.NotFound("inscription %s not found", params.ID)
			}
			return fmt.Errorf("failed to delete inscription %s: %w", params.ID, err)
		}

		return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeInscriptionDelete,
			Data:    map[string]any{"inscription_id": params.ID},
		})
	})
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (Inscription, error) {
	record, err := m.store.GetInscriptionByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return Inscription{}, apperrors.NotFound("inscription %s not found", id)
		}
		return Inscription{}, fmt.Errorf("failed to get inscription %s: %w", id, err)
	}
	return fromDB(record), nil
}

type ListParams struct {
	AthleteID util.Optional[uuid.UUID]
	EventID   util.Optional[uuid.UUID]
}

func (m *Manager) List(ctx context.Context, params ListParams) ([]Inscription, error) {
	records, err := m.store.ListInscriptions(ctx, database.ListInscriptionsParams{
		AthleteID: params.AthleteID,
		EventID:   params.EventID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list inscriptions: %w", err)
	}

	inscriptions := make([]Inscription, 0, len(records))
	for _, r := range records {
		inscriptions = append(inscriptions, fromDB(r))
	}
	return inscriptions, nil
}
