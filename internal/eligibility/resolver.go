package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/database"

	"github.com/google/uuid"
)

// Resolver loads a participant, the catalog and the event association from
// the store and builds a fresh funnel on every call.
type Resolver struct {
	logger *slog.Logger
	store  database.Queries
	now    func() time.Time
}

func NewResolver(logger *slog.Logger, store database.Queries, now func() time.Time) Resolver {
	if now == nil {
		now = time.Now
	}
	return Resolver{logger: logger, store: store, now: now}
}

func (r *Resolver) Resolve(ctx context.Context, participantID, eventID uuid.UUID) (Funnel, error) {
	participant, err := r.store.GetParticipantByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return Funnel{}, apperrors.NotFound("participant %s not found", participantID)
		}
		return Funnel{}, fmt.Errorf("failed to get participant %s: %w", participantID, err)
	}

	if _, err := r.store.GetEventByID(ctx, eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return Funnel{}, apperrors.NotFound("event %s not found", eventID)
		}
		return Funnel{}, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}

	records, err := r.store.ListModalities(ctx)
	if err != nil {
		return Funnel{}, fmt.Errorf("failed to list modalities: %w", err)
	}
	catalog := make([]Modality, 0, len(records))
	for _, m := range records {
		catalog = append(catalog, FromDB(m))
	}

	associated, err := r.store.ListEventModalityIDs(ctx, eventID)
	if err != nil {
		return Funnel{}, fmt.Errorf("failed to list event modalities: %w", err)
	}

	eligible := Filter(catalog, associated, Participant{
		Kind:        Kind(participant.Kind),
		Sex:         participant.Sex,
		DateOfBirth: participant.DateOfBirth,
	}, r.now())

	r.logger.DebugContext(ctx, "Eligibility resolved",
		"participant_id", participantID,
		"event_id", eventID,
		"catalog", len(catalog),
		"eligible", len(eligible))

	return NewFunnel(eligible), nil
}

func FromDB(m database.Modality) Modality {
	return Modality{
		ID:            m.ID,
		Name:          m.Name,
		Type:          m.Type,
		Gender:        m.Gender,
		MinAge:        m.MinAge,
		MaxAge:        m.MaxAge,
		EventCategory: m.EventCategory,
	}
}
