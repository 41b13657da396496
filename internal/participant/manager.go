package participant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/audit"
	"jogosescolares/internal/database"
	"jogosescolares/internal/eligibility"
	"jogosescolares/internal/storage"
	"jogosescolares/internal/util"
	"jogosescolares/internal/validator"

	"github.com/google/uuid"
)

const (
	KindAthlete    = eligibility.KindAthlete
	KindTechnician = eligibility.KindTechnician
)

type Document struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	StorageKey  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type Participant struct {
	ID          uuid.UUID             `json:"id"`
	Kind        eligibility.Kind      `json:"kind"`
	SchoolID    uuid.UUID             `json:"school_id"`
	Name        string                `json:"name"`
	Sex         string                `json:"sex"`
	DateOfBirth time.Time             `json:"date_of_birth"`
	CPF         string                `json:"cpf"`
	RG          string                `json:"rg"`
	CREF        util.Optional[string] `json:"cref"`
	Documents   []Document            `json:"documents,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Age is the participant's age in whole years at now.
func (p Participant) Age(now time.Time) int {
	return eligibility.Age(p.DateOfBirth, now)
}

func fromDB(p database.Participant) Participant {
	return Participant{
		ID:          p.ID,
		Kind:        eligibility.Kind(p.Kind),
		SchoolID:    p.SchoolID,
		Name:        p.Name,
		Sex:         p.Sex,
		DateOfBirth: p.DateOfBirth,
		CPF:         p.CPF,
		RG:          p.RG,
		CREF:        p.CREF,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type Manager struct {
	logger    *slog.Logger
	store     database.Store
	auditor   *audit.Auditor
	documents storage.Storage
	validator *validator.Validator
}

func NewManager(logger *slog.Logger, store database.Store, auditor *audit.Auditor, documents storage.Storage, validator *validator.Validator) Manager {
	return Manager{logger: logger, store: store, auditor: auditor, documents: documents, validator: validator}
}

type CreateParticipantParams struct {
	ActorID     uuid.UUID
	Kind        eligibility.Kind `validate:"required,oneof=athlete technician"`
	SchoolID    uuid.UUID
	Name        string    `validate:"required,max=200"`
	Sex         string    `validate:"required,oneof=Masculino Feminino"`
	DateOfBirth time.Time `validate:"required"`
	CPF         string    `validate:"omitempty,cpf"`
	RG          string    `validate:"omitempty,max=20"`
	CREF        string    `validate:"omitempty,cref"`
}

func (m *Manager) CreateParticipant(ctx context.Context, params CreateParticipantParams) (Participant, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.CREF = strings.ToUpper(strings.TrimSpace(params.CREF))

	if err := m.validator.Validate(params); err != nil {
		return Participant{}, err
	}
	if params.DateOfBirth.After(time.Now()) {
		return Participant{}, apperrors.Validation("date of birth is in the future")
	}
	if params.Kind == KindAthlete && params.CREF != "" {
		return Participant{}, apperrors.Validation("only technicians carry a CREF registration")
	}

	now := time.Now().UTC()
	record := database.Participant{
		ID:          uuid.New(),
		Kind:        string(params.Kind),
		SchoolID:    params.SchoolID,
		Name:        params.Name,
		Sex:         params.Sex,
		DateOfBirth: params.DateOfBirth,
		CPF:         params.CPF,
		RG:          params.RG,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if params.CREF != "" {
		record.CREF = util.Some(params.CREF)
	}

	err := m.store.InTx(ctx, func(q database.Queries) error {
		if _, err := q.GetSchoolByID(ctx, params.SchoolID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperrors.NotFound("school %s not found", params.SchoolID)
			}
			return fmt.Errorf("failed to get school %s: %w", params.SchoolID, err)
		}

		if err := q.CreateParticipant(ctx, record); err != nil {
			return fmt.Errorf("failed to create participant: %w", err)
		}

		return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeParticipantCreate,
			Data: map[string]any{
				"participant_id": record.ID,
				"school_id":      record.SchoolID,
				"kind":           record.Kind,
			},
		})
	})
	if err != nil {
		return Participant{}, err
	}

	return fromDB(record), nil
}

// GetParticipant returns the participant with its documents.
func (m *Manager) GetParticipant(ctx context.Context, id uuid.UUID) (Participant, error) {
	record, err := m.store.GetParticipantByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return Participant{}, apperrors.NotFound("participant %s not found", id)
		}
		return Participant{}, fmt.Errorf("failed to get participant %s: %w", id, err)
	}

	documents, err := m.store.ListParticipantDocuments(ctx, id)
	if err != nil {
		return Participant{}, fmt.Errorf("failed to list documents of participant %s: %w", id, err)
	}

	p := fromDB(record)
	for _, d := range documents {
		p.Documents = append(p.Documents, Document{
			ID:          d.ID,
			Name:        d.Name,
			ContentType: d.ContentType,
			StorageKey:  d.StorageKey,
			CreatedAt:   d.CreatedAt,
		})
	}
	return p, nil
}

type ListParticipantsParams struct {
	SchoolID util.Optional[uuid.UUID]
}

func (m *Manager) ListParticipants(ctx context.Context, params ListParticipantsParams) ([]Participant, error) {
	records, err := m.store.ListParticipants(ctx, database.ListParticipantsParams{SchoolID: params.SchoolID})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	participants := make([]Participant, 0, len(records))
	for _, r := range records {
		participants = append(participants, fromDB(r))
	}
	return participants, nil
}

type AttachDocumentParams struct {
	ActorID       uuid.UUID
	ParticipantID uuid.UUID
	Name          string
	ContentType   string
	Content       io.Reader
}

// AttachDocument stores the blob first and then records it. A failed
// record write removes the stored blob again.
func (m *Manager) AttachDocument(ctx context.Context, params AttachDocumentParams) (Document, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return Document{}, apperrors.Validation("document name is required")
	}
	if params.ContentType == "" {
		params.ContentType = "application/octet-stream"
	}

	if _, err := m.store.GetParticipantByID(ctx, params.ParticipantID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return Document{}, apperrors.NotFound("participant %s not found", params.ParticipantID)
		}
		return Document{}, fmt.Errorf("failed to get participant %s: %w", params.ParticipantID, err)
	}

	key, err := m.documents.Store(ctx, params.ParticipantID, name, params.Content, params.ContentType)
	if err != nil {
		return Document{}, fmt.Errorf("failed to store document: %w", err)
	}

	record := database.ParticipantDocument{
		ID:            uuid.New(),
		ParticipantID: params.ParticipantID,
		Name:          name,
		ContentType:   params.ContentType,
		StorageKey:    key,
		CreatedAt:     time.Now().UTC(),
	}

	err = m.store.InTx(ctx, func(q database.Queries) error {
		if err := q.CreateParticipantDocument(ctx, record); err != nil {
			return fmt.Errorf("failed to create participant document: %w", err)
		}
		return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeParticipantDocument,
			Data: map[string]any{
				"participant_id": params.ParticipantID,
				"document_id":    record.ID,
				"name":           name,
			},
		})
	})
	if err != nil {
		if delErr := m.documents.Delete(ctx, key); delErr != nil {
			m.logger.ErrorContext(ctx, "Failed to remove orphaned document", "key", key, "error", delErr)
		}
		return Document{}, err
	}

	return Document{
		ID:          record.ID,
		Name:        record.Name,
		ContentType: record.ContentType,
		StorageKey:  record.StorageKey,
		CreatedAt:   record.CreatedAt,
	}, nil
}

// OpenDocument returns the document's content. Callers close it.
func (m *Manager) OpenDocument(ctx context.Context, participantID, documentID uuid.UUID) (Document, io.ReadCloser, error) {
	p, err := m.GetParticipant(ctx, participantID)
	if err != nil {
		return Document{}, nil, err
	}

	for _, d := range p.Documents {
		if d.ID != documentID {
			continue
		}
		content, err := m.documents.Retrieve(ctx, d.StorageKey)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return Document{}, nil, apperrors.NotFound("document %s content is missing", documentID)
			}
			return Document{}, nil, fmt.Errorf("failed to retrieve document %s: %w", documentID, err)
		}
		return d, content, nil
	}
	return Document{}, nil, apperrors.NotFound("document %s not found", documentID)
}
