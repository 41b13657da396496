package modality

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
	"jogosescolares/internal/util"
	"jogosescolares/internal/validator"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	TypeIndividual = "individual"
	TypeCollective = "coletiva"
)

type Manager struct {
	logger    *slog.Logger
	store     database.Store
	auditor   *audit.Auditor
	validator *validator.Validator
}

func NewManager(logger *slog.Logger, store database.Store, auditor *audit.Auditor, validator *validator.Validator) Manager {
	return Manager{logger: logger, store: store, auditor: auditor, validator: validator}
}

type CreateModalityParams struct {
	ActorID       uuid.UUID `yaml:"-"`
	Name          string    `yaml:"name" validate:"required,max=120"`
	Type          string    `yaml:"type" validate:"required,oneof=individual coletiva"`
	Gender        string    `yaml:"gender" validate:"required,oneof=masculino feminino misto"`
	MinAge        int       `yaml:"min_age" validate:"gte=0,lte=120"`
	MaxAge        int       `yaml:"max_age" validate:"gtefield=MinAge,lte=120"`
	EventCategory string    `yaml:"event_category" validate:"omitempty,max=120"`
}

func (p *CreateModalityParams) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	p.EventCategory = strings.TrimSpace(p.EventCategory)
}

func (p CreateModalityParams) record(now time.Time) database.Modality {
	m := database.Modality{
		ID:        uuid.New(),
		Name:      p.Name,
		Type:      p.Type,
		Gender:    p.Gender,
		MinAge:    p.MinAge,
		MaxAge:    p.MaxAge,
		CreatedAt: now,
	}
	if p.EventCategory != "" {
		m.EventCategory = util.Some(p.EventCategory)
	}
	return m
}

func (m *Manager) CreateModality(ctx context.Context, params CreateModalityParams) (eligibility.Modality, error) {
	params.normalize()
	if err := m.validator.Validate(params); err != nil {
		return eligibility.Modality{}, err
	}

	record := params.record(time.Now().UTC())
	err := m.store.InTx(ctx, func(q database.Queries) error {
		return m.create(ctx, q, params.ActorID, record)
	})
	if err != nil {
		return eligibility.Modality{}, err
	}
	return eligibility.FromDB(record), nil
}

func (m *Manager) create(ctx context.Context, q database.Queries, actorID uuid.UUID, record database.Modality) error {
	if err := q.CreateModality(ctx, record); err != nil {
		return fmt.Errorf("failed to create modality: %w", err)
	}
	return m.auditor.LogEvent(ctx, q, audit.LogEventParam{
		ActorID: actorID,
		Type:    audit.AuditLogEventTypeModalityCreate,
		Data: map[string]any{
			"modality_id": record.ID,
			"name":        record.Name,
			"type":        record.Type,
		},
	})
}

func (m *Manager) GetModality(ctx context.Context, id uuid.UUID) (eligibility.Modality, error) {
	record, err := m.store.GetModalityByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return eligibility.Modality{}, apperrors.NotFound("modality %s not found", id)
		}
		return eligibility.Modality{}, fmt.Errorf("failed to get modality %s: %w", id, err)
	}
	return eligibility.FromDB(record), nil
}

func (m *Manager) ListModalities(ctx context.Context) ([]eligibility.Modality, error) {
	records, err := m.store.ListModalities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list modalities: %w", err)
	}

	modalities := make([]eligibility.Modality, 0, len(records))
	for _, r := range records {
		modalities = append(modalities, eligibility.FromDB(r))
	}
	return modalities, nil
}

// Catalog is the YAML document ImportCatalog reads.
type Catalog struct {
	Modalities []CreateModalityParams `yaml:"modalities"`
}

type ImportResult struct {
	Created int
	Skipped int
}

// ImportCatalog loads modalities from YAML in one transaction. Entries that
// match an existing modality on every field are skipped, so a catalog can be
// imported repeatedly.
func (m *Manager) ImportCatalog(ctx context.Context, actorID uuid.UUID, r io.Reader) (ImportResult, error) {
	var catalog Catalog
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&catalog); err != nil && !errors.Is(err, io.EOF) {
		return ImportResult{}, apperrors.Wrap(apperrors.KindValidation, "invalid modality catalog", err)
	}

	for i := range catalog.Modalities {
		catalog.Modalities[i].normalize()
		if err := m.validator.Validate(catalog.Modalities[i]); err != nil {
			return ImportResult{}, fmt.Errorf("catalog entry %d: %w", i+1, err)
		}
	}

	var result ImportResult
	err := m.store.InTx(ctx, func(q database.Queries) error {
		existing, err := q.ListModalities(ctx)
		if err != nil {
			return fmt.Errorf("failed to list modalities: %w", err)
		}
		seen := make(map[string]bool, len(existing))
		for _, e := range existing {
			seen[catalogKey(e)] = true
		}

		now := time.Now().UTC()
		for i, params := range catalog.Modalities {
			record := params.record(now.Add(time.Duration(i) * time.Microsecond))
			if seen[catalogKey(record)] {
				result.Skipped++
				continue
			}
			seen[catalogKey(record)] = true
			if err := m.create(ctx, q, actorID, record); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	m.logger.InfoContext(ctx, "Modality catalog imported", "created", result.Created, "skipped", result.Skipped)
	return result, nil
}

func catalogKey(m database.Modality) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%s", m.Name, m.Type, m.Gender, m.MinAge, m.MaxAge, m.EventCategory.UnwrapOr(""))
}
