package modality

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/audit"
	"jogosescolares/internal/database/memory"
	"jogosescolares/internal/validator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) Manager {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	auditor := audit.NewAuditor(logger)
	return NewManager(logger, memory.New(), &auditor, validator.New())
}

func TestCreateModality(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		params  CreateModalityParams
		wantErr bool
	}{
		{name: "valid", params: CreateModalityParams{Name: "Vôlei", Type: "Coletiva", Gender: "MISTO", MinAge: 12, MaxAge: 14}},
		{name: "single age band", params: CreateModalityParams{Name: "Xadrez", Type: "individual", Gender: "misto", MinAge: 11, MaxAge: 11}},
		{name: "inverted band", params: CreateModalityParams{Name: "Xadrez", Type: "individual", Gender: "misto", MinAge: 14, MaxAge: 12}, wantErr: true},
		{name: "unknown type", params: CreateModalityParams{Name: "Xadrez", Type: "dupla", Gender: "misto", MinAge: 10, MaxAge: 12}, wantErr: true},
		{name: "unknown gender", params: CreateModalityParams{Name: "Xadrez", Type: "individual", Gender: "outro", MinAge: 10, MaxAge: 12}, wantErr: true},
		{name: "missing name", params: CreateModalityParams{Type: "individual", Gender: "misto", MinAge: 10, MaxAge: 12}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			created, err := m.CreateModality(ctx, tt.params)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)

			got, err := m.GetModality(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created, got)
		})
	}
}

func TestGetModality_NotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.GetModality(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

const catalog = `
modalities:
  - name: Atletismo
    type: individual
    gender: misto
    min_age: 10
    max_age: 12
  - name: Atletismo
    type: individual
    gender: misto
    min_age: 13
    max_age: 14
  - name: Xadrez
    type: individual
    gender: misto
    min_age: 10
    max_age: 17
    event_category: Sub-17
`

func TestImportCatalog(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	result, err := m.ImportCatalog(ctx, uuid.New(), strings.NewReader(catalog))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 3}, result)

	modalities, err := m.ListModalities(ctx)
	require.NoError(t, err)
	require.Len(t, modalities, 3)
	assert.Equal(t, "Atletismo", modalities[0].Name)
	assert.Equal(t, "Sub-17", modalities[2].EventCategory.Val)

	result, err = m.ImportCatalog(ctx, uuid.New(), strings.NewReader(catalog))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 3}, result)
}

func TestImportCatalog_Invalid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed yaml", doc: "modalities: ["},
		{name: "unknown field", doc: "modalities:\n  - name: X\n    sport: y\n"},
		{name: "invalid entry", doc: "modalities:\n  - name: X\n    type: dupla\n    gender: misto\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			_, err := m.ImportCatalog(ctx, uuid.New(), strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))

			modalities, err := m.ListModalities(ctx)
			require.NoError(t, err)
			assert.Empty(t, modalities)
		})
	}
}
