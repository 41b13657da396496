package user

import (
	"context"
	"log/slog"
	"testing"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/audit"
	"jogosescolares/internal/database/memory"
	"jogosescolares/internal/validator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (Manager, *memory.Store) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	store := memory.New()
	auditor := audit.NewAuditor(logger)
	return NewManager(logger, store, &auditor, validator.New()), store
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		params    CreateUserParams
		wantError bool
	}{
		{
			name:   "valid producer",
			params: CreateUserParams{Role: RoleProducer, Name: "Ana", Email: " Ana@Example.com ", Password: "senha1234"},
		},
		{
			name:      "missing name",
			params:    CreateUserParams{Role: RoleProducer, Email: "a@example.com", Password: "senha1234"},
			wantError: true,
		},
		{
			name:      "weak password",
			params:    CreateUserParams{Role: RoleProducer, Name: "Ana", Email: "a@example.com", Password: "short"},
			wantError: true,
		},
		{
			name:      "unknown role",
			params:    CreateUserParams{Role: "coach", Name: "Ana", Email: "a@example.com", Password: "senha1234"},
			wantError: true,
		},
		{
			name:      "invalid cpf",
			params:    CreateUserParams{Role: RoleProducer, Name: "Ana", Email: "a@example.com", Password: "senha1234", CPF: "123"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t)
			u, err := m.CreateUser(ctx, tt.params)
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, u.ID)
			assert.Equal(t, "ana@example.com", u.Email)
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	_, err := m.CreateUser(ctx, CreateUserParams{Role: RoleProducer, Name: "Ana", Email: "ana@example.com", Password: "senha1234"})
	require.NoError(t, err)

	_, err = m.CreateUser(ctx, CreateUserParams{Role: RoleAdmin, Name: "Outra", Email: "ANA@example.com", Password: "senha1234"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	created, err := m.CreateUser(ctx, CreateUserParams{Role: RoleProducer, Name: "Ana", Email: "ana@example.com", Password: "senha1234"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "success", email: "ANA@example.com", password: "senha1234"},
		{name: "wrong password", email: "ana@example.com", password: "senha9999", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "bia@example.com", password: "senha1234", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := m.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, created.ID, u.ID)
		})
	}
}

func TestGetUser_NotFound(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.GetUser(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRole_IsStaff(t *testing.T) {
	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleProducer.IsStaff())
	assert.False(t, RoleSchoolAdmin.IsStaff())
	assert.False(t, RoleParticipant.IsStaff())
}
