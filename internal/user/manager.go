package user

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
	"jogosescolares/internal/util"
	"jogosescolares/internal/validator"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleProducer    Role = "producer"
	RoleSchoolAdmin Role = "school_admin"
	RoleParticipant Role = "participant"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleProducer, RoleSchoolAdmin, RoleParticipant:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role may hold event team positions.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleProducer
}

type User struct {
	ID        uuid.UUID                `json:"id"`
	Role      Role                     `json:"role"`
	SchoolID  util.Optional[uuid.UUID] `json:"school_id"`
	Name      string                   `json:"name"`
	Email     string                   `json:"email"`
	Phone     string                   `json:"phone"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

func FromDB(u database.User) User {
	return User{
		ID:        u.ID,
		Role:      Role(u.Role),
		SchoolID:  u.SchoolID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type Manager struct {
	logger    *slog.Logger
	store     database.Store
	auditor   *audit.Auditor
	validator *validator.Validator
}

func NewManager(logger *slog.Logger, store database.Store, auditor *audit.Auditor, validator *validator.Validator) Manager {
	return Manager{logger: logger, store: store, auditor: auditor, validator: validator}
}

type CreateUserParams struct {
	ID       uuid.UUID
	Role     Role   `validate:"required"`
	Name     string `validate:"required,max=200"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"omitempty,max=30"`
	CPF      string `validate:"omitempty,cpf"`
	Password string `validate:"required,password_strength"`
	SchoolID util.Optional[uuid.UUID]
}

func (m *Manager) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	var created User
	err := m.store.InTx(ctx, func(q database.Queries) error {
		var err error
		created, err = m.Create(ctx, q, params)
		return err
	})
	return created, err
}

// Create inserts a user through q so callers can bundle it with other writes.
// A zero params.ID gets a fresh id.
func (m *Manager) Create(ctx context.Context, q database.Queries, params CreateUserParams) (User, error) {
	params.Email = NormalizeEmail(params.Email)
	params.Name = strings.TrimSpace(params.Name)

	if err := m.validator.Validate(params); err != nil {
		return User{}, err
	}
	if !params.Role.IsValid() {
		return User{}, apperrors.Validation("invalid role %q", params.Role)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}

	now := time.Now().UTC()
	record := database.User{
		ID:           params.ID,
		Role:         string(params.Role),
		SchoolID:     params.SchoolID,
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
		CPF:          params.CPF,
		PasswordHash: string(passwordHash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := q.CreateUser(ctx, record); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return User{}, apperrors.Validation("email %s is already in use", params.Email).
				WithMetadata("email", params.Email)
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}

	if err := m.auditor.LogEvent(ctx, q, audit.LogEventParam{
		ActorID: record.ID,
		Type:    audit.AuditLogEventTypeUserCreate,
		Data: map[string]any{
			"user_id": record.ID,
			"role":    record.Role,
		},
	}); err != nil {
		return User{}, err
	}

	return FromDB(record), nil
}

func (m *Manager) GetUser(ctx context.Context, userID uuid.UUID) (User, error) {
	record, err := m.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return User{}, apperrors.NotFound("user %s not found", userID)
		}
		return User{}, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return FromDB(record), nil
}

// Authenticate checks a password login. Unknown emails and wrong passwords
// both yield ErrInvalidCredentials.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = NormalizeEmail(email)

	record, err := m.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if record.PasswordHash == "" {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	if err := m.auditor.LogEvent(ctx, m.store, audit.LogEventParam{
		ActorID: record.ID,
		Type:    audit.AuditLogEventTypeUserLogin,
		Data:    map[string]any{"user_id": record.ID},
	}); err != nil {
		return User{}, err
	}

	m.logger.InfoContext(ctx, "User authenticated", "user_id", record.ID)
	return FromDB(record), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
