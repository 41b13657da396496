package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"jogosescolares/internal/util"

	"github.com/google/uuid"
)

type OrderBy int

const (
	OrderByASC OrderBy = iota
	OrderByDESC
)

var (
	// ErrNotFound is returned by single-row lookups that match nothing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("unique constraint violated")
)

type Event struct {
	ID                          uuid.UUID
	OwnerID                     uuid.UUID
	Name                        string
	Location                    string
	StartDate                   time.Time
	EndDate                     time.Time
	RegistrationIndividualStart util.Optional[time.Time]
	RegistrationIndividualEnd   util.Optional[time.Time]
	RegistrationCollectiveStart util.Optional[time.Time]
	RegistrationCollectiveEnd   util.Optional[time.Time]
	AdminStatus                 string
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

type School struct {
	ID            uuid.UUID
	INEP          string
	Name          string
	DirectorName  string
	Address       string
	City          string
	State         string
	Phone         string
	Email         string
	ResponsibleID uuid.UUID
	EventIDs      []uuid.UUID
	LegacyEventID util.Optional[uuid.UUID]
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type User struct {
	ID           uuid.UUID
	Role         string
	SchoolID     util.Optional[uuid.UUID]
	Name         string
	Email        string
	Phone        string
	CPF          string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Permission struct {
	UserID    uuid.UUID
	EventID   uuid.UUID
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Modality struct {
	ID            uuid.UUID
	Name          string
	Type          string
	Gender        string
	MinAge        int
	MaxAge        int
	EventCategory util.Optional[string]
	CreatedAt     time.Time
}

type Participant struct {
	ID          uuid.UUID
	Kind        string
	SchoolID    uuid.UUID
	Name        string
	Sex         string
	DateOfBirth time.Time
	CPF         string
	RG          string
	CREF        util.Optional[string]
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ParticipantDocument struct {
	ID            uuid.UUID
	ParticipantID uuid.UUID
	Name          string
	ContentType   string
	StorageKey    string
	CreatedAt     time.Time
}

type Inscription struct {
	ID         uuid.UUID
	AthleteID  uuid.UUID
	EventID    uuid.UUID
	ModalityID uuid.UUID
	SchoolID   uuid.UUID
	CreatedAt  time.Time
}

type AuditLogEvent struct {
	ID        uuid.UUID
	ActorID   uuid.UUID
	Type      string
	Data      json.RawMessage
	CreatedAt time.Time
}

type ListEventsParams struct {
	MemberUserID util.Optional[uuid.UUID]
}

type ListSchoolsParams struct {
	EventID util.Optional[uuid.UUID]
}

type ListUsersParams struct {
	Roles  []string
	Search util.Optional[string]
	Limit  int
}

type ListPermissionsParams struct {
	EventID util.Optional[uuid.UUID]
	UserID  util.Optional[uuid.UUID]
}

type ListParticipantsParams struct {
	SchoolID util.Optional[uuid.UUID]
}

type ListInscriptionsParams struct {
	AthleteID  util.Optional[uuid.UUID]
	EventID    util.Optional[uuid.UUID]
	ModalityID util.Optional[uuid.UUID]
}

type CreateAuditLogEventParams struct {
	ActorID   uuid.UUID
	EventType string
	EventData json.RawMessage
}

type ListAuditLogEventsParams struct {
	Type  util.Optional[string]
	Order OrderBy
}

// Queries is the set of indexed reads and writes the managers need.
// Implementations enforce the natural keys: school INEP, user email,
// permission (user, event) and inscription (athlete, event, modality),
// returning ErrConflict on violation.
type Queries interface {
	Ping(ctx context.Context) error

	CreateEvent(ctx context.Context, event Event) error
	GetEventByID(ctx context.Context, id uuid.UUID) (Event, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	SetEventModalities(ctx context.Context, eventID uuid.UUID, modalityIDs []uuid.UUID) error
	ListEventModalityIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error)

	CreateModality(ctx context.Context, modality Modality) error
	GetModalityByID(ctx context.Context, id uuid.UUID) (Modality, error)
	ListModalities(ctx context.Context) ([]Modality, error)

	CreateSchool(ctx context.Context, school School) error
	UpdateSchool(ctx context.Context, school School) error
	GetSchoolByID(ctx context.Context, id uuid.UUID) (School, error)
	// GetSchoolByINEP locks the row for the rest of the transaction when forUpdate is set.
	GetSchoolByINEP(ctx context.Context, inep string, forUpdate bool) (School, error)
	ListSchools(ctx context.Context, params ListSchoolsParams) ([]School, error)

	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, params ListUsersParams) ([]User, error)

	GetPermission(ctx context.Context, userID, eventID uuid.UUID) (Permission, error)
	UpsertPermission(ctx context.Context, permission Permission) error
	DeletePermission(ctx context.Context, userID, eventID uuid.UUID) error
	ListPermissions(ctx context.Context, params ListPermissionsParams) ([]Permission, error)

	CreateParticipant(ctx context.Context, participant Participant) error
	GetParticipantByID(ctx context.Context, id uuid.UUID) (Participant, error)
	ListParticipants(ctx context.Context, params ListParticipantsParams) ([]Participant, error)
	CreateParticipantDocument(ctx context.Context, document ParticipantDocument) error
	ListParticipantDocuments(ctx context.Context, participantID uuid.UUID) ([]ParticipantDocument, error)

	CreateInscription(ctx context.Context, inscription Inscription) error
	GetInscriptionByID(ctx context.Context, id uuid.UUID) (Inscription, error)
	DeleteInscriptionByID(ctx context.Context, id uuid.UUID) error
	ListInscriptions(ctx context.Context, params ListInscriptionsParams) ([]Inscription, error)

	CreateAuditLogEvent(ctx context.Context, params CreateAuditLogEventParams) (AuditLogEvent, error)
	ListAuditLogEvents(ctx context.Context, params ListAuditLogEventsParams) ([]AuditLogEvent, error)
}

// Store is the persistence surface. InTx runs fn atomically: either every
// write made through the Queries passed to fn is committed or none is.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}
