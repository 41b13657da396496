// Package team manages the per-event staff roles: one owner, plus any
// number of assistants and observers drawn from producers and admins.
package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/audit"
	"jogosescolares/internal/authz"
	"jogosescolares/internal/database"
	"jogosescolares/internal/event"
	"jogosescolares/internal/telemetry"
	"jogosescolares/internal/user"
	"jogosescolares/internal/util"

	"github.com/google/uuid"
)

// Authorizer mirrors role tuples to an external authorization service.
type Authorizer interface {
	IsEnabled() bool
	Check(ctx context.Context, userID uuid.UUID, relation authz.Relation, eventID uuid.UUID) (bool, error)
	SetRole(ctx context.Context, userID, eventID uuid.UUID, previous, role authz.Relation) error
	DeleteRole(ctx context.Context, userID, eventID uuid.UUID, role authz.Relation) error
}

type Action string

const (
	ActionManageTeam Action = "manage_team"
	ActionEdit       Action = "edit"
	ActionView       Action = "view"
)

var actionRelations = map[Action]authz.Relation{
	ActionManageTeam: authz.RelationCanManageTeam,
	ActionEdit:       authz.RelationCanEdit,
	ActionView:       authz.RelationCanView,
}

// Allows answers action for role without consulting any service.
func Allows(role event.Role, action Action) bool {
	switch role {
	case event.RoleOwner:
		return true
	case event.RoleAssistant:
		return action == ActionEdit || action == ActionView
	case event.RoleObserver:
		return action == ActionView
	default:
		return false
	}
}

type Member struct {
	UserID    uuid.UUID  `json:"user_id"`
	EventID   uuid.UUID  `json:"event_id"`
	Role      event.Role `json:"role"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Manager struct {
	logger     *slog.Logger
	store      database.Store
	auditor    *audit.Auditor
	events     *event.Manager
	authorizer Authorizer
	telemetry  telemetry.Telemetry
}

func NewManager(logger *slog.Logger, store database.Store, auditor *audit.Auditor, events *event.Manager, authorizer Authorizer, telemetry telemetry.Telemetry) Manager {
	return Manager{
		logger:     logger,
		store:      store,
		auditor:    auditor,
		events:     events,
		authorizer: authorizer,
		telemetry:  telemetry,
	}
}

type MemberParams struct {
	ActorID uuid.UUID
	UserID  uuid.UUID
	EventID uuid.UUID
	Role    event.Role
}

// AddMember grants an assistant or observer role. Calling it again for the
// same user updates the role in place.
func (m *Manager) AddMember(ctx context.Context, params MemberParams) (Member, error) {
	if err := grantable(params.Role); err != nil {
		return Member{}, err
	}

	var member Member
	err := m.store.InTx(ctx, func(q database.Queries) error {
		if err := m.authorize(ctx, q, params.ActorID, params.EventID); err != nil {
			return err
		}

		candidate, err := q.GetUserByID(ctx, params.UserID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperrors.NotFound("user %s not found", params.UserID)
			}
			return fmt.Errorf("failed to get user %s: %w", params.UserID, err)
		}
		if !user.Role(candidate.Role).IsStaff() {
			return apperrors.Validation("only producers and admins can join an event team").
				WithMetadata("role", candidate.Role)
		}

		var previous event.Role
		existing, err := q.GetPermission(ctx, params.UserID, params.EventID)
		switch {
		case err == nil:
			previous = event.Role(existing.Role)
			if previous == event.RoleOwner {
				return errOwnerImmutable()
			}
		case !errors.Is(err, database.ErrNotFound):
			return fmt.Errorf("failed to get permission: %w", err)
		}

		now := time.Now().UTC()
		permission := database.Permission{
			UserID:    params.UserID,
			EventID:   params.EventID,
			Role:      string(params.Role),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := q.UpsertPermission(ctx, permission); err != nil {
			return fmt.Errorf("failed to upsert permission: %w", err)
		}
		if previous != "" {
			permission.CreatedAt = existing.CreatedAt
		}
		member = toMember(permission, candidate)

		if err := m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeTeamMemberAdd,
			Data: map[string]any{
				"user_id":  params.UserID,
				"event_id": params.EventID,
				"role":     params.Role,
				"previous": previous,
			},
		}); err != nil {
			return err
		}

		return m.authorizer.SetRole(ctx, params.UserID, params.EventID, authz.Relation(previous), authz.Relation(params.Role))
	})
	if err != nil {
		return Member{}, err
	}

	m.telemetry.RecordTeamChange(ctx, "add")
	m.logger.InfoContext(ctx, "Team member added",
		"event_id", params.EventID, "user_id", params.UserID, "role", params.Role)
	return member, nil
}

// UpdateRole changes an existing member's role. Owners cannot be changed
// and nobody can be promoted to owner.
func (m *Manager) UpdateRole(ctx context.Context, params MemberParams) (Member, error) {
	if err := grantable(params.Role); err != nil {
		return Member{}, err
	}

	var member Member
	err := m.store.InTx(ctx, func(q database.Queries) error {
		if err := m.authorize(ctx, q, params.ActorID, params.EventID); err != nil {
			return err
		}

		existing, err := getPermission(ctx, q, params.UserID, params.EventID)
		if err != nil {
			return err
		}
		previous := event.Role(existing.Role)
		if previous == event.RoleOwner {
			return errOwnerImmutable()
		}

		existing.Role = string(params.Role)
		existing.UpdatedAt = time.Now().UTC()
		if err := q.UpsertPermission(ctx, existing); err != nil {
			return fmt.Errorf("failed to update permission: %w", err)
		}

		u, err := q.GetUserByID(ctx, params.UserID)
		if err != nil {
			return fmt.Errorf("failed to get user %s: %w", params.UserID, err)
		}
		member = toMember(existing, u)

		if err := m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeTeamMemberUpdate,
			Data: map[string]any{
				"user_id":  params.UserID,
				"event_id": params.EventID,
				"role":     params.Role,
				"previous": previous,
			},
		}); err != nil {
			return err
		}

		return m.authorizer.SetRole(ctx, params.UserID, params.EventID, authz.Relation(previous), authz.Relation(params.Role))
	})
	if err != nil {
		return Member{}, err
	}

	m.telemetry.RecordTeamChange(ctx, "update")
	return member, nil
}

type RemoveMemberParams struct {
	ActorID uuid.UUID
	UserID  uuid.UUID
	EventID uuid.UUID
}

func (m *Manager) RemoveMember(ctx context.Context, params RemoveMemberParams) error {
	err := m.store.InTx(ctx, func(q database.Queries) error {
		if err := m.authorize(ctx, q, params.ActorID, params.EventID); err != nil {
			return err
		}

		existing, err := getPermission(ctx, q, params.UserID, params.EventID)
		if err != nil {
			return err
		}
		if event.Role(existing.Role) == event.RoleOwner {
			return errOwnerImmutable()
		}

		if err := q.DeletePermission(ctx, params.UserID, params.EventID); err != nil {
			return fmt.Errorf("failed to delete permission: %w", err)
		}

		if err := m.auditor.LogEvent(ctx, q, audit.LogEventParam{
			ActorID: params.ActorID,
			Type:    audit.AuditLogEventTypeTeamMemberRemove,
			Data: map[string]any{
				"user_id":  params.UserID,
				"event_id": params.EventID,
				"role":     existing.Role,
			},
		}); err != nil {
			return err
		}

		return m.authorizer.DeleteRole(ctx, params.UserID, params.EventID, authz.Relation(existing.Role))
	})
	if err != nil {
		return err
	}

	m.telemetry.RecordTeamChange(ctx, "remove")
	m.logger.InfoContext(ctx, "Team member removed", "event_id", params.EventID, "user_id", params.UserID)
	return nil
}

// Members lists the event's team, owner first.
func (m *Manager) Members(ctx context.Context, eventID uuid.UUID) ([]Member, error) {
	if _, err := m.store.GetEventByID(ctx, eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NotFound("event %s not found", eventID)
		}
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}

	permissions, err := m.store.ListPermissions(ctx, database.ListPermissionsParams{EventID: util.Some(eventID)})
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	members := make([]Member, 0, len(permissions))
	for _, p := range permissions {
		u, err := m.store.GetUserByID(ctx, p.UserID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("failed to get user %s: %w", p.UserID, err)
		}
		member := toMember(p, u)
		if event.Role(p.Role) == event.RoleOwner {
			members = append([]Member{member}, members...)
			continue
		}
		members = append(members, member)
	}
	return members, nil
}

type CandidatesParams struct {
	Search util.Optional[string]
	Limit  int
}

// Candidates lists users who may be added to a team.
func (m *Manager) Candidates(ctx context.Context, params CandidatesParams) ([]user.User, error) {
	search := params.Search
	if search.IsSet {
		search.Val = strings.TrimSpace(search.Val)
		if search.Val == "" {
			search = util.None[string]()
		}
	}

	records, err := m.store.ListUsers(ctx, database.ListUsersParams{
		Roles:  []string{string(user.RoleProducer), string(user.RoleAdmin)},
		Search: search,
		Limit:  params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	candidates := make([]user.User, 0, len(records))
	for _, r := range records {
		candidates = append(candidates, user.FromDB(r))
	}
	return candidates, nil
}

// Can reports whether userID may perform action on the event. Admins may do
// anything. Others are answered by the authorization service when it is
// enabled and by their stored role otherwise.
func (m *Manager) Can(ctx context.Context, userID, eventID uuid.UUID, action Action) (bool, error) {
	return m.can(ctx, m.store, userID, eventID, action)
}

func (m *Manager) can(ctx context.Context, q database.Queries, userID, eventID uuid.UUID, action Action) (bool, error) {
	relation, ok := actionRelations[action]
	if !ok {
		return false, fmt.Errorf("unknown team action %q", action)
	}

	u, err := q.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	if user.Role(u.Role) == user.RoleAdmin {
		return true, nil
	}

	if m.authorizer.IsEnabled() {
		return m.authorizer.Check(ctx, userID, relation, eventID)
	}

	permission, err := q.GetPermission(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get permission: %w", err)
	}
	return Allows(event.Role(permission.Role), action), nil
}

// SyncOwner writes the owner tuple for a freshly created event.
func (m *Manager) SyncOwner(ctx context.Context, eventID uuid.UUID) error {
	e, err := m.store.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return apperrors.NotFound("event %s not found", eventID)
		}
		return fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	return m.authorizer.SetRole(ctx, e.OwnerID, eventID, "", authz.RelationOwner)
}

// authorize requires the event to be editable and the actor to manage its team.
func (m *Manager) authorize(ctx context.Context, q database.Queries, actorID, eventID uuid.UUID) error {
	if _, err := m.events.CheckEditable(ctx, q, eventID); err != nil {
		return err
	}

	allowed, err := m.can(ctx, q, actorID, eventID, ActionManageTeam)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.Forbidden("user %s cannot manage the team of event %s", actorID, eventID)
	}
	return nil
}

func grantable(role event.Role) error {
	if role == event.RoleOwner {
		return errOwnerImmutable()
	}
	if !role.IsValid() {
		return apperrors.Validation("invalid team role %q", role)
	}
	return nil
}

func errOwnerImmutable() error {
	return apperrors.Validation("the event owner role cannot be granted, changed or removed")
}

func getPermission(ctx context.Context, q database.Queries, userID, eventID uuid.UUID) (database.Permission, error) {
	permission, err := q.GetPermission(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return permission, apperrors.NotFound("user %s is not on the team of event %s", userID, eventID)
		}
		return permission, fmt.Errorf("failed to get permission: %w", err)
	}
	return permission, nil
}

func toMember(p database.Permission, u database.User) Member {
	return Member{
		UserID:    p.UserID,
		EventID:   p.EventID,
		Role:      event.Role(p.Role),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
