// Package memory provides an in-process transactional Store used by tests and
// local development. A transaction works on a cloned state that replaces the
// committed one only when the callback succeeds.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"jogosescolares/internal/database"

	"github.com/google/uuid"
)

type permissionKey struct {
	userID  uuid.UUID
	eventID uuid.UUID
}

type state struct {
	events         map[uuid.UUID]database.Event
	eventModality  map[uuid.UUID][]uuid.UUID
	modalities     map[uuid.UUID]database.Modality
	modalityOrder  []uuid.UUID
	schools        map[uuid.UUID]database.School
	users          map[uuid.UUID]database.User
	permissions    map[permissionKey]database.Permission
	participants   map[uuid.UUID]database.Participant
	documents      map[uuid.UUID][]database.ParticipantDocument
	inscriptions   map[uuid.UUID]database.Inscription
	auditLogEvents []database.AuditLogEvent
}

func newState() *state {
	return &state{
		events:        map[uuid.UUID]database.Event{},
		eventModality: map[uuid.UUID][]uuid.UUID{},
		modalities:    map[uuid.UUID]database.Modality{},
		schools:       map[uuid.UUID]database.School{},
		users:         map[uuid.UUID]database.User{},
		permissions:   map[permissionKey]database.Permission{},
		participants:  map[uuid.UUID]database.Participant{},
		documents:     map[uuid.UUID][]database.ParticipantDocument{},
		inscriptions:  map[uuid.UUID]database.Inscription{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.eventModality {
		c.eventModality[k] = slices.Clone(v)
	}
	for k, v := range s.modalities {
		c.modalities[k] = v
	}
	c.modalityOrder = slices.Clone(s.modalityOrder)
	for k, v := range s.schools {
		c.schools[k] = cloneSchool(v)
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.permissions {
		c.permissions[k] = v
	}
	for k, v := range s.participants {
		c.participants[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = slices.Clone(v)
	}
	for k, v := range s.inscriptions {
		c.inscriptions[k] = v
	}
	c.auditLogEvents = slices.Clone(s.auditLogEvents)
	return c
}

func cloneSchool(s database.School) database.School {
	s.EventIDs = slices.Clone(s.EventIDs)
	return s
}

// Store is safe for concurrent use. Transactions are serialized by one mutex.
type Store struct {
	mu    sync.Mutex
	state *state
}

var _ database.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(q database.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	if err := fn(&tx{s: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// do runs a single statement as its own transaction.
func (s *Store) do(ctx context.Context, fn func(t *tx) error) error {
	return s.InTx(ctx, func(q database.Queries) error {
		return fn(q.(*tx))
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) CreateEvent(ctx context.Context, event database.Event) error {
	return s.do(ctx, func(t *tx) error { return t.CreateEvent(ctx, event) })
}

func (s *Store) GetEventByID(ctx context.Context, id uuid.UUID) (event database.Event, err error) {
	err = s.do(ctx, func(t *tx) error { event, err = t.GetEventByID(ctx, id); return err })
	return event, err
}

func (s *Store) ListEvents(ctx context.Context, params database.ListEventsParams) (events []database.Event, err error) {
	err = s.do(ctx, func(t *tx) error { events, err = t.ListEvents(ctx, params); return err })
	return events, err
}

func (s *Store) UpdateEvent(ctx context.Context, event database.Event) error {
	return s.do(ctx, func(t *tx) error { return t.UpdateEvent(ctx, event) })
}

func (s *Store) SetEventModalities(ctx context.Context, eventID uuid.UUID, modalityIDs []uuid.UUID) error {
	return s.do(ctx, func(t *tx) error { return t.SetEventModalities(ctx, eventID, modalityIDs) })
}

func (s *Store) ListEventModalityIDs(ctx context.Context, eventID uuid.UUID) (ids []uuid.UUID, err error) {
	err = s.do(ctx, func(t *tx) error { ids, err = t.ListEventModalityIDs(ctx, eventID); return err })
	return ids, err
}

func (s *Store) CreateModality(ctx context.Context, modality database.Modality) error {
	return s.do(ctx, func(t *tx) error { return t.CreateModality(ctx, modality) })
}

func (s *Store) GetModalityByID(ctx context.Context, id uuid.UUID) (modality database.Modality, err error) {
	err = s.do(ctx, func(t *tx) error { modality, err = t.GetModalityByID(ctx, id); return err })
	return modality, err
}

func (s *Store) ListModalities(ctx context.Context) (modalities []database.Modality, err error) {
	err = s.do(ctx, func(t *tx) error { modalities, err = t.ListModalities(ctx); return err })
	return modalities, err
}

func (s *Store) CreateSchool(ctx context.Context, school database.School) error {
	return s.do(ctx, func(t *tx) error { return t.CreateSchool(ctx, school) })
}

func (s *Store) UpdateSchool(ctx context.Context, school database.School) error {
	return s.do(ctx, func(t *tx) error { return t.UpdateSchool(ctx, school) })
}

func (s *Store) GetSchoolByID(ctx context.Context, id uuid.UUID) (school database.School, err error) {
	err = s.do(ctx, func(t *tx) error { school, err = t.GetSchoolByID(ctx, id); return err })
	return school, err
}

func (s *Store) GetSchoolByINEP(ctx context.Context, inep string, forUpdate bool) (school database.School, err error) {
	err = s.do(ctx, func(t *tx) error { school, err = t.GetSchoolByINEP(ctx, inep, forUpdate); return err })
	return school, err
}

func (s *Store) ListSchools(ctx context.Context, params database.ListSchoolsParams) (schools []database.School, err error) {
	err = s.do(ctx, func(t *tx) error { schools, err = t.ListSchools(ctx, params); return err })
	return schools, err
}

func (s *Store) CreateUser(ctx context.Context, user database.User) error {
	return s.do(ctx, func(t *tx) error { return t.CreateUser(ctx, user) })
}

func (s *Store) UpdateUser(ctx context.Context, user database.User) error {
	return s.do(ctx, func(t *tx) error { return t.UpdateUser(ctx, user) })
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (user database.User, err error) {
	err = s.do(ctx, func(t *tx) error { user, err = t.GetUserByID(ctx, id); return err })
	return user, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user database.User, err error) {
	err = s.do(ctx, func(t *tx) error { user, err = t.GetUserByEmail(ctx, email); return err })
	return user, err
}

func (s *Store) ListUsers(ctx context.Context, params database.ListUsersParams) (users []database.User, err error) {
	err = s.do(ctx, func(t *tx) error { users, err = t.ListUsers(ctx, params); return err })
	return users, err
}

func (s *Store) GetPermission(ctx context.Context, userID, eventID uuid.UUID) (permission database.Permission, err error) {
	err = s.do(ctx, func(t *tx) error { permission, err = t.GetPermission(ctx, userID, eventID); return err })
	return permission, err
}

func (s *Store) UpsertPermission(ctx context.Context, permission database.Permission) error {
	return s.do(ctx, func(t *tx) error { return t.UpsertPermission(ctx, permission) })
}

func (s *Store) DeletePermission(ctx context.Context, userID, eventID uuid.UUID) error {
	return s.do(ctx, func(t *tx) error { return t.DeletePermission(ctx, userID, eventID) })
}

func (s *Store) ListPermissions(ctx context.Context, params database.ListPermissionsParams) (permissions []database.Permission, err error) {
	err = s.do(ctx, func(t *tx) error { permissions, err = t.ListPermissions(ctx, params); return err })
	return permissions, err
}

func (s *Store) CreateParticipant(ctx context.Context, participant database.Participant) error {
	return s.do(ctx, func(t *tx) error { return t.CreateParticipant(ctx, participant) })
}

func (s *Store) GetParticipantByID(ctx context.Context, id uuid.UUID) (participant database.Participant, err error) {
	err = s.do(ctx, func(t *tx) error { participant, err = t.GetParticipantByID(ctx, id); return err })
	return participant, err
}

func (s *Store) ListParticipants(ctx context.Context, params database.ListParticipantsParams) (participants []database.Participant, err error) {
	err = s.do(ctx, func(t *tx) error { participants, err = t.ListParticipants(ctx, params); return err })
	return participants, err
}

func (s *Store) CreateParticipantDocument(ctx context.Context, document database.ParticipantDocument) error {
	return s.do(ctx, func(t *tx) error { return t.CreateParticipantDocument(ctx, document) })
}

func (s *Store) ListParticipantDocuments(ctx context.Context, participantID uuid.UUID) (documents []database.ParticipantDocument, err error) {
	err = s.do(ctx, func(t *tx) error { documents, err = t.ListParticipantDocuments(ctx, participantID); return err })
	return documents, err
}

func (s *Store) CreateInscription(ctx context.Context, inscription database.Inscription) error {
	return s.do(ctx, func(t *tx) error { return t.CreateInscription(ctx, inscription) })
}

func (s *Store) GetInscriptionByID(ctx context.Context, id uuid.UUID) (inscription database.Inscription, err error) {
	err = s.do(ctx, func(t *tx) error { inscription, err = t.GetInscriptionByID(ctx, id); return err })
	return inscription, err
}

func (s *Store) DeleteInscriptionByID(ctx context.Context, id uuid.UUID) error {
	return s.do(ctx, func(t *tx) error { return t.DeleteInscriptionByID(ctx, id) })
}

func (s *Store) ListInscriptions(ctx context.Context, params database.ListInscriptionsParams) (inscriptions []database.Inscription, err error) {
	err = s.do(ctx, func(t *tx) error { inscriptions, err = t.ListInscriptions(ctx, params); return err })
	return inscriptions, err
}

func (s *Store) CreateAuditLogEvent(ctx context.Context, params database.CreateAuditLogEventParams) (event database.AuditLogEvent, err error) {
	err = s.do(ctx, func(t *tx) error { event, err = t.CreateAuditLogEvent(ctx, params); return err })
	return event, err
}

func (s *Store) ListAuditLogEvents(ctx context.Context, params database.ListAuditLogEventsParams) (events []database.AuditLogEvent, err error) {
	err = s.do(ctx, func(t *tx) error { events, err = t.ListAuditLogEvents(ctx, params); return err })
	return events, err
}

// tx implements database.Queries over a working state. It is never shared
// between goroutines.
type tx struct {
	s *state
}

func (t *tx) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (t *tx) CreateEvent(_ context.Context, event database.Event) error {
	if _, ok := t.s.events[event.ID]; ok {
		return fmt.Errorf("memory: event %s: %w", event.ID, database.ErrConflict)
	}
	t.s.events[event.ID] = event
	return nil
}

func (t *tx) GetEventByID(_ context.Context, id uuid.UUID) (database.Event, error) {
	event, ok := t.s.events[id]
	if !ok {
		return database.Event{}, database.ErrNotFound
	}
	return event, nil
}

func (t *tx) ListEvents(_ context.Context, params database.ListEventsParams) ([]database.Event, error) {
	var events []database.Event
	for _, event := range t.s.events {
		if params.MemberUserID.IsSet {
			if _, ok := t.s.permissions[permissionKey{userID: params.MemberUserID.Val, eventID: event.ID}]; !ok {
				continue
			}
		}
		events = append(events, event)
	}
	slices.SortFunc(events, func(a, b database.Event) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return events, nil
}

func (t *tx) UpdateEvent(_ context.Context, event database.Event) error {
	existing, ok := t.s.events[event.ID]
	if !ok {
		return database.ErrNotFound
	}
	event.OwnerID = existing.OwnerID
	event.CreatedAt = existing.CreatedAt
	t.s.events[event.ID] = event
	return nil
}

func (t *tx) SetEventModalities(_ context.Context, eventID uuid.UUID, modalityIDs []uuid.UUID) error {
	ids := make([]uuid.UUID, 0, len(modalityIDs))
	for _, id := range modalityIDs {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	t.s.eventModality[eventID] = ids
	return nil
}

func (t *tx) ListEventModalityIDs(_ context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	return slices.Clone(t.s.eventModality[eventID]), nil
}

func (t *tx) CreateModality(_ context.Context, modality database.Modality) error {
	if _, ok := t.s.modalities[modality.ID]; ok {
		return fmt.Errorf("memory: modality %s: %w", modality.ID, database.ErrConflict)
	}
	t.s.modalities[modality.ID] = modality
	t.s.modalityOrder = append(t.s.modalityOrder, modality.ID)
	return nil
}

func (t *tx) GetModalityByID(_ context.Context, id uuid.UUID) (database.Modality, error) {
	modality, ok := t.s.modalities[id]
	if !ok {
		return database.Modality{}, database.ErrNotFound
	}
	return modality, nil
}

// ListModalities returns the catalog in insertion order.
func (t *tx) ListModalities(_ context.Context) ([]database.Modality, error) {
	modalities := make([]database.Modality, 0, len(t.s.modalityOrder))
	for _, id := range t.s.modalityOrder {
		modalities = append(modalities, t.s.modalities[id])
	}
	return modalities, nil
}

func (t *tx) CreateSchool(_ context.Context, school database.School) error {
	if _, ok := t.s.schools[school.ID]; ok {
		return fmt.Errorf("memory: school %s: %w", school.ID, database.ErrConflict)
	}
	for _, existing := range t.s.schools {
		if existing.INEP == school.INEP {
			return fmt.Errorf("memory: school inep %s: %w", school.INEP, database.ErrConflict)
		}
	}
	t.s.schools[school.ID] = cloneSchool(school)
	return nil
}

func (t *tx) UpdateSchool(_ context.Context, school database.School) error {
	existing, ok := t.s.schools[school.ID]
	if !ok {
		return database.ErrNotFound
	}
	school.INEP = existing.INEP
	school.CreatedAt = existing.CreatedAt
	t.s.schools[school.ID] = cloneSchool(school)
	return nil
}

func (t *tx) GetSchoolByID(_ context.Context, id uuid.UUID) (database.School, error) {
	school, ok := t.s.schools[id]
	if !ok {
		return database.School{}, database.ErrNotFound
	}
	return cloneSchool(school), nil
}

// GetSchoolByINEP ignores forUpdate: the transaction already holds the store lock.
func (t *tx) GetSchoolByINEP(_ context.Context, inep string, _ bool) (database.School, error) {
	for _, school := range t.s.schools {
		if school.INEP == inep {
			return cloneSchool(school), nil
		}
	}
	return database.School{}, database.ErrNotFound
}

func (t *tx) ListSchools(_ context.Context, params database.ListSchoolsParams) ([]database.School, error) {
	var schools []database.School
	for _, school := range t.s.schools {
		if params.EventID.IsSet {
			legacy := school.LegacyEventID.IsSet && school.LegacyEventID.Val == params.EventID.Val
			if !legacy && !slices.Contains(school.EventIDs, params.EventID.Val) {
				continue
			}
		}
		schools = append(schools, cloneSchool(school))
	}
	slices.SortFunc(schools, func(a, b database.School) int {
		return strings.Compare(a.Name, b.Name)
	})
	return schools, nil
}

func (t *tx) CreateUser(_ context.Context, user database.User) error {
	if _, ok := t.s.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s: %w", user.ID, database.ErrConflict)
	}
	for _, existing := range t.s.users {
		if existing.Email == user.Email {
			return fmt.Errorf("memory: user email %s: %w", user.Email, database.ErrConflict)
		}
	}
	t.s.users[user.ID] = user
	return nil
}

func (t *tx) UpdateUser(_ context.Context, user database.User) error {
	existing, ok := t.s.users[user.ID]
	if !ok {
		return database.ErrNotFound
	}
	for id, other := range t.s.users {
		if id != user.ID && other.Email == user.Email {
			return fmt.Errorf("memory: user email %s: %w", user.Email, database.ErrConflict)
		}
	}
	user.CreatedAt = existing.CreatedAt
	t.s.users[user.ID] = user
	return nil
}

func (t *tx) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	user, ok := t.s.users[id]
	if !ok {
		return database.User{}, database.ErrNotFound
	}
	return user, nil
}

func (t *tx) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	for _, user := range t.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return database.User{}, database.ErrNotFound
}

func (t *tx) ListUsers(_ context.Context, params database.ListUsersParams) ([]database.User, error) {
	search := strings.ToLower(params.Search.UnwrapOr(""))

	var users []database.User
	for _, user := range t.s.users {
		if len(params.Roles) > 0 && !slices.Contains(params.Roles, user.Role) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(user.Name), search) &&
			!strings.Contains(strings.ToLower(user.Email), search) {
			continue
		}
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b database.User) int {
		return strings.Compare(a.Name, b.Name)
	})
	if params.Limit > 0 && len(users) > params.Limit {
		users = users[:params.Limit]
	}
	return users, nil
}

func (t *tx) GetPermission(_ context.Context, userID, eventID uuid.UUID) (database.Permission, error) {
	permission, ok := t.s.permissions[permissionKey{userID: userID, eventID: eventID}]
	if !ok {
		return database.Permission{}, database.ErrNotFound
	}
	return permission, nil
}

func (t *tx) UpsertPermission(_ context.Context, permission database.Permission) error {
	key := permissionKey{userID: permission.UserID, eventID: permission.EventID}
	if permission.Role == "owner" {
		for k, p := range t.s.permissions {
			if k != key && p.EventID == permission.EventID && p.Role == "owner" {
				return fmt.Errorf("memory: event %s owner: %w", permission.EventID, database.ErrConflict)
			}
		}
	}
	if existing, ok := t.s.permissions[key]; ok {
		permission.CreatedAt = existing.CreatedAt
	}
	t.s.permissions[key] = permission
	return nil
}

func (t *tx) DeletePermission(_ context.Context, userID, eventID uuid.UUID) error {
	key := permissionKey{userID: userID, eventID: eventID}
	if _, ok := t.s.permissions[key]; !ok {
		return database.ErrNotFound
	}
	delete(t.s.permissions, key)
	return nil
}

func (t *tx) ListPermissions(_ context.Context, params database.ListPermissionsParams) ([]database.Permission, error) {
	var permissions []database.Permission
	for _, p := range t.s.permissions {
		if params.EventID.IsSet && p.EventID != params.EventID.Val {
			continue
		}
		if params.UserID.IsSet && p.UserID != params.UserID.Val {
			continue
		}
		permissions = append(permissions, p)
	}
	slices.SortFunc(permissions, func(a, b database.Permission) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.UserID.String(), b.UserID.String())
	})
	return permissions, nil
}

func (t *tx) CreateParticipant(_ context.Context, participant database.Participant) error {
	if _, ok := t.s.participants[participant.ID]; ok {
		return fmt.Errorf("memory: participant %s: %w", participant.ID, database.ErrConflict)
	}
	t.s.participants[participant.ID] = participant
	return nil
}

func (t *tx) GetParticipantByID(_ context.Context, id uuid.UUID) (database.Participant, error) {
	participant, ok := t.s.participants[id]
	if !ok {
		return database.Participant{}, database.ErrNotFound
	}
	return participant, nil
}

func (t *tx) ListParticipants(_ context.Context, params database.ListParticipantsParams) ([]database.Participant, error) {
	var participants []database.Participant
	for _, p := range t.s.participants {
		if params.SchoolID.IsSet && p.SchoolID != params.SchoolID.Val {
			continue
		}
		participants = append(participants, p)
	}
	slices.SortFunc(participants, func(a, b database.Participant) int {
		return strings.Compare(a.Name, b.Name)
	})
	return participants, nil
}

func (t *tx) CreateParticipantDocument(_ context.Context, document database.ParticipantDocument) error {
	if _, ok := t.s.participants[document.ParticipantID]; !ok {
		return database.ErrNotFound
	}
	t.s.documents[document.ParticipantID] = append(t.s.documents[document.ParticipantID], document)
	return nil
}

func (t *tx) ListParticipantDocuments(_ context.Context, participantID uuid.UUID) ([]database.ParticipantDocument, error) {
	return slices.Clone(t.s.documents[participantID]), nil
}

func (t *tx) CreateInscription(_ context.Context, inscription database.Inscription) error {
	if _, ok := t.s.inscriptions[inscription.ID]; ok {
		return fmt.Errorf("memory: inscription %s: %w", inscription.ID, database.ErrConflict)
	}
	for _, existing := range t.s.inscriptions {
		if existing.AthleteID == inscription.AthleteID &&
			existing.EventID == inscription.EventID &&
			existing.ModalityID == inscription.ModalityID {
			return fmt.Errorf("memory: inscription (%s, %s, %s): %w",
				inscription.AthleteID, inscription.EventID, inscription.ModalityID, database.ErrConflict)
		}
	}
	t.s.inscriptions[inscription.ID] = inscription
	return nil
}

func (t *tx) GetInscriptionByID(_ context.Context, id uuid.UUID) (database.Inscription, error) {
	inscription, ok := t.s.inscriptions[id]
	if !ok {
		return database.Inscription{}, database.ErrNotFound
	}
	return inscription, nil
}

func (t *tx) DeleteInscriptionByID(_ context.Context, id uuid.UUID) error {
	if _, ok := t.s.inscriptions[id]; !ok {
		return database.ErrNotFound
	}
	delete(t.s.inscriptions, id)
	return nil
}

func (t *tx) ListInscriptions(_ context.Context, params database.ListInscriptionsParams) ([]database.Inscription, error) {
	var inscriptions []database.Inscription
	for _, i := range t.s.inscriptions {
		if params.AthleteID.IsSet && i.AthleteID != params.AthleteID.Val {
			continue
		}
		if params.EventID.IsSet && i.EventID != params.EventID.Val {
			continue
		}
		if params.ModalityID.IsSet && i.ModalityID != params.ModalityID.Val {
			continue
		}
		inscriptions = append(inscriptions, i)
	}
	slices.SortFunc(inscriptions, func(a, b database.Inscription) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return inscriptions, nil
}

func (t *tx) CreateAuditLogEvent(_ context.Context, params database.CreateAuditLogEventParams) (database.AuditLogEvent, error) {
	event := database.AuditLogEvent{
		ID:        uuid.New(),
		ActorID:   params.ActorID,
		Type:      params.EventType,
		Data:      params.EventData,
		CreatedAt: time.Now().UTC(),
	}
	t.s.auditLogEvents = append(t.s.auditLogEvents, event)
	return event, nil
}

func (t *tx) ListAuditLogEvents(_ context.Context, params database.ListAuditLogEventsParams) ([]database.AuditLogEvent, error) {
	var events []database.AuditLogEvent
	for _, e := range t.s.auditLogEvents {
		if params.Type.IsSet && e.Type != params.Type.Val {
			continue
		}
		events = append(events, e)
	}
	if params.Order == database.OrderByDESC {
		slices.Reverse(events)
	}
	return events, nil
}
