package event

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/audit"
	"jogosescolares/internal/database"
	"jogosescolares/internal/database/memory"
	"jogosescolares/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	manager  Manager
	store    *memory.Store
	producer uuid.UUID
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := memory.New()
	auditor := audit.NewAuditor(logger)

	now := testNow
	f := &fixture{store: store, producer: uuid.New(), clock: &now}
	f.manager = NewManager(logger, store, &auditor, func() time.Time { return *f.clock })

	require.NoError(t, store.CreateUser(context.Background(), database.User{
		ID: f.producer, Role: "producer", Name: "Paula", Email: "paula@example.com",
	}))
	return f
}

func (f *fixture) schedule() Schedule {
	return Schedule{
		Name:      "Jogos Escolares 2025",
		Location:  "Ginásio Municipal",
		StartDate: testNow.AddDate(0, 1, 0),
		EndDate:   testNow.AddDate(0, 1, 7),
	}
}

func TestCreateEvent_GrantsOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	e, err := f.manager.CreateEvent(ctx, CreateEventParams{ActorID: f.producer, Schedule: f.schedule()})
	require.NoError(t, err)

	assert.Equal(t, AdminStatusDraft, e.AdminStatus)
	assert.Equal(t, TimeStatusScheduled, e.TimeStatus)
	assert.True(t, e.Editable)
	assert.Equal(t, f.producer, e.OwnerID)

	permission, err := f.store.GetPermission(ctx, f.producer, e.ID)
	require.NoError(t, err)
	assert.Equal(t, string(RoleOwner), permission.Role)

	entries, err := f.store.ListAuditLogEvents(ctx, database.ListAuditLogEventsParams{Type: util.Some(string(audit.AuditLogEventTypeEventCreate))})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateEvent_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(f *fixture, p *CreateEventParams)
		check  func(error) bool
	}{
		{
			name: "school admin is forbidden",
			mutate: func(f *fixture, p *CreateEventParams) {
				id := uuid.New()
				require.NoError(t, f.store.CreateUser(ctx, database.User{ID: id, Role: "school_admin", Email: "escola@example.com"}))
				p.ActorID = id
			},
			check: apperrors.IsForbidden,
		},
		{
			name:   "unknown actor",
			mutate: func(f *fixture, p *CreateEventParams) { p.ActorID = uuid.New() },
			check:  apperrors.IsNotFound,
		},
		{
			name:   "missing name",
			mutate: func(f *fixture, p *CreateEventParams) { p.Name = "  " },
			check:  apperrors.IsValidation,
		},
		{
			name: "end before start",
			mutate: func(f *fixture, p *CreateEventParams) {
				p.EndDate = p.StartDate.Add(-time.Hour)
			},
			check: apperrors.IsValidation,
		},
		{
			name: "inverted individual window",
			mutate: func(f *fixture, p *CreateEventParams) {
				p.RegistrationIndividualStart = util.Some(testNow.AddDate(0, 0, 10))
				p.RegistrationIndividualEnd = util.Some(testNow.AddDate(0, 0, 5))
			},
			check: apperrors.IsValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			params := CreateEventParams{ActorID: f.producer, Schedule: f.schedule()}
			tt.mutate(f, &params)

			_, err := f.manager.CreateEvent(ctx, params)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)

			events, err := f.store.ListEvents(ctx, database.ListEventsParams{})
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestGetEvent_RecomputesTimeStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.manager.CreateEvent(ctx, CreateEventParams{ActorID: f.producer, Schedule: f.schedule()})
	require.NoError(t, err)

	*f.clock = created.StartDate.Add(time.Hour)
	e, err := f.manager.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, TimeStatusActive, e.TimeStatus)
	assert.True(t, e.Editable)

	*f.clock = created.EndDate.Add(time.Second)
	e, err = f.manager.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, TimeStatusClosed, e.TimeStatus)
	assert.False(t, e.Editable)
}

func TestUpdateEvent_RejectedWhenNotEditable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.manager.CreateEvent(ctx, CreateEventParams{ActorID: f.producer, Schedule: f.schedule()})
	require.NoError(t, err)

	_, err = f.manager.ChangeStatus(ctx, ChangeStatusParams{ActorID: f.producer, ID: created.ID, To: AdminStatusPublished})
	require.NoError(t, err)
	_, err = f.manager.ChangeStatus(ctx, ChangeStatusParams{ActorID: f.producer, ID: created.ID, To: AdminStatusSuspended})
	require.NoError(t, err)

	schedule := f.schedule()
	schedule.Name = "Renamed"
	_, err = f.manager.UpdateEvent(ctx, UpdateEventParams{ActorID: f.producer, ID: created.ID, Schedule: schedule})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	e, err := f.manager.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jogos Escolares 2025", e.Name)

	_, err = f.manager.ChangeStatus(ctx, ChangeStatusParams{ActorID: f.producer, ID: created.ID, To: AdminStatusReopened})
	require.NoError(t, err)
	updated, err := f.manager.UpdateEvent(ctx, UpdateEventParams{ActorID: f.producer, ID: created.ID, Schedule: schedule})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestChangeStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		path    []AdminStatus
		wantErr bool
	}{
		{name: "publish", path: []AdminStatus{AdminStatusPublished}},
		{name: "cancel draft", path: []AdminStatus{AdminStatusCancelled}},
		{name: "reopen cancelled", path: []AdminStatus{AdminStatusCancelled, AdminStatusReopened, AdminStatusPublished}},
		{name: "draft cannot suspend", path: []AdminStatus{AdminStatusSuspended}, wantErr: true},
		{name: "published cannot return to draft", path: []AdminStatus{AdminStatusPublished, AdminStatusDraft}, wantErr: true},
		{name: "unknown status", path: []AdminStatus{"ARCHIVED"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			created, err := f.manager.CreateEvent(ctx, CreateEventParams{ActorID: f.producer, Schedule: f.schedule()})
			require.NoError(t, err)

			for i, to := range tt.path {
				_, err = f.manager.ChangeStatus(ctx, ChangeStatusParams{ActorID: f.producer, ID: created.ID, To: to})
				if i < len(tt.path)-1 {
					require.NoError(t, err)
				}
			}

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)

			e, err := f.manager.GetEvent(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.path[len(tt.path)-1], e.AdminStatus)
		})
	}
}

func TestChangeStatus_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.ChangeStatus(context.Background(), ChangeStatusParams{ActorID: f.producer, ID: uuid.New(), To: AdminStatusPublished})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSetEventModalities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.manager.CreateEvent(ctx, CreateEventParams{ActorID: f.producer, Schedule: f.schedule()})
	require.NoError(t, err)

	volei := database.Modality{ID: uuid.New(), Name: "Vôlei", Type: "coletiva", Gender: "misto", MinAge: 12, MaxAge: 14}
	xadrez := database.Modality{ID: uuid.New(), Name: "Xadrez", Type: "individual", Gender: "misto", MinAge: 10, MaxAge: 17}
	require.NoError(t, f.store.CreateModality(ctx, volei))
	require.NoError(t, f.store.CreateModality(ctx, xadrez))

	err = f.manager.SetEventModalities(ctx, SetEventModalitiesParams{ActorID: f.producer, EventID: created.ID, ModalityIDs: []uuid.UUID{xadrez.ID}})
	require.NoError(t, err)

	ids, err := f.manager.ListEventModalityIDs(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{xadrez.ID}, ids)

	err = f.manager.SetEventModalities(ctx, SetEventModalitiesParams{ActorID: f.producer, EventID: created.ID, ModalityIDs: []uuid.UUID{volei.ID, uuid.New()}})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	ids, err = f.manager.ListEventModalityIDs(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{xadrez.ID}, ids)
}

func TestIsRegistrationOpen(t *testing.T) {
	e := Event{
		RegistrationIndividualStart: util.Some(testNow.AddDate(0, 0, -1)),
		RegistrationIndividualEnd:   util.Some(testNow.AddDate(0, 0, 1)),
		RegistrationCollectiveEnd:   util.Some(testNow.AddDate(0, 0, -2)),
	}

	assert.True(t, e.IsRegistrationOpen(testNow, RegistrationIndividual))
	assert.False(t, e.IsRegistrationOpen(testNow.AddDate(0, 0, 2), RegistrationIndividual))
	assert.False(t, e.IsRegistrationOpen(testNow, RegistrationCollective))
	assert.True(t, Event{}.IsRegistrationOpen(testNow, RegistrationCollective))
}
