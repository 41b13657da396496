package inscription

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/audit"
	"jogosescolares/internal/database"
	"jogosescolares/internal/database/memory"
	"jogosescolares/internal/eligibility"
	"jogosescolares/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelemetry struct {
	mock.Mock
}

func (m *mockTelemetry) RecordSchoolRegistration(ctx context.Context, merged bool) {
	m.Called(ctx, merged)
}

func (m *mockTelemetry) RecordInscription(ctx context.Context, success bool) {
	m.Called(ctx, success)
}

func (m *mockTelemetry) RecordTeamChange(ctx context.Context, action string) {
	m.Called(ctx, action)
}

func (m *mockTelemetry) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var now = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (Manager, *memory.Store, *mockTelemetry) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	store := memory.New()
	auditor := audit.NewAuditor(logger)
	resolver := eligibility.NewResolver(logger, store, func() time.Time { return now })
	tel := &mockTelemetry{}
	tel.On("RecordInscription", mock.Anything, mock.Anything)
	return NewManager(logger, store, &auditor, &resolver, tel), store, tel
}

func TestCreate_RejectsDuplicateTriple(t *testing.T) {
	ctx := context.Background()
	m, store, tel := newTestManager(t)

	params := CreateParams{ActorID: uuid.New(), AthleteID: uuid.New(), EventID: uuid.New(), ModalityID: uuid.New(), SchoolID: uuid.New()}

	first, err := m.Create(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, params.AthleteID, first.AthleteID)

	_, err = m.Create(ctx, params)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	all, err := store.ListInscriptions(ctx, database.ListInscriptionsParams{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	tel.AssertCalled(t, "RecordInscription", mock.Anything, true)
	tel.AssertCalled(t, "RecordInscription", mock.Anything, false)

	// Another modality for the same participant is a different triple.
	params.ModalityID = uuid.New()
	_, err = m.Create(ctx, params)
	require.NoError(t, err)
}

func TestCreate_MissingFields(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Create(context.Background(), CreateParams{AthleteID: uuid.New()})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreate_Concurrent(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)

	params := CreateParams{AthleteID: uuid.New(), EventID: uuid.New(), ModalityID: uuid.New()}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Create(ctx, params)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, apperrors.IsValidation(err))
	}
	assert.Equal(t, 1, ok)

	all, err := store.ListInscriptions(ctx, database.ListInscriptionsParams{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	created, err := m.Create(ctx, CreateParams{AthleteID: uuid.New(), EventID: uuid.New(), ModalityID: uuid.New()})
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, DeleteParams{ID: created.ID}))

	_, err = m.Get(ctx, created.ID)
	assert.True(t, apperrors.IsNotFound(err))

	err = m.Delete(ctx, DeleteParams{ID: created.ID})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestList_ScopedByAthleteAndEvent(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	athlete, eventA, eventB := uuid.New(), uuid.New(), uuid.New()
	for _, p := range []CreateParams{
		{AthleteID: athlete, EventID: eventA, ModalityID: uuid.New()},
		{AthleteID: athlete, EventID: eventA, ModalityID: uuid.New()},
		{AthleteID: athlete, EventID: eventB, ModalityID: uuid.New()},
		{AthleteID: uuid.New(), EventID: eventA, ModalityID: uuid.New()},
	} {
		_, err := m.Create(ctx, p)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		params ListParams
		want   int
	}{
		{name: "athlete and event", params: ListParams{AthleteID: util.Some(athlete), EventID: util.Some(eventA)}, want: 2},
		{name: "athlete only", params: ListParams{AthleteID: util.Some(athlete)}, want: 3},
		{name: "event only", params: ListParams{EventID: util.Some(eventA)}, want: 3},
		{name: "all", want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.List(ctx, tt.params)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)

	eventID, schoolID, participantID := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, store.CreateEvent(ctx, database.Event{ID: eventID, Name: "Jogos", AdminStatus: "PUBLISHED"}))
	require.NoError(t, store.CreateParticipant(ctx, database.Participant{
		ID:          participantID,
		Kind:        string(eligibility.KindAthlete),
		SchoolID:    schoolID,
		Sex:         "Feminino",
		DateOfBirth: time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	eligibleID, maleID := uuid.New(), uuid.New()
	require.NoError(t, store.CreateModality(ctx, database.Modality{ID: eligibleID, Name: "Atletismo", Type: "individual", Gender: "misto", MinAge: 10, MaxAge: 12}))
	require.NoError(t, store.CreateModality(ctx, database.Modality{ID: maleID, Name: "Futsal", Type: "coletiva", Gender: "masculino", MinAge: 10, MaxAge: 12}))

	created, err := m.Enroll(ctx, EnrollParams{ParticipantID: participantID, EventID: eventID, ModalityID: eligibleID})
	require.NoError(t, err)
	assert.Equal(t, schoolID, created.SchoolID)

	_, err = m.Enroll(ctx, EnrollParams{ParticipantID: participantID, EventID: eventID, ModalityID: maleID})
	assert.True(t, apperrors.IsValidation(err))

	_, err = m.Enroll(ctx, EnrollParams{ParticipantID: uuid.New(), EventID: eventID, ModalityID: eligibleID})
	assert.True(t, apperrors.IsNotFound(err))
}
