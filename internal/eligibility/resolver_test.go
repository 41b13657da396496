package eligibility

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/database"
	"jogosescolares/internal/database/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	eventID := uuid.New()
	require.NoError(t, store.CreateEvent(ctx, database.Event{ID: eventID, Name: "Jogos", AdminStatus: "PUBLISHED"}))

	athleteID := uuid.New()
	require.NoError(t, store.CreateParticipant(ctx, database.Participant{
		ID:          athleteID,
		Kind:        string(KindAthlete),
		Sex:         "Feminino",
		DateOfBirth: time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	eligibleID, ineligibleID, otherID := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, store.CreateModality(ctx, database.Modality{ID: eligibleID, Name: "Atletismo", Type: "individual", Gender: "misto", MinAge: 10, MaxAge: 12}))
	require.NoError(t, store.CreateModality(ctx, database.Modality{ID: ineligibleID, Name: "Atletismo", Type: "individual", Gender: "misto", MinAge: 13, MaxAge: 14}))
	require.NoError(t, store.CreateModality(ctx, database.Modality{ID: otherID, Name: "Xadrez", Type: "individual", Gender: "misto", MinAge: 10, MaxAge: 17}))

	resolver := NewResolver(slog.New(slog.DiscardHandler), store, func() time.Time { return now })

	f, err := resolver.Resolve(ctx, athleteID, eventID)
	require.NoError(t, err)
	assert.True(t, f.Allows(eligibleID))
	assert.True(t, f.Allows(otherID))
	assert.False(t, f.Allows(ineligibleID))

	require.NoError(t, store.SetEventModalities(ctx, eventID, []uuid.UUID{eligibleID, ineligibleID}))

	f, err = resolver.Resolve(ctx, athleteID, eventID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Atletismo"}, f.Names("individual"))
	selected, ok := f.AutoSelect("individual", "Atletismo")
	require.True(t, ok)
	assert.Equal(t, eligibleID, selected.ID)
}

func TestResolver_NotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	resolver := NewResolver(slog.New(slog.DiscardHandler), store, nil)

	_, err := resolver.Resolve(ctx, uuid.New(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))

	participantID := uuid.New()
	require.NoError(t, store.CreateParticipant(ctx, database.Participant{ID: participantID, Kind: string(KindAthlete)}))
	_, err = resolver.Resolve(ctx, participantID, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}
