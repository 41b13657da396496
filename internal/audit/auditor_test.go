package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"jogosescolares/internal/database"
	"jogosescolares/internal/database/memory"
	"jogosescolares/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	auditor := NewAuditor(slog.New(slog.DiscardHandler))

	actor := uuid.New()
	require.NoError(t, auditor.LogEvent(ctx, store, LogEventParam{
		ActorID: actor,
		Type:    AuditLogEventTypeSchoolMerged,
		Data:    map[string]any{"inep": "12345678"},
	}))

	events, err := store.ListAuditLogEvents(ctx, database.ListAuditLogEventsParams{Type: util.Some(string(AuditLogEventTypeSchoolMerged))})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, actor, events[0].ActorID)

	var data map[string]any
	require.NoError(t, json.Unmarshal(events[0].Data, &data))
	assert.Equal(t, "12345678", data["inep"])
}

func TestLogEvent_RolledBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	auditor := NewAuditor(slog.New(slog.DiscardHandler))

	err := store.InTx(ctx, func(q database.Queries) error {
		require.NoError(t, auditor.LogEvent(ctx, q, LogEventParam{ActorID: uuid.New(), Type: AuditLogEventTypeEventCreate}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	events, err := store.ListAuditLogEvents(ctx, database.ListAuditLogEventsParams{})
	require.NoError(t, err)
	assert.Empty(t, events)
}
