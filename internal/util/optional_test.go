package util

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalJSON(t *testing.T) {
	type payload struct {
		End Optional[time.Time] `json:"end"`
	}

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"end":null}`), &p))
	assert.False(t, p.End.IsSet)

	require.NoError(t, json.Unmarshal([]byte(`{"end":"2026-03-01T10:00:00Z"}`), &p))
	assert.True(t, p.End.IsSet)
	assert.Equal(t, 2026, p.End.Val.Year())
}

func TestOptionalScan(t *testing.T) {
	id := uuid.New()

	var o Optional[uuid.UUID]
	require.NoError(t, o.Scan(id.String()))
	assert.Equal(t, id, o.Unwrap())

	require.NoError(t, o.Scan(nil))
	assert.False(t, o.IsSet)

	var s Optional[string]
	assert.Error(t, s.Scan(42))
}

func TestOptionalPtr(t *testing.T) {
	name := "Escola"
	o := FromPtr(&name)
	assert.Equal(t, "Escola", *o.Ptr())
	assert.Nil(t, FromPtr[string](nil).Ptr())
	assert.Equal(t, "fallback", None[string]().UnwrapOr("fallback"))
}
