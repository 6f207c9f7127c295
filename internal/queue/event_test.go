package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupActivityEventRoundTrip(t *testing.T) {
	sent := GroupActivityEvent{
		GroupID:     5,
		GroupName:   "night owls",
		ActorID:     2,
		ActorName:   "An",
		Action:      "encourage",
		Emoji:       "💪",
		MemberCount: 4,
		OccurredAt:  time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
	}

	body, err := json.Marshal(sent)
	require.NoError(t, err)

	var got GroupActivityEvent
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, sent, got)
	assert.True(t, got.OccurredAt.Equal(sent.OccurredAt))
}
