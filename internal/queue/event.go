// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// GroupActivityEvent is published when a member pokes or cheers their whole
// group. It carries enough for downstream consumers to log or trigger push
// delivery without querying the primary database.
type GroupActivityEvent struct {
	GroupID     uint64    `json:"group_id"`
	GroupName   string    `json:"group_name"`
	ActorID     uint64    `json:"actor_id"`
	ActorName   string    `json:"actor_name"`
	Action      string    `json:"action"` // remind | encourage
	Emoji       string    `json:"emoji,omitempty"`
	MemberCount int       `json:"member_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}
