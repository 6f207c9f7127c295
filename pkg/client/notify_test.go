package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func up(v uint64) *uint64 { return &v }
func sp(s string) *string { return &s }

func TestGroupNotificationsKeying(t *testing.T) {
	now := time.Now()
	items := []Notification{
		{ID: 10, Kind: NotifEncourage, RelatedGroupID: up(5), RelatedGroupName: sp("night owls"), FromUserID: up(2), FromUserName: sp("Bo"), FromUserAvatar: sp("bo.png"), CreatedAt: now},
		{ID: 9, Kind: NotifRemind, FromUserID: up(3), FromUserName: sp("An"), FromUserAvatar: sp("an.png"), CreatedAt: now.Add(-time.Minute)},
		{ID: 8, Kind: NotifRemind, RelatedGroupID: up(5), RelatedGroupName: sp("night owls"), FromUserID: up(4), CreatedAt: now.Add(-2 * time.Minute)},
		{ID: 7, Kind: NotifEncourage, FromUserID: up(3), FromUserName: sp("An"), CreatedAt: now.Add(-3 * time.Minute)},
		{ID: 6, Kind: NotifGroupJoined, CreatedAt: now.Add(-4 * time.Minute)},
	}

	groups := GroupNotifications(items)
	require.Len(t, groups, 3)

	// Group 5 thread collapses items 10 and 8 and wears the group's own
	// identity, never the acting member's name or avatar.
	assert.Equal(t, "g:5", groups[0].Key)
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, uint64(10), groups[0].Newest().ID)
	assert.Equal(t, "night owls", groups[0].DisplayName)
	assert.Empty(t, groups[0].DisplayAvatar)

	// Sender thread for user 3 collapses items 9 and 7, identified by the
	// newest item's sender.
	assert.Equal(t, "u:3", groups[1].Key)
	assert.Len(t, groups[1].Items, 2)
	assert.Equal(t, uint64(9), groups[1].Newest().ID)
	assert.Equal(t, "An", groups[1].DisplayName)
	assert.Equal(t, "an.png", groups[1].DisplayAvatar)

	// No group and no sender: standalone with the generic friend label.
	assert.Equal(t, "n:6", groups[2].Key)
	assert.Equal(t, friendFallback, groups[2].DisplayName)
}

func TestGroupNotificationsGroupNameFallback(t *testing.T) {
	items := []Notification{
		{ID: 1, Kind: NotifRemind, RelatedGroupID: up(9), FromUserID: up(2), FromUserName: sp("Bo")},
	}
	groups := GroupNotifications(items)
	require.Len(t, groups, 1)
	assert.Equal(t, groupNoticeFallback, groups[0].DisplayName)
	assert.Empty(t, groups[0].DisplayAvatar)
}

func TestGroupNotificationsUnreadCounts(t *testing.T) {
	read := time.Now()
	items := []Notification{
		{ID: 3, FromUserID: up(1)},
		{ID: 2, FromUserID: up(1), ReadAt: &read},
		{ID: 1, FromUserID: up(1)},
	}
	groups := GroupNotifications(items)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].UnreadCount)
}

func TestGroupNotificationsEmpty(t *testing.T) {
	assert.Empty(t, GroupNotifications(nil))
}
