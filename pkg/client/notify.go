package client

import "strconv"

// Fallback thread labels when the server could not resolve an identity.
const (
	groupNoticeFallback = "群通知"
	friendFallback      = "好友"
)

// NotificationGroup is one collapsed inbox thread. Items keep the incoming
// order (newest first); the display identity comes from the newest item.
type NotificationGroup struct {
	Key         string
	GroupID     *uint64
	FromUserID  *uint64
	Items       []Notification
	UnreadCount int

	// DisplayName and DisplayAvatar identify the thread in the UI. Group
	// threads carry the group's own identity and never a member avatar;
	// personal threads show the sender of the newest item.
	DisplayName   string
	DisplayAvatar string
}

// Newest returns the most recent item of the thread.
func (g NotificationGroup) Newest() Notification { return g.Items[0] }

func groupKey(n Notification) string {
	if n.RelatedGroupID != nil {
		return "g:" + strconv.FormatUint(*n.RelatedGroupID, 10)
	}
	if n.FromUserID != nil {
		return "u:" + strconv.FormatUint(*n.FromUserID, 10)
	}
	return "n:" + strconv.FormatUint(n.ID, 10)
}

// GroupNotifications collapses a newest-first inbox into threads: by group
// when the item references one, else by sender, else standalone. Thread
// order follows each thread's newest item, matching the input order.
func GroupNotifications(items []Notification) []NotificationGroup {
	index := map[string]int{}
	var groups []NotificationGroup
	for _, n := range items {
		key := groupKey(n)
		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, NotificationGroup{
				Key:        key,
				GroupID:    n.RelatedGroupID,
				FromUserID: n.FromUserID,
			})
		}
		g := &groups[idx]
		g.Items = append(g.Items, n)
		if n.Unread() {
			g.UnreadCount++
		}
	}

	for i := range groups {
		newest := groups[i].Items[0]
		if newest.RelatedGroupID != nil {
			// Group notices use the group's identity, not whichever member
			// happened to act last.
			groups[i].DisplayName = groupNoticeFallback
			if newest.RelatedGroupName != nil && *newest.RelatedGroupName != "" {
				groups[i].DisplayName = *newest.RelatedGroupName
			}
			continue
		}
		groups[i].DisplayName = friendFallback
		if newest.FromUserName != nil && *newest.FromUserName != "" {
			groups[i].DisplayName = *newest.FromUserName
		}
		if newest.FromUserAvatar != nil {
			groups[i].DisplayAvatar = *newest.FromUserAvatar
		}
	}
	return groups
}
