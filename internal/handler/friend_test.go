package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sileme/sileme/internal/model"
	"github.com/sileme/sileme/internal/repository"
)

func TestStatusLabel(t *testing.T) {
	pending := model.Friendship{UserID: 1, FriendID: 2, Status: model.FriendStatusPending}

	assert.Equal(t, "pending_out", statusLabel(pending, 1))
	assert.Equal(t, "pending_in", statusLabel(pending, 2))

	accepted := model.Friendship{UserID: 1, FriendID: 2, Status: model.FriendStatusAccepted}
	assert.Equal(t, "accepted", statusLabel(accepted, 1))
	assert.Equal(t, "accepted", statusLabel(accepted, 2))
}

func TestMemberStatusLabel(t *testing.T) {
	assert.Equal(t, "none", memberStatusLabel(model.GroupMember{}, repository.ErrNotFound))
	assert.Equal(t, "pending", memberStatusLabel(model.GroupMember{Status: model.MemberStatusPending}, nil))
	assert.Equal(t, "member", memberStatusLabel(model.GroupMember{Status: model.MemberStatusAccepted}, nil))
}
