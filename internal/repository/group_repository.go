package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"math/big"
	"time"

	"github.com/sileme/sileme/internal/model"
)

type GroupRepo struct{ DB *sql.DB }

func NewGroupRepo(db *sql.DB) *GroupRepo { return &GroupRepo{DB: db} }

const groupCols = "id,name,privacy,requires_approval,announcement,join_code,owner_id,created_at"

func scanGroup(sc interface{ Scan(...any) error }) (model.Group, error) {
	var g model.Group
	var ann sql.NullString
	err := sc.Scan(&g.ID, &g.Name, &g.Privacy, &g.RequiresApproval, &ann,
		&g.JoinCode, &g.OwnerID, &g.CreatedAt)
	if err != nil {
		return model.Group{}, err
	}
	if ann.Valid {
		g.Announcement = &ann.String
	}
	return g, nil
}

// GenerateJoinCode picks a random 4-digit code not currently in use.
func (r *GroupRepo) GenerateJoinCode(ctx context.Context) (string, error) {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", err
		}
		code := padCode(int(n.Int64()))
		var id uint64
		err = r.DB.QueryRowContext(ctx,
			"SELECT id FROM `groups` WHERE join_code=? LIMIT 1", code).Scan(&id)
		if err == sql.ErrNoRows {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func padCode(n int) string {
	digits := []byte{'0', '0', '0', '0'}
	for i := 3; i >= 0 && n > 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits)
}

// Create inserts the group and its owner membership in one transaction, so
// a group can never exist without exactly one owner.
func (r *GroupRepo) Create(ctx context.Context, name, privacy string, requiresApproval bool, joinCode string, ownerID uint64, announcement string) (model.Group, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Group{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO `groups` (name, privacy, requires_approval, announcement, join_code, owner_id) VALUES (?,?,?,?,?,?)",
		name, privacy, requiresApproval, announcement, joinCode, ownerID)
	if err != nil {
		return model.Group{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Group{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, role, status, requested_at, approved_at) VALUES (?,?,?,?,NOW(),NOW())",
		id, ownerID, model.GroupRoleOwner, model.MemberStatusAccepted); err != nil {
		return model.Group{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Group{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

func (r *GroupRepo) GetByID(ctx context.Context, id uint64) (model.Group, error) {
	g, err := scanGroup(r.DB.QueryRowContext(ctx,
		"SELECT "+groupCols+" FROM `groups` WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return model.Group{}, ErrNotFound
	}
	return g, err
}

func (r *GroupRepo) GetByJoinCode(ctx context.Context, code string) (model.Group, error) {
	g, err := scanGroup(r.DB.QueryRowContext(ctx,
		"SELECT "+groupCols+" FROM `groups` WHERE join_code=? LIMIT 1", code))
	if err == sql.ErrNoRows {
		return model.Group{}, ErrNotFound
	}
	return g, err
}

// ListAll returns every group, newest first.
func (r *GroupRepo) ListAll(ctx context.Context) ([]model.Group, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+groupCols+" FROM `groups` ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *GroupRepo) UpdateName(ctx context.Context, id uint64, name string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE `groups` SET name=? WHERE id=?", name, id)
	return err
}

func (r *GroupRepo) UpdateAnnouncement(ctx context.Context, id uint64, announcement string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE `groups` SET announcement=? WHERE id=?", announcement, id)
	return err
}

// UpdateJoinCode swaps the invite code in a single UPDATE: there is no
// window where the old and new codes both validate.
func (r *GroupRepo) UpdateJoinCode(ctx context.Context, id uint64, code string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE `groups` SET join_code=? WHERE id=?", code, id)
	return err
}

// GetMember returns the membership row for (group, user), ErrNotFound when
// the user has no relationship with the group.
func (r *GroupRepo) GetMember(ctx context.Context, groupID, userID uint64) (model.GroupMember, error) {
	var m model.GroupMember
	var approved sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,group_id,user_id,role,status,requested_at,approved_at FROM group_members WHERE group_id=? AND user_id=? LIMIT 1",
		groupID, userID).Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.Status, &m.RequestedAt, &approved)
	if err == sql.ErrNoRows {
		return model.GroupMember{}, ErrNotFound
	}
	if err != nil {
		return model.GroupMember{}, err
	}
	if approved.Valid {
		m.ApprovedAt = &approved.Time
	}
	return m, nil
}

// AcceptedMembers returns the full membership rows of everyone in the group.
func (r *GroupRepo) AcceptedMembers(ctx context.Context, groupID uint64) ([]model.GroupMember, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,group_id,user_id,role,status,requested_at,approved_at FROM group_members WHERE group_id=? AND status=? ORDER BY id",
		groupID, model.MemberStatusAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GroupMember
	for rows.Next() {
		var m model.GroupMember
		var approved sql.NullTime
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.Status, &m.RequestedAt, &approved); err != nil {
			return nil, err
		}
		if approved.Valid {
			m.ApprovedAt = &approved.Time
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AdminIDs returns the user ids of the group's owner and admins.
func (r *GroupRepo) AdminIDs(ctx context.Context, groupID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT user_id FROM group_members WHERE group_id=? AND status=? AND role IN (?,?)",
		groupID, model.MemberStatusAccepted, model.GroupRoleOwner, model.GroupRoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CreateMember inserts a membership row with the given status.
func (r *GroupRepo) CreateMember(ctx context.Context, groupID, userID uint64, status string, approved bool) error {
	if approved {
		_, err := r.DB.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, role, status, requested_at, approved_at) VALUES (?,?,?,?,NOW(),NOW())",
			groupID, userID, model.GroupRoleMember, status)
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, role, status, requested_at) VALUES (?,?,?,?,NOW())",
		groupID, userID, model.GroupRoleMember, status)
	return err
}

// ReopenMember flips an old (previously rejected or left) row back to the
// given status with a fresh request timestamp.
func (r *GroupRepo) ReopenMember(ctx context.Context, memberID uint64, status string, approve bool) error {
	if approve {
		_, err := r.DB.ExecContext(ctx,
			"UPDATE group_members SET status=?, requested_at=NOW(), approved_at=NOW() WHERE id=?",
			status, memberID)
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE group_members SET status=?, requested_at=NOW(), approved_at=NULL WHERE id=?",
		status, memberID)
	return err
}

// TouchRequestedAt refreshes the request timestamp on a pending row after
// the cooldown has elapsed.
func (r *GroupRepo) TouchRequestedAt(ctx context.Context, memberID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE group_members SET requested_at=NOW() WHERE id=?", memberID)
	return err
}

// ApproveMember flips a pending request to accepted, rewrites the admin's
// originating join-request notification (kind + message + read) and notifies
// the applicant, all in one transaction so the notification state can never
// drift from the membership state.
func (r *GroupRepo) ApproveMember(ctx context.Context, groupID, userID, adminID uint64, adminMsg, applicantMsg string) error {
	return r.resolvePending(ctx, groupID, userID, adminID,
		model.NotifGroupJoinApproved, adminMsg, applicantMsg, true)
}

// RejectMember removes a pending request with the same notification
// bookkeeping as ApproveMember.
func (r *GroupRepo) RejectMember(ctx context.Context, groupID, userID, adminID uint64, adminMsg, applicantMsg string) error {
	return r.resolvePending(ctx, groupID, userID, adminID,
		model.NotifGroupJoinRejected, adminMsg, applicantMsg, false)
}

func (r *GroupRepo) resolvePending(ctx context.Context, groupID, userID, adminID uint64, kind, adminMsg, applicantMsg string, approve bool) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var res sql.Result
	if approve {
		res, err = tx.ExecContext(ctx,
			"UPDATE group_members SET status=?, approved_at=NOW() WHERE group_id=? AND user_id=? AND status=?",
			model.MemberStatusAccepted, groupID, userID, model.MemberStatusPending)
	} else {
		res, err = tx.ExecContext(ctx,
			"DELETE FROM group_members WHERE group_id=? AND user_id=? AND status=?",
			groupID, userID, model.MemberStatusPending)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	// Rewrite the admin's join-request notice in place; the kind column is
	// the authoritative status and approving also marks it read.
	if _, err := tx.ExecContext(ctx,
		`UPDATE notifications SET kind=?, message=?, read_at=COALESCE(read_at, NOW())
		 WHERE user_id=? AND related_group_id=? AND related_user_id=? AND kind=?`,
		kind, adminMsg, adminID, groupID, userID, model.NotifGroupJoinRequest); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO notifications (user_id, from_user_id, related_group_id, related_user_id, kind, message) VALUES (?,?,?,?,?,?)",
		userID, adminID, groupID, adminID, kind, applicantMsg); err != nil {
		return err
	}
	return tx.Commit()
}

// Encouragements returns the group wall, newest first.
func (r *GroupRepo) Encouragements(ctx context.Context, groupID uint64, limit int) ([]model.GroupEncouragement, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,group_id,user_id,emoji,message,created_at FROM group_encouragements WHERE group_id=? ORDER BY created_at DESC, id DESC LIMIT ?",
		groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GroupEncouragement
	for rows.Next() {
		var e model.GroupEncouragement
		var msg sql.NullString
		if err := rows.Scan(&e.ID, &e.GroupID, &e.UserID, &e.Emoji, &msg, &e.CreatedAt); err != nil {
			return nil, err
		}
		if msg.Valid {
			e.Message = &msg.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateEncouragement appends to the group wall.
func (r *GroupRepo) CreateEncouragement(ctx context.Context, groupID, userID uint64, emoji string, message *string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO group_encouragements (group_id, user_id, emoji, message) VALUES (?,?,?,?)",
		groupID, userID, emoji, message)
	return err
}

// CreateReminderLog records a whole-group reminder.
func (r *GroupRepo) CreateReminderLog(ctx context.Context, groupID, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO group_reminders (group_id, user_id) VALUES (?,?)", groupID, userID)
	return err
}

// ApplyCooldown is how long a pending applicant must wait before re-applying.
const ApplyCooldown = 24 * time.Hour
