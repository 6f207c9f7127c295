package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sileme/sileme/internal/model"
)

// TokenRepo persists and validates refresh tokens. Rows are device sessions:
// one active row per logged-in device, identified to clients by the row id.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash row and returns its id (the
// refresh_token_id handed back to clients).
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash, deviceName, userAgent, ip string, exp time.Time) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, device_name, user_agent, ip_address, expires_at) VALUES (?,?,?,?,?,?)",
		userID, tokenHash, deviceName, userAgent, ip, exp)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindActiveByHash returns the non-revoked row for a token hash. Expiry is
// the caller's problem: an expired row is still returned so the caller can
// revoke it on sight.
func (r *TokenRepo) FindActiveByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var t model.RefreshToken
	var revoked sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,token_hash,device_name,user_agent,ip_address,expires_at,revoked_at,created_at FROM refresh_tokens WHERE token_hash=? AND revoked_at IS NULL LIMIT 1",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.DeviceName, &t.UserAgent,
		&t.IPAddress, &t.ExpiresAt, &revoked, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return model.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revoked.Valid {
		t.RevokedAt = &revoked.Time
	}
	return t, nil
}

// Rotate revokes the old row and inserts the replacement in one transaction,
// so there is no window where both (or neither) refresh token validates.
// Returns the id of the new row.
func (r *TokenRepo) Rotate(ctx context.Context, oldID, userID uint64, newHash, deviceName, userAgent, ip string, exp time.Time) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE id=? AND revoked_at IS NULL", oldID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound // lost the race against another rotation
	}
	ins, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, device_name, user_agent, ip_address, expires_at) VALUES (?,?,?,?,?,?)",
		userID, newHash, deviceName, userAgent, ip, exp)
	if err != nil {
		return 0, err
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// RevokeByHash marks a token as revoked. Revoking an already-revoked or
// unknown hash is a no-op.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeByID revokes one device session owned by userID. Other devices keep
// their sessions.
func (r *TokenRepo) RevokeByID(ctx context.Context, id, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE id=? AND user_id=? AND revoked_at IS NULL",
		id, userID)
	return err
}

// RevokeAllForUser revokes all of a user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// ListForUser returns the user's token rows newest-first, for the device
// overview screen.
func (r *TokenRepo) ListForUser(ctx context.Context, userID uint64) ([]model.RefreshToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,token_hash,device_name,user_agent,ip_address,expires_at,revoked_at,created_at FROM refresh_tokens WHERE user_id=? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RefreshToken
	for rows.Next() {
		var t model.RefreshToken
		var revoked sql.NullTime
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.DeviceName, &t.UserAgent,
			&t.IPAddress, &t.ExpiresAt, &revoked, &t.CreatedAt); err != nil {
			return nil, err
		}
		if revoked.Valid {
			t.RevokedAt = &revoked.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
