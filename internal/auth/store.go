package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

// Admin is an account allowed to use the management API.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists admins and refresh tokens. Refresh tokens are stored as
// SHA-256 digests, never in plaintext.
type Store struct {
	db *sql.DB
}

// NewStore creates a store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertAdmin writes a new admin account.
func (s *Store) InsertAdmin(ctx context.Context, a Admin) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, a.ID, a.Email, a.PasswordHash, a.CreatedAt)
	return err
}

// AdminByEmail returns nil when no admin has the email.
func (s *Store) AdminByEmail(ctx context.Context, email string) (*Admin, error) {
	var a Admin
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM admins WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveRefresh records a freshly issued refresh token.
func (s *Store) SaveRefresh(ctx context.Context, token, adminID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, admin_id, expires_at, revoked)
		VALUES ($1, $2, $3, $4)
	`, digest(token), adminID, expiresAt.UTC(), false)
	return err
}

// RedeemRefresh revokes token if it is known, unrevoked and unexpired at now.
// The check and the revoke are one statement, so of several concurrent
// redemptions exactly one reports true.
func (s *Store) RedeemRefresh(ctx context.Context, token string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = $1
		WHERE token = $2 AND revoked = $3 AND expires_at > $4
	`, true, digest(token), false, now.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RevokeRefresh marks token revoked; it reports false when the token was unknown.
func (s *Store) RevokeRefresh(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = $1 WHERE token = $2`, true, digest(token))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
