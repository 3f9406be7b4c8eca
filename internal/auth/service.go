package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters and not resemble the email")
)

// maxEmailSimilarity is the difflib quick ratio above which a password is
// considered derived from the account email.
const maxEmailSimilarity = 0.7

// Authenticator logs admins in and rotates their refresh tokens.
type Authenticator struct {
	store      *Store
	issuer     string
	key        string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewAuthenticator creates an authenticator signing HS256 tokens with key.
func NewAuthenticator(store *Store, issuer, key string, accessTTL, refreshTTL time.Duration) *Authenticator {
	return &Authenticator{
		store:      store,
		issuer:     issuer,
		key:        key,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// CreateAdmin hashes password with bcrypt and stores the account.
func (a *Authenticator) CreateAdmin(ctx context.Context, email, password string) (Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Admin{}, errors.New("email is required")
	}
	if len(password) < 8 || resemblesEmail(password, email) {
		return Admin{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Admin{}, fmt.Errorf("hash password: %w", err)
	}
	admin := Admin{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    a.now().UTC(),
	}
	if err := a.store.InsertAdmin(ctx, admin); err != nil {
		return Admin{}, fmt.Errorf("insert admin: %w", err)
	}
	return admin, nil
}

// Login checks the password and issues a token pair.
func (a *Authenticator) Login(ctx context.Context, email, password string) (TokenPair, error) {
	admin, err := a.store.AdminByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return TokenPair{}, err
	}
	if admin == nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return a.issue(ctx, admin.ID, admin.Email)
}

// Refresh exchanges a valid refresh token for a new pair and revokes the old one.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := Parse(refreshToken, a.key, a.issuer, KindRefresh)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	ok, err := a.store.RedeemRefresh(ctx, refreshToken, a.now())
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, ErrInvalidToken
	}
	return a.issue(ctx, claims.Subject, claims.Email)
}

// Logout revokes the refresh token. Unknown tokens are not an error.
func (a *Authenticator) Logout(ctx context.Context, refreshToken string) error {
	revoked, err := a.store.RevokeRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if !revoked {
		slog.Debug("logout with unknown refresh token")
	}
	return nil
}

func (a *Authenticator) issue(ctx context.Context, adminID, email string) (TokenPair, error) {
	pair, err := Issue(adminID, email, a.issuer, a.key, a.now(), a.accessTTL, a.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign tokens: %w", err)
	}
	if err := a.store.SaveRefresh(ctx, pair.RefreshToken, adminID, pair.RefreshExp); err != nil {
		return TokenPair{}, fmt.Errorf("save refresh token: %w", err)
	}
	return pair, nil
}

func resemblesEmail(password, email string) bool {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return false
	}
	m := difflib.NewMatcher(strings.Split(strings.ToLower(password), ""), strings.Split(local, ""))
	return m.QuickRatio() >= maxEmailSimilarity
}
