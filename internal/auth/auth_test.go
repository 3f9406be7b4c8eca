package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/store"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "rollcall-test"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	db, err := store.NewDB(store.DriverSQLite, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return NewAuthenticator(NewStore(db.Client), testIssuer, testKey, 15*time.Minute, time.Hour)
}

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("admin-1", "a@example.com", testIssuer, testKey, time.Now(), time.Minute, time.Hour)
	require.NoError(t, err)

	claims, err := Parse(pair.AccessToken, testKey, testIssuer, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)

	_, err = Parse(pair.RefreshToken, testKey, testIssuer, KindAccess)
	assert.Error(t, err, "refresh token must not pass as access token")
	_, err = Parse(pair.AccessToken, "other-key", testIssuer, KindAccess)
	assert.Error(t, err)
	_, err = Parse(pair.AccessToken, testKey, "someone-else", KindAccess)
	assert.Error(t, err)

	expired, err := Issue("admin-1", "a@example.com", testIssuer, testKey, time.Now().Add(-2*time.Hour), time.Minute, time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired.AccessToken, testKey, testIssuer, KindAccess)
	assert.Error(t, err)
}

func TestLoginRefreshLogout(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	admin, err := a.CreateAdmin(ctx, " Admin@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.NotEqual(t, "correct horse", admin.PasswordHash)

	_, err = a.Login(ctx, "admin@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	pair, err := a.Login(ctx, "ADMIN@example.com", "correct horse")
	require.NoError(t, err)

	next, err := a.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = a.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "rotated token is revoked")

	require.NoError(t, a.Logout(ctx, next.RefreshToken))
	_, err = a.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, a.Logout(ctx, "never-issued"))
	_, err = a.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestConcurrentRefreshRedeemsOnce(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()
	_, err := a.CreateAdmin(ctx, "ops@example.com", "correct horse")
	require.NoError(t, err)
	pair, err := a.Login(ctx, "ops@example.com", "correct horse")
	require.NoError(t, err)

	const callers = 4
	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Refresh(ctx, pair.RefreshToken); err == nil {
				success.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrInvalidToken)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, success.Load())
}

func TestRedeemRefreshRejectsExpired(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()
	admin, err := a.CreateAdmin(ctx, "ops@example.com", "correct horse")
	require.NoError(t, err)

	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	require.NoError(t, a.store.SaveRefresh(ctx, "tok-live", admin.ID, now.Add(time.Hour)))
	require.NoError(t, a.store.SaveRefresh(ctx, "tok-old", admin.ID, now.Add(-time.Minute)))

	ok, err := a.store.RedeemRefresh(ctx, "tok-old", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.store.RedeemRefresh(ctx, "tok-live", now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = a.store.RedeemRefresh(ctx, "tok-live", now)
	require.NoError(t, err)
	assert.False(t, ok, "a redeemed token is revoked")

	ok, err = a.store.RedeemRefresh(ctx, "never-issued", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateAdminRejectsWeakAndDuplicate(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	_, err := a.CreateAdmin(ctx, "x@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
	_, err = a.CreateAdmin(ctx, "jordan.smith@example.com", "SmithJordan!")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = a.CreateAdmin(ctx, "x@example.com", "long enough")
	require.NoError(t, err)
	_, err = a.CreateAdmin(ctx, "X@example.com", "long enough")
	assert.Error(t, err)
}

func TestAdminAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", AdminAuth(testKey, testIssuer), func(c *gin.Context) {
		c.String(http.StatusOK, AdminID(c))
	})

	pair, err := Issue("admin-7", "a@example.com", testIssuer, testKey, time.Now(), time.Minute, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"access token", "Bearer " + pair.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "admin-7", rec.Body.String())
			}
		})
	}
}
