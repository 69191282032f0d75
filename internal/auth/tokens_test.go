package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, d time.Duration) *TokenService {
	t.Helper()
	key, err := LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	svc, err := NewTokenService(key, d)
	require.NoError(t, err)
	return svc
}

func TestPublisherToken_RoundTrip(t *testing.T) {
	svc := newTestService(t, time.Hour)

	token, err := svc.IssuePublisherToken(42)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, RolePublisher, claims.Role)
	assert.Equal(t, int64(42), claims.PublisherID)
	assert.Equal(t, "publisher:42", claims.Subject)
	assert.True(t, claims.CanActFor(42))
	assert.False(t, claims.CanActFor(43))
	assert.False(t, claims.IsAdmin())
}

func TestAdminToken_CanActForAnyone(t *testing.T) {
	svc := newTestService(t, time.Hour)

	token, err := svc.IssueAdminToken("ops")
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
	assert.True(t, claims.CanActFor(1))
	assert.True(t, claims.CanActFor(999))
}

func TestVerifyAccessToken_Rejects(t *testing.T) {
	svc := newTestService(t, time.Hour)
	other := newTestService(t, time.Hour)

	token, err := other.IssuePublisherToken(1)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err, "token from a different key")

	_, err = svc.VerifyAccessToken("v4.local.garbage")
	assert.Error(t, err)

	expired := newTestService(t, -time.Minute)
	token, err = expired.IssueAdminToken("ops")
	require.NoError(t, err)
	_, err = expired.VerifyAccessToken(token)
	assert.Error(t, err, "expired token")
}

func TestIssuePublisherToken_RequiresID(t *testing.T) {
	svc := newTestService(t, time.Hour)
	_, err := svc.IssuePublisherToken(0)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey_Persists(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, first, keyLength)

	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("abc"), 0o600))
	_, err = LoadOrGenerateKey(dir)
	assert.Error(t, err)
}

func TestNewTokenService_KeyLength(t *testing.T) {
	_, err := NewTokenService(make([]byte, 16), time.Hour)
	assert.Error(t, err)
}
