package users

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/camuig/miner-advisor/internal/storage"
)

func newTestService(t *testing.T, maxUsers int) (*Service, *gorm.DB) {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "users_test.db"))
	require.NoError(t, err)
	return NewService(db, maxUsers), db
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t, 5)

	user, err := svc.Register("Alice", "correct horse 1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "correct horse 1", user.PwHash)

	got, err := svc.Authenticate("ALICE", "correct horse 1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate("alice", "wrong password 1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate("nobody", "correct horse 1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t, 5)

	_, err := svc.Register("alice", "correct horse 1")
	require.NoError(t, err)

	_, err = svc.Register("alice", "another pass 2")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterUserLimit(t *testing.T) {
	svc, _ := newTestService(t, 2)

	_, err := svc.Register("alice", "correct horse 1")
	require.NoError(t, err)
	_, err = svc.Register("bob", "correct horse 1")
	require.NoError(t, err)

	_, err = svc.Register("carol", "correct horse 1")
	assert.ErrorIs(t, err, ErrUserLimitReached)
}

func TestPasswordValidation(t *testing.T) {
	svc, _ := newTestService(t, 5)

	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"too short", "abc123", false},
		{"letters only", "onlyletters", false},
		{"digits only", "12345678901", false},
		{"letter plus digit", "goodenough1", true},
		{"letter plus symbol", "goodenough!", true},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register("user"+string(rune('a'+i)), tc.password)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc, _ := newTestService(t, 5)

	user, err := svc.Register("alice", "correct horse 1")
	require.NoError(t, err)

	token, err := svc.CreateSession(user.ID, "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ownerID, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, ownerID)

	require.NoError(t, svc.Revoke(token))
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestVerifyRejectsEmptyAndUnknownTokens(t *testing.T) {
	svc, _ := newTestService(t, 5)

	_, err := svc.Verify("")
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = svc.Verify("deadbeef")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestExpiredSessionDeleted(t *testing.T) {
	svc, db := newTestService(t, 5)

	user, err := svc.Register("alice", "correct horse 1")
	require.NoError(t, err)
	token, err := svc.CreateSession(user.ID, "")
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-sessionTTL - time.Hour)
	require.NoError(t, db.Model(&storage.Session{}).Where("token = ?", token).
		Update("last_seen", stale).Error)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	var count int64
	require.NoError(t, db.Model(&storage.Session{}).Where("token = ?", token).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeactivateKillsSessions(t *testing.T) {
	svc, _ := newTestService(t, 5)

	user, err := svc.Register("alice", "correct horse 1")
	require.NoError(t, err)
	token, err := svc.CreateSession(user.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(user.ID))

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = svc.Authenticate("alice", "correct horse 1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPrimaryUserIsEarliestActive(t *testing.T) {
	svc, db := newTestService(t, 5)

	first, err := svc.Register("alice", "correct horse 1")
	require.NoError(t, err)
	second, err := svc.Register("bob", "correct horse 1")
	require.NoError(t, err)

	// Force distinct creation times; sqlite timestamps can collide in-test.
	require.NoError(t, db.Model(&storage.User{}).Where("id = ?", first.ID).
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)

	id, err := svc.PrimaryUserID()
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	require.NoError(t, svc.Deactivate(first.ID))
	id, err = svc.PrimaryUserID()
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)
}

func TestPrimaryUserEmptyWhenNoUsers(t *testing.T) {
	svc, _ := newTestService(t, 5)

	id, err := svc.PrimaryUserID()
	require.NoError(t, err)
	assert.Empty(t, id)
}
