// Package users handles account registration and database-backed sessions.
package users

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"

	"github.com/camuig/miner-advisor/internal/storage"
)

const (
	pbkdf2Iterations = 260000
	sessionTTL       = 30 * 24 * time.Hour
)

var (
	ErrUserExists         = errors.New("username already taken")
	ErrUserLimitReached   = errors.New("registration closed, user limit reached")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session expired or revoked")
)

type Service struct {
	db       *gorm.DB
	maxUsers int
}

func NewService(db *gorm.DB, maxUsers int) *Service {
	return &Service{db: db, maxUsers: maxUsers}
}

// Register creates a user, enforcing the instance-wide account cap.
func (s *Service) Register(username, password string) (*storage.User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if len(username) < 3 || len(username) > 32 {
		return nil, fmt.Errorf("username must be 3-32 characters")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&storage.User{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return nil, err
	}
	if s.maxUsers > 0 && count >= int64(s.maxUsers) {
		return nil, ErrUserLimitReached
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	user := &storage.User{
		ID:       uuid.NewString(),
		Username: username,
		PwSalt:   hex.EncodeToString(salt),
		PwHash:   hashPassword(password, salt),
		IsActive: true,
	}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

// Authenticate verifies credentials and returns the user.
func (s *Service) Authenticate(username, password string) (*storage.User, error) {
	username = strings.TrimSpace(strings.ToLower(username))

	var user storage.User
	err := s.db.Where("username = ? AND is_active = ?", username, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	salt, err := hex.DecodeString(user.PwSalt)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(hashPassword(password, salt)), []byte(user.PwHash)) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// CreateSession issues a fresh token for the user.
func (s *Service) CreateSession(userID, userAgent string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)
	now := time.Now().UTC()
	session := &storage.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		LastSeen:  now,
		UserAgent: userAgent,
	}
	if err := s.db.Create(session).Error; err != nil {
		return "", err
	}
	return token, nil
}

// Verify resolves a session token to its owner id, sliding the last-seen
// timestamp forward. Stale sessions are deleted on sight.
func (s *Service) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrSessionExpired
	}

	var session storage.Session
	err := s.db.Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrSessionExpired
	}
	if err != nil {
		return "", err
	}

	if time.Since(session.LastSeen) > sessionTTL {
		s.db.Delete(&session)
		return "", ErrSessionExpired
	}

	var user storage.User
	err = s.db.Where("id = ? AND is_active = ?", session.UserID, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrSessionExpired
	}
	if err != nil {
		return "", err
	}

	s.db.Model(&session).Update("last_seen", time.Now().UTC())
	return session.UserID, nil
}

// Revoke logs out a single session. Unknown tokens are a no-op.
func (s *Service) Revoke(token string) error {
	return s.db.Where("token = ?", token).Delete(&storage.Session{}).Error
}

// Deactivate disables an account and drops all its sessions.
func (s *Service) Deactivate(userID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&storage.User{}).Where("id = ?", userID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&storage.Session{}).Error
	})
}

// PrimaryUserID returns the earliest-registered active user. The scheduler
// runs its cycle on behalf of this account.
func (s *Service) PrimaryUserID() (string, error) {
	var user storage.User
	err := s.db.Where("is_active = ?", true).Order("created_at ASC").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func hashPassword(password string, salt []byte) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New))
}

func validatePassword(password string) error {
	if len(password) < 10 {
		return fmt.Errorf("password must be at least 10 characters")
	}
	var hasLetter, hasOther bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasOther = true
		}
	}
	if !hasLetter || !hasOther {
		return fmt.Errorf("password needs a letter and a digit or symbol")
	}
	return nil
}
