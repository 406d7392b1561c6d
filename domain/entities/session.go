package entities

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxTitleRunes bounds fallback titles derived from the first user message.
const maxTitleRunes = 20

// Session is a chat thread between a user and one role.
type Session struct {
	SessionID string    `json:"session_id" gorm:"primaryKey;column:session_id"`
	UserID    string    `json:"user_id" gorm:"index;column:user_id"`
	RoleID    string    `json:"role_id" gorm:"column:role_id"`
	Title     string    `json:"title" gorm:"column:title"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index;column:updated_at"`
}

func (Session) TableName() string { return "sessions" }

// NewSessionID returns an opaque identifier for a new session.
func NewSessionID() string {
	return uuid.NewString()
}

// NewSession creates a session owned by userID and bound to roleID.
func NewSession(sessionID, userID, roleID string) *Session {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	now := time.Now()
	return &Session{
		SessionID: sessionID,
		UserID:    userID,
		RoleID:    roleID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanContinueWith reports whether a new message for roleID belongs to this session.
// Switching roles starts a new session.
func (s *Session) CanContinueWith(roleID string) bool {
	if s == nil {
		return false
	}
	return s.RoleID == roleID
}

// OwnedBy reports whether userID owns the session.
func (s *Session) OwnedBy(userID string) bool {
	return s != nil && s.UserID == userID
}

// Touch marks the session as active now.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}

// FallbackTitle derives a title from the first user message.
func FallbackTitle(message string) string {
	message = strings.Join(strings.Fields(message), " ")
	if utf8.RuneCountInString(message) <= maxTitleRunes {
		return message
	}
	runes := []rune(message)
	return string(runes[:maxTitleRunes]) + "…"
}

func (s *Session) Validate() error {
	if s.SessionID == "" {
		return errors.New("session_id is required")
	}
	if s.UserID == "" {
		return errors.New("user_id is required")
	}
	if s.RoleID == "" {
		return errors.New("role_id is required")
	}
	return nil
}
