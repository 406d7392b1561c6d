package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultRoleID is the role every new installation starts with.
const DefaultRoleID = "1"

// Role is a persona the assistant plays. Its prompt becomes the system message.
type Role struct {
	ID          string    `json:"id" gorm:"primaryKey;column:id"`
	CreatedBy   string    `json:"created_by" gorm:"column:created_by"`
	IsDefault   bool      `json:"is_default" gorm:"column:is_default"`
	Name        string    `json:"name" gorm:"column:name"`
	PictureURL  string    `json:"picture_url" gorm:"column:picture_url"`
	VoiceID     string    `json:"voice_id" gorm:"column:voice_id"`
	AuditionURL string    `json:"audition_url" gorm:"column:audition_url"`
	Prompt      string    `json:"prompt" gorm:"column:prompt"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Role) TableName() string { return "roles" }

// DefaultRole returns the seeded role used when a user never switched roles.
func DefaultRole() *Role {
	return &Role{
		ID:        DefaultRoleID,
		IsDefault: true,
		Name:      "default",
		Prompt:    "You are a Hearthstone expert. I will ask you questions about Hearthstone.",
	}
}

// NewRole creates a role with a fresh id.
func NewRole(createdBy, name, prompt string) *Role {
	return &Role{
		ID:        uuid.NewString(),
		CreatedBy: createdBy,
		Name:      name,
		Prompt:    prompt,
	}
}

func (r *Role) Validate() error {
	if r.ID == "" {
		return errors.New("role id is required")
	}
	if r.Name == "" {
		return errors.New("role name is required")
	}
	if r.Prompt == "" {
		return errors.New("role prompt is required")
	}
	return nil
}

// UserRole records which role a user switched to. ID is the user id.
type UserRole struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	RoleID    string    `json:"role_id" gorm:"column:role_id"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (UserRole) TableName() string { return "user_role" }

// Section is one user/assistant exchange inside a session.
type Section struct {
	SectionID        string    `json:"section_id" gorm:"primaryKey;column:section_id"`
	SessionID        string    `json:"session_id" gorm:"index;column:session_id"`
	UserMessage      string    `json:"user_message" gorm:"column:user_message"`
	AssistantMessage string    `json:"assistant_message" gorm:"column:assistant_message"`
	CreatedAt        time.Time `json:"created_at" gorm:"index;column:created_at"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Section) TableName() string { return "sections" }

// NewSection creates a section with a fresh id.
func NewSection(sessionID, userMessage, assistantMessage string) *Section {
	return &Section{
		SectionID:        uuid.NewString(),
		SessionID:        sessionID,
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	}
}
