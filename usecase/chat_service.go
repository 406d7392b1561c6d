package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain"
	"github.com/all2prosperity/audio-svc/domain/entities"
	"github.com/all2prosperity/audio-svc/domain/repositories"
)

const (
	// SectionLimit is how many previous exchanges are replayed to the model.
	SectionLimit = 2

	// TitlePrompt asks the model for a short session title.
	TitlePrompt = "Generate a title for this conversation. Reply with the title only, at most 10 words."

	maxTitleRunes = 40
)

var (
	ErrRoleNotFound    = errors.New("role not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message is required")
)

// ChatInput is one user message. Empty SessionID starts a new session,
// empty RoleID uses the user's current role.
type ChatInput struct {
	UserID    string
	DeviceID  string
	SessionID string
	RoleID    string
	Message   string
}

// ChatService handles conversation logic
type ChatService struct {
	store     repositories.Store
	llm       repositories.LargeLanguageModel
	roles     *RoleService
	publisher repositories.Publisher
	logger    *zap.Logger
}

// NewChatService creates a new chat service. publisher may be nil.
func NewChatService(
	store repositories.Store,
	llm repositories.LargeLanguageModel,
	roles *RoleService,
	publisher repositories.Publisher,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		store:     store,
		llm:       llm,
		roles:     roles,
		publisher: publisher,
		logger:    logger,
	}
}

// Chat sends input.Message to the model in the context of its session.
func (s *ChatService) Chat(ctx context.Context, input ChatInput) (domain.ChatResponse, error) {
	if strings.TrimSpace(input.Message) == "" {
		return domain.ChatResponse{}, ErrEmptyMessage
	}

	role, err := s.resolveRole(ctx, input.UserID, input.RoleID)
	if err != nil {
		return domain.ChatResponse{}, err
	}

	sessionID, isFirst, err := s.resolveSession(ctx, input.SessionID, input.UserID, role.ID)
	if err != nil {
		return domain.ChatResponse{}, err
	}

	messages := []repositories.ChatMessage{
		{Role: repositories.SystemRole, Content: role.Prompt},
	}
	if !isFirst {
		previous, err := s.previousExchanges(ctx, sessionID)
		if err != nil {
			return domain.ChatResponse{}, err
		}
		messages = append(messages, previous...)
	}
	messages = append(messages, repositories.ChatMessage{Role: repositories.UserRole, Content: input.Message})

	reply, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("failed to get model reply: %w", err)
	}

	if isFirst {
		session := entities.NewSession(sessionID, input.UserID, role.ID)
		session.Title = s.generateTitle(ctx, input.Message, reply)
		if err := s.store.Sessions().Create(ctx, session); err != nil {
			return domain.ChatResponse{}, err
		}
	}

	if err := s.store.Sections().Create(ctx, entities.NewSection(sessionID, input.Message, reply)); err != nil {
		return domain.ChatResponse{}, err
	}
	if !isFirst {
		if err := s.store.Sessions().Touch(ctx, sessionID); err != nil {
			return domain.ChatResponse{}, err
		}
	}

	s.publishExchange(input.DeviceID, input.Message, reply)

	s.logger.Info("Chat message processed",
		zap.String("userID", input.UserID),
		zap.String("sessionID", sessionID),
		zap.String("roleID", role.ID),
		zap.Bool("newSession", isFirst))

	return domain.ChatResponse{
		Message:   reply,
		SessionID: sessionID,
		RoleID:    role.ID,
	}, nil
}

// History lists the user's sessions, most recently active first.
// page counts pages of limit sessions.
func (s *ChatService) History(ctx context.Context, userID string, page, limit int64) (domain.ChatHistoryPayload, error) {
	page, limit = normalizePage(page, limit)

	sessions, err := s.store.Sessions().ListByUser(ctx, userID, int(page*limit), int(limit))
	if err != nil {
		return domain.ChatHistoryPayload{}, err
	}
	total, err := s.store.Sessions().CountByUser(ctx, userID)
	if err != nil {
		return domain.ChatHistoryPayload{}, err
	}

	roleNames := map[string]string{}
	history := make([]domain.ChatHistoryItem, 0, len(sessions))
	for _, session := range sessions {
		name, ok := roleNames[session.RoleID]
		if !ok {
			name = session.RoleID
			if role, err := s.store.Roles().GetByID(ctx, session.RoleID); err == nil {
				name = role.Name
			}
			roleNames[session.RoleID] = name
		}

		history = append(history, domain.ChatHistoryItem{
			ChatID:   session.SessionID,
			Title:    session.Title,
			RoleName: name,
		})
	}

	return domain.ChatHistoryPayload{
		History: history,
		Page:    page,
		Total:   total,
	}, nil
}

// SessionHistory lists the exchanges of one of the user's sessions, newest first.
func (s *ChatService) SessionHistory(ctx context.Context, userID, chatID string, page, limit int64) (domain.SessionHistoryResponse, error) {
	page, limit = normalizePage(page, limit)

	session, err := s.store.Sessions().GetByID(ctx, chatID)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && !session.OwnedBy(userID)) {
		return domain.SessionHistoryResponse{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionHistoryResponse{}, err
	}

	sections, err := s.store.Sections().ListBySession(ctx, chatID, int(page*limit), int(limit))
	if err != nil {
		return domain.SessionHistoryResponse{}, err
	}
	total, err := s.store.Sections().CountBySession(ctx, chatID)
	if err != nil {
		return domain.SessionHistoryResponse{}, err
	}

	history := make([]domain.SessionHistoryItem, 0, len(sections))
	for _, section := range sections {
		history = append(history, domain.SessionHistoryItem{
			ID:        section.SectionID,
			User:      section.UserMessage,
			Assistant: section.AssistantMessage,
		})
	}

	return domain.SessionHistoryResponse{
		Code:    domain.CodeOK,
		Msg:     "ok",
		History: history,
		Page:    page,
		Limit:   limit,
		Total:   total,
	}, nil
}

// AddRole creates a role owned by userID.
func (s *ChatService) AddRole(ctx context.Context, userID, name, prompt string) (*entities.Role, error) {
	role := entities.NewRole(userID, strings.TrimSpace(name), strings.TrimSpace(prompt))
	if err := role.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Roles().Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *ChatService) resolveRole(ctx context.Context, userID, roleID string) (*entities.Role, error) {
	if roleID == "" {
		return s.roles.Current(ctx, userID)
	}

	role, err := s.store.Roles().GetByID(ctx, roleID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrRoleNotFound
	}
	return role, err
}

// resolveSession keeps sessionID when userID owns it with the same role,
// otherwise a new session starts.
func (s *ChatService) resolveSession(ctx context.Context, sessionID, userID, roleID string) (string, bool, error) {
	if sessionID == "" {
		return entities.NewSessionID(), true, nil
	}

	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return entities.NewSessionID(), true, nil
	}
	if err != nil {
		return "", false, err
	}
	if !session.OwnedBy(userID) || !session.CanContinueWith(roleID) {
		return entities.NewSessionID(), true, nil
	}
	return sessionID, false, nil
}

func (s *ChatService) previousExchanges(ctx context.Context, sessionID string) ([]repositories.ChatMessage, error) {
	sections, err := s.store.Sections().ListBySession(ctx, sessionID, 0, SectionLimit)
	if err != nil {
		return nil, err
	}

	messages := make([]repositories.ChatMessage, 0, len(sections)*2)
	for i := len(sections) - 1; i >= 0; i-- {
		messages = append(messages,
			repositories.ChatMessage{Role: repositories.UserRole, Content: sections[i].UserMessage},
			repositories.ChatMessage{Role: repositories.AssistantRole, Content: sections[i].AssistantMessage},
		)
	}
	return messages, nil
}

func (s *ChatService) generateTitle(ctx context.Context, message, reply string) string {
	title, err := s.llm.Complete(ctx, []repositories.ChatMessage{
		{Role: repositories.SystemRole, Content: TitlePrompt},
		{Role: repositories.UserRole, Content: message},
		{Role: repositories.AssistantRole, Content: reply},
		{Role: repositories.UserRole, Content: TitlePrompt},
	})
	if err != nil {
		s.logger.Warn("Failed to generate session title", zap.Error(err))
		return entities.FallbackTitle(message)
	}

	title = strings.Trim(strings.TrimSpace(title), `"'“”`)
	if title == "" {
		return entities.FallbackTitle(message)
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = string([]rune(title)[:maxTitleRunes])
	}
	return title
}

// publishExchange runs in the background; the reply never waits on the broker.
func (s *ChatService) publishExchange(deviceID, message, reply string) {
	if s.publisher == nil || deviceID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.PublishMessage(ctx, deviceID, message, reply); err != nil {
			s.logger.Warn("Failed to publish chat message",
				zap.String("deviceID", deviceID),
				zap.Error(err))
		}
	}()
}

func normalizePage(page, limit int64) (int64, int64) {
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
