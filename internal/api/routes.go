package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/all2prosperity/audio-svc/domain"
	"github.com/all2prosperity/audio-svc/domain/entities"
	"github.com/all2prosperity/audio-svc/internal/auth"
	"github.com/all2prosperity/audio-svc/internal/websocket"
	"github.com/all2prosperity/audio-svc/usecase"
)

// Dependencies are the services behind the HTTP routes.
type Dependencies struct {
	Chat  *usecase.ChatService
	Roles *usecase.RoleService
	Hub   *websocket.Hub
	// Signer enables bearer token checks when set.
	Signer *auth.Signer
	Logger *zap.Logger
}

type handlers struct {
	chat   *usecase.ChatService
	roles  *usecase.RoleService
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies) {
	h := &handlers{chat: deps.Chat, roles: deps.Roles, logger: deps.Logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Stream endpoints authenticate nothing; the device id is optional.
	e.GET("/api/stream", deps.Hub.ServeStream)
	e.GET("/api/ws/stream", deps.Hub.ServeStream)

	g := e.Group("/api", Authenticate(deps.Signer, deps.Logger))

	g.GET("/roles", h.getRoles)
	g.POST("/role/switch", h.switchRole)

	g.POST("/chat", h.chatMessage)
	g.GET("/chat/history", h.chatHistory)
	g.POST("/chat/session_history", h.sessionHistory)
	g.POST("/add_role", h.addRole)
}

func (h *handlers) getRoles(c echo.Context) error {
	if c.Request().Header.Get(domain.HeaderDeviceID) == "" {
		return c.JSON(http.StatusOK, domain.NewRoleErrorResponse("Missing device ID"))
	}

	roles, err := h.roles.List(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to list roles", zap.Error(err))
		return internalError(c, "Failed to list roles")
	}

	return c.JSON(http.StatusOK, domain.NewRoleResponse(roleInfos(roles)))
}

func (h *handlers) switchRole(c echo.Context) error {
	if c.Request().Header.Get(domain.HeaderDeviceID) == "" {
		return c.JSON(http.StatusOK, domain.NewCommonErrorResponse("Missing device ID"))
	}

	var req domain.SwitchRoleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}
	if req.RoleID == "" {
		return badRequest(c, "role_id is required")
	}

	err := h.roles.Switch(c.Request().Context(), currentUser(c), req.RoleID)
	if errors.Is(err, usecase.ErrRoleNotFound) {
		return c.JSON(http.StatusOK, domain.NewCommonErrorResponse(err.Error()))
	}
	if err != nil {
		h.logger.Error("Failed to switch role",
			zap.String("userID", currentUser(c)),
			zap.Error(err))
		return internalError(c, "Failed to switch role")
	}

	return c.JSON(http.StatusOK, domain.NewCommonResponse())
}

func (h *handlers) chatMessage(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	resp, err := h.chat.Chat(c.Request().Context(), usecase.ChatInput{
		UserID:    currentUser(c),
		DeviceID:  currentDevice(c),
		SessionID: req.SessionID,
		RoleID:    req.RoleID,
		Message:   req.Message,
	})
	switch {
	case errors.Is(err, usecase.ErrEmptyMessage), errors.Is(err, usecase.ErrRoleNotFound):
		return badRequest(c, err.Error())
	case err != nil:
		h.logger.Error("Chat failed",
			zap.String("userID", currentUser(c)),
			zap.String("sessionID", req.SessionID),
			zap.Error(err))
		return internalError(c, "Failed to process chat message")
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *handlers) chatHistory(c echo.Context) error {
	var req domain.ChatHistoryRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return badRequest(c, "Invalid query parameters")
	}

	payload, err := h.chat.History(c.Request().Context(), currentUser(c), req.Offset, req.Limit)
	if err != nil {
		h.logger.Error("Failed to get chat history", zap.Error(err))
		return internalError(c, "Failed to get chat history")
	}

	return c.JSON(http.StatusOK, domain.ChatHistoryResponse{
		Code:    domain.CodeOK,
		Msg:     "ok",
		Payload: payload,
	})
}

func (h *handlers) sessionHistory(c echo.Context) error {
	var req domain.SessionHistoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	resp, err := h.chat.SessionHistory(c.Request().Context(), currentUser(c), req.ChatID, req.Offset, req.Limit)
	if errors.Is(err, usecase.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	}
	if err != nil {
		h.logger.Error("Failed to get chat session history",
			zap.String("chatID", req.ChatID),
			zap.Error(err))
		return internalError(c, "Failed to get chat session history")
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *handlers) addRole(c echo.Context) error {
	var req domain.AddRoleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Prompt) == "" {
		return badRequest(c, "name and prompt are required")
	}

	role, err := h.chat.AddRole(c.Request().Context(), currentUser(c), req.Name, req.Prompt)
	if err != nil {
		h.logger.Error("Failed to add role", zap.Error(err))
		return internalError(c, "Failed to add role")
	}

	h.logger.Info("Role added",
		zap.String("roleID", role.ID),
		zap.String("userID", currentUser(c)))
	return c.JSON(http.StatusOK, domain.NewCommonResponse())
}

func roleInfos(roles []*entities.Role) []domain.RoleInfo {
	infos := make([]domain.RoleInfo, 0, len(roles))
	for _, role := range roles {
		infos = append(infos, domain.RoleInfo{
			ID:          role.ID,
			Name:        role.Name,
			PictureURL:  role.PictureURL,
			VoiceID:     role.VoiceID,
			AuditionURL: role.AuditionURL,
		})
	}
	return infos
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: message,
	})
}
