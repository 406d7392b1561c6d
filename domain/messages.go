package domain

// Headers identifying the caller on every HTTP request.
const (
	HeaderDeviceID = "x-oz-device-id"
	HeaderDevID    = "x-oz-dev-id"
	HeaderUserID   = "x-oz-user-id"
)

// Response codes used in the code field of JSON envelopes.
const (
	CodeOK    = 0
	CodeError = -1
)

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	RoleID    string `json:"role_id"`
}

// ChatResponse is the reply to POST /api/chat
type ChatResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	RoleID    string `json:"role_id"`
}

// ChatHistoryRequest carries the query of GET /api/chat/history.
// Offset is a page index, not a row offset.
type ChatHistoryRequest struct {
	Offset int64 `json:"offset" query:"offset"`
	Limit  int64 `json:"limit" query:"limit"`
}

type ChatHistoryResponse struct {
	Code    int                `json:"code"`
	Msg     string             `json:"msg"`
	Payload ChatHistoryPayload `json:"payload"`
}

type ChatHistoryPayload struct {
	History []ChatHistoryItem `json:"history"`
	Page    int64             `json:"page"`
	Total   int64             `json:"total"`
}

type ChatHistoryItem struct {
	ChatID   string `json:"chat_id"`
	Title    string `json:"title"`
	RoleName string `json:"role_name"`
}

// SessionHistoryRequest is the body of POST /api/chat/session_history
type SessionHistoryRequest struct {
	ChatID string `json:"chat_id"`
	Offset int64  `json:"offset"`
	Limit  int64  `json:"limit"`
}

type SessionHistoryResponse struct {
	Code    int                  `json:"code"`
	Msg     string               `json:"msg"`
	History []SessionHistoryItem `json:"history"`
	Page    int64                `json:"page"`
	Limit   int64                `json:"limit"`
	Total   int64                `json:"total"`
}

type SessionHistoryItem struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// AddRoleRequest is the body of POST /api/add_role
type AddRoleRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// SwitchRoleRequest is the body of POST /api/role/switch
type SwitchRoleRequest struct {
	RoleID string `json:"role_id"`
}

type RoleInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PictureURL  string `json:"picture_url"`
	VoiceID     string `json:"voice_id"`
	AuditionURL string `json:"audition_url"`
}

type RolePayload struct {
	Data []RoleInfo `json:"data"`
	Len  int        `json:"len"`
}

type RoleResponse struct {
	Code    int          `json:"code"`
	Msg     string       `json:"msg"`
	Payload *RolePayload `json:"payload"`
}

type CommonResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func NewRoleResponse(roles []RoleInfo) RoleResponse {
	return RoleResponse{
		Code:    CodeOK,
		Msg:     "ok",
		Payload: &RolePayload{Data: roles, Len: len(roles)},
	}
}

func NewRoleErrorResponse(msg string) RoleResponse {
	return RoleResponse{Code: CodeError, Msg: msg}
}

func NewCommonResponse() CommonResponse {
	return CommonResponse{Code: CodeOK, Msg: "ok"}
}

func NewCommonErrorResponse(msg string) CommonResponse {
	return CommonResponse{Code: CodeError, Msg: msg}
}

// Message sources inside a chat transcript published to the broker.
const (
	MessageSourceDevice = "0"
	MessageSourceUser   = "1"
)

// PublishEnvelope is the body of the broker's HTTP publish API.
// Payload holds JSON text, not a nested object.
type PublishEnvelope struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// EventPayload is published on status and event topics.
type EventPayload struct {
	Event string `json:"event"`
}

// MessagePayload is one transcript line published on chat topics.
type MessagePayload struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}
