package messages

// Error codes
const (
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeSessionFailed    = "SESSION_FAILED"
	ErrCodeSessionNotFound  = "SESSION_NOT_FOUND"
	ErrCodeConnectionClosed = "CONNECTION_CLOSED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeDialogComplete   = "DIALOG_COMPLETE"
	ErrCodeClassifierError  = "CLASSIFIER_ERROR"
)

// Server message types
const (
	TypePrompt = "prompt"
	TypeStatus = "status"
	TypeError  = "error"
)

// ServerMessage represents a message sent to frontend client
type ServerMessage struct {
	Type      string `json:"type"` // "prompt", "status", "error"
	SessionID string `json:"sessionId,omitempty"`
	Payload   any    `json:"payload"`
}

// PromptPayload is the system utterance after a turn
type PromptPayload struct {
	Text     string `json:"text"`
	State    string `json:"state"`
	Act      string `json:"act,omitempty"` // act of the utterance that led here
	Complete bool   `json:"complete"`
}

// StatusPayload contains status updates
type StatusPayload struct {
	Status  string `json:"status"` // "connected", "pong", "restarted", "complete"
	Message string `json:"message,omitempty"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewPromptMessage creates a prompt message
func NewPromptMessage(sessionID string, prompt PromptPayload) *ServerMessage {
	return &ServerMessage{
		Type:      TypePrompt,
		SessionID: sessionID,
		Payload:   prompt,
	}
}

// NewStatusMessage creates a status message
func NewStatusMessage(sessionID, status, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeStatus,
		SessionID: sessionID,
		Payload: StatusPayload{
			Status:  status,
			Message: message,
		},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(sessionID, code, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeError,
		SessionID: sessionID,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
