package messages

import "time"

// CreateSessionResponse is returned by POST /api/sessions
type CreateSessionResponse struct {
	SessionID string        `json:"sessionId"`
	Prompt    PromptPayload `json:"prompt"`
}

// TurnEntry is one transcript line
type TurnEntry struct {
	Utterance string    `json:"utterance"`
	Act       string    `json:"act"`
	State     string    `json:"state"`
	Prompt    string    `json:"prompt"`
	At        time.Time `json:"at"`
}

// PreferencesView mirrors the collected preferences
type PreferencesView struct {
	Food      string   `json:"food"`
	Area      string   `json:"area"`
	Price     string   `json:"pricerange"`
	Secondary []string `json:"secondary"`
}

// SessionView is returned by GET /api/sessions/{id}
type SessionView struct {
	SessionID    string          `json:"sessionId"`
	State        string          `json:"state"`
	Complete     bool            `json:"complete"`
	Prompt       string          `json:"prompt"`
	Preferences  PreferencesView `json:"preferences"`
	Suggestion   string          `json:"suggestion,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	LastActivity time.Time       `json:"lastActivity"`
	Transcript   []TurnEntry     `json:"transcript"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
