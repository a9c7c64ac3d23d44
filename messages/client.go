package messages

import "encoding/json"

// Client message types
const (
	TypeUtterance = "utterance"
	TypeControl   = "control"
)

// Control actions
const (
	ActionPing    = "ping"
	ActionRestart = "restart_session"
)

// ClientMessage represents a message from frontend client
type ClientMessage struct {
	Type    string          `json:"type"` // "utterance", "control"
	Payload json.RawMessage `json:"payload"`
}

// UtterancePayload carries one user utterance
type UtterancePayload struct {
	Text string `json:"text" validate:"required,max=500"`
}

// ControlPayload contains control commands
type ControlPayload struct {
	Action string `json:"action"` // "ping", "restart_session"
}

// NewUtteranceMessage wraps text for sending to the server
func NewUtteranceMessage(text string) (*ClientMessage, error) {
	payload, err := Encode(UtterancePayload{Text: text})
	if err != nil {
		return nil, err
	}
	return &ClientMessage{Type: TypeUtterance, Payload: payload}, nil
}
