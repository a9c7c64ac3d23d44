package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/room4-2/dinedialog/messages"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
	maxMessageSize  = 64 * 1024
)

// closeAfter tells writePump to stop once everything queued before it is sent.
type closeAfter struct{}

// ClientSession represents a single user's websocket connection
type ClientSession struct {
	ID           string
	ClientConn   *websocket.Conn
	Conversation *Conversation
	CreatedAt    time.Time

	manager   *Manager
	logger    *zap.Logger
	keepAlive time.Duration

	// Use channels for non-blocking writes
	writeChan chan any

	mu          sync.RWMutex
	closed      bool
	closeReason string
	CloseChan   chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewClientSession binds a websocket connection to a conversation
func NewClientSession(conv *Conversation, clientConn *websocket.Conn, manager *Manager, keepAlive time.Duration, logger *zap.Logger) *ClientSession {
	ctx, cancel := context.WithCancel(context.Background())

	clientConn.SetReadLimit(maxMessageSize)

	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientSession{
		ID:           conv.ID,
		ClientConn:   clientConn,
		Conversation: conv,
		CreatedAt:    time.Now(),
		manager:      manager,
		logger:       logger.Named("ws").With(zap.String("session", shortID(conv.ID))),
		keepAlive:    keepAlive,
		writeChan:    make(chan any, writeBufferSize),
		CloseChan:    make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins processing messages and greets the client
func (cs *ClientSession) Start() {
	if cs.keepAlive > 0 {
		_ = cs.ClientConn.SetReadDeadline(time.Now().Add(2 * cs.keepAlive))
		cs.ClientConn.SetPongHandler(func(string) error {
			return cs.ClientConn.SetReadDeadline(time.Now().Add(2 * cs.keepAlive))
		})
	}

	cs.queueMessage(messages.NewStatusMessage(cs.ID, "connected", ""))
	cs.queueMessage(messages.NewPromptMessage(cs.ID, cs.Conversation.Prompt()))

	go cs.writePump()
	go cs.handleClientMessages()
}

// writePump handles all outgoing messages in a single goroutine
func (cs *ClientSession) writePump() {
	var ping <-chan time.Time
	if cs.keepAlive > 0 {
		ticker := time.NewTicker(cs.keepAlive)
		defer ticker.Stop()
		ping = ticker.C
	}

	closeText := ""
	defer func() {
		// Send close message before exiting
		_ = cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = cs.ClientConn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, closeText),
		)
		cs.Close()
	}()

	for {
		select {
		case <-cs.CloseChan:
			return
		case <-cs.Conversation.Done():
			cs.setCloseReason(ReasonIdle)
			closeText = "session ended"
			return
		case <-ping:
			_ = cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cs.ClientConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg := <-cs.writeChan:
			if _, done := msg.(closeAfter); done {
				closeText = "dialog complete"
				return
			}
			if err := cs.write(msg); err != nil {
				cs.logger.Debug("write failed", zap.Error(err))
				return
			}
		}
	}
}

func (cs *ClientSession) write(msg any) error {
	data, err := messages.Encode(msg)
	if err != nil {
		return err
	}
	_ = cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return cs.ClientConn.WriteMessage(websocket.TextMessage, data)
}

// queueMessage adds a message to the write queue (non-blocking)
func (cs *ClientSession) queueMessage(msg any) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.closed {
		return
	}
	select {
	case cs.writeChan <- msg:
	default:
		cs.logger.Warn("write queue full, dropping message")
	}
}

// Close terminates the session and cleans up resources
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.closed = true
	if cs.closeReason == "" {
		cs.closeReason = ReasonClient
	}
	cs.mu.Unlock()

	cs.cancel()

	// Signal close (for other goroutines waiting on this)
	close(cs.CloseChan)

	if cs.ClientConn != nil {
		return cs.ClientConn.Close()
	}
	return nil
}

// IsClosed returns whether the session is closed
func (cs *ClientSession) IsClosed() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closed
}

// CloseReason tells why the session ended
func (cs *ClientSession) CloseReason() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closeReason
}

func (cs *ClientSession) setCloseReason(reason string) {
	cs.mu.Lock()
	if cs.closeReason == "" {
		cs.closeReason = reason
	}
	cs.mu.Unlock()
}

func (cs *ClientSession) handleClientMessages() {
	defer cs.Close()

	for {
		_, message, err := cs.ClientConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				cs.logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		cs.Conversation.Touch()

		clientMsg, err := messages.DecodeClientMessage(message)
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid message format"))
			continue
		}

		cs.processClientMessage(clientMsg)
	}
}

func (cs *ClientSession) processClientMessage(msg *messages.ClientMessage) {
	switch msg.Type {
	case messages.TypeUtterance:
		payload, err := messages.DecodeUtterance(msg.Payload)
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid utterance payload"))
			return
		}
		cs.handleUtterance(payload.Text)

	case messages.TypeControl:
		var payload messages.ControlPayload
		if err := messages.Decode(msg.Payload, &payload); err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Invalid control payload"))
			return
		}
		cs.handleControlMessage(&payload)

	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
	}
}

func (cs *ClientSession) handleUtterance(text string) {
	turn, err := cs.manager.Submit(cs.ctx, cs.ID, text)
	if err != nil {
		cs.queueMessage(messages.NewErrorMessage(cs.ID, ErrorCode(err), err.Error()))
		return
	}
	if turn.ClassifyErr != nil {
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeClassifierError, "Utterance could not be classified"))
	}

	cs.queueMessage(messages.NewPromptMessage(cs.ID, messages.PromptPayload{
		Text:     turn.Prompt,
		State:    string(turn.State),
		Act:      string(turn.Act),
		Complete: turn.Done,
	}))

	if turn.Done {
		cs.setCloseReason(ReasonComplete)
		cs.queueMessage(messages.NewStatusMessage(cs.ID, "complete", ""))
		cs.queueMessage(closeAfter{})
	}
}

func (cs *ClientSession) handleControlMessage(payload *messages.ControlPayload) {
	switch payload.Action {
	case messages.ActionPing:
		cs.queueMessage(messages.NewStatusMessage(cs.ID, "pong", ""))
	case messages.ActionRestart:
		prompt, err := cs.manager.Restart(cs.ctx, cs.ID)
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, ErrorCode(err), err.Error()))
			return
		}
		cs.queueMessage(messages.NewStatusMessage(cs.ID, "restarted", ""))
		cs.queueMessage(messages.NewPromptMessage(cs.ID, prompt))
	default:
		cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeInvalidMessage, "Unknown control action: "+payload.Action))
	}
}

// ErrorCode maps a session error to its wire error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return messages.ErrCodeRateLimited
	case errors.Is(err, ErrSessionComplete):
		return messages.ErrCodeDialogComplete
	case errors.Is(err, ErrSessionNotFound):
		return messages.ErrCodeSessionNotFound
	}
	return messages.ErrCodeSessionFailed
}
