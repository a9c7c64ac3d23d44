package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/room4-2/dinedialog/dialog"
	"github.com/room4-2/dinedialog/messages"
)

// Conversation is one dialog owned by the Manager. It serialises turns,
// limits their rate and keeps the transcript. Websocket and REST clients both
// drive a Conversation.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	newDialog  func() *dialog.Session
	dialog     *dialog.Session
	transcript *Transcript
	limiter    *rate.Limiter

	mu           sync.Mutex
	lastActivity time.Time
	lastAct      dialog.Act
	closed       bool
	done         chan struct{}
}

func newConversation(id string, newDialog func() *dialog.Session, limiter *rate.Limiter, maxTranscript int) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:           id,
		CreatedAt:    now,
		newDialog:    newDialog,
		dialog:       newDialog(),
		transcript:   NewTranscript(maxTranscript),
		limiter:      limiter,
		lastActivity: now,
		done:         make(chan struct{}),
	}
}

// Submit runs one turn. It fails with ErrRateLimited when turns arrive faster
// than allowed and with ErrSessionComplete once the dialog reached Exit.
func (c *Conversation) Submit(ctx context.Context, text string) (dialog.Turn, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return dialog.Turn{}, ErrRateLimited
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return dialog.Turn{}, ErrSessionNotFound
	}
	if c.dialog.IsComplete() {
		return dialog.Turn{}, ErrSessionComplete
	}

	turn := c.dialog.Submit(ctx, text)
	now := time.Now()
	c.lastActivity = now
	c.lastAct = turn.Act
	c.transcript.Append(messages.TurnEntry{
		Utterance: text,
		Act:       string(turn.Act),
		State:     string(turn.State),
		Prompt:    turn.Prompt,
		At:        now,
	})
	return turn, nil
}

// Restart throws the dialog away and starts over in Welcome.
func (c *Conversation) Restart() messages.PromptPayload {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dialog = c.newDialog()
	c.transcript.Clear()
	c.lastAct = ""
	c.lastActivity = time.Now()
	return c.promptLocked()
}

// Prompt returns the current system utterance.
func (c *Conversation) Prompt() messages.PromptPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.promptLocked()
}

func (c *Conversation) promptLocked() messages.PromptPayload {
	return messages.PromptPayload{
		Text:     c.dialog.Prompt(),
		State:    string(c.dialog.State()),
		Act:      string(c.lastAct),
		Complete: c.dialog.IsComplete(),
	}
}

// State returns the current dialog state.
func (c *Conversation) State() dialog.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialog.State()
}

// IsComplete reports whether the dialog reached Exit.
func (c *Conversation) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialog.IsComplete()
}

// Turns returns the number of turns in the transcript.
func (c *Conversation) Turns() int {
	return c.transcript.Len() + c.transcript.Dropped()
}

// LastActivity returns the time of the last turn.
func (c *Conversation) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// Touch marks the conversation as active without a turn.
func (c *Conversation) Touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// View snapshots the conversation for the REST API.
func (c *Conversation) View() messages.SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefs := c.dialog.Preferences()
	secondary := make([]string, 0, len(prefs.Secondary))
	for attr, on := range prefs.Secondary {
		if on {
			secondary = append(secondary, string(attr))
		}
	}
	sort.Strings(secondary)

	view := messages.SessionView{
		SessionID: c.ID,
		State:     string(c.dialog.State()),
		Complete:  c.dialog.IsComplete(),
		Prompt:    c.dialog.Prompt(),
		Preferences: messages.PreferencesView{
			Food:      prefs.Food,
			Area:      prefs.Area,
			Price:     prefs.Price,
			Secondary: secondary,
		},
		CreatedAt:    c.CreatedAt,
		LastActivity: c.lastActivity,
		Transcript:   c.transcript.Entries(),
	}
	if r, ok := c.dialog.Results().Current(); ok {
		view.Suggestion = r.Name
	}
	return view
}

// Done is closed when the Manager drops the conversation.
func (c *Conversation) Done() <-chan struct{} {
	return c.done
}

// Close marks the conversation as finished. Safe to call more than once.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
