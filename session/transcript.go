package session

import (
	"sync"

	"github.com/room4-2/dinedialog/messages"
)

// Transcript keeps the most recent turns of a conversation. When full, the
// oldest turn is evicted.
type Transcript struct {
	entries []messages.TurnEntry
	start   int
	maxSize int
	dropped int
	mu      sync.Mutex
}

// NewTranscript creates a transcript holding at most maxSize turns
func NewTranscript(maxSize int) *Transcript {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Transcript{
		entries: make([]messages.TurnEntry, 0, min(maxSize, 16)),
		maxSize: maxSize,
	}
}

// MaxSize returns the maximum number of turns kept
func (t *Transcript) MaxSize() int {
	return t.maxSize
}

// Append records a turn
func (t *Transcript) Append(e messages.TurnEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) < t.maxSize {
		t.entries = append(t.entries, e)
		return
	}
	// ring buffer: overwrite the oldest
	t.entries[t.start] = e
	t.start = (t.start + 1) % t.maxSize
	t.dropped++
}

// Entries returns the kept turns, oldest first
func (t *Transcript) Entries() []messages.TurnEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]messages.TurnEntry, 0, len(t.entries))
	out = append(out, t.entries[t.start:]...)
	return append(out, t.entries[:t.start]...)
}

// Len returns the number of kept turns
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Dropped returns how many turns were evicted
func (t *Transcript) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Clear empties the transcript
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = t.entries[:0]
	t.start = 0
	t.dropped = 0
}
