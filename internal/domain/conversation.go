package domain

import (
	"sync"
	"time"
)

// Conversation is the ordered, append-only transcript of one interactive
// session. It lives only as long as the session that owns it.
type Conversation struct {
	mu         sync.Mutex
	turns      []Turn
	inFlight   bool
	lastActive time.Time
	now        func() time.Time
}

func NewConversation(now func() time.Time) *Conversation {
	if now == nil {
		now = time.Now
	}
	return &Conversation{
		now:        now,
		lastActive: now(),
	}
}

// AppendTurn stamps a new turn with the current local time (second precision)
// and appends it. Timestamps never go backwards within one conversation.
func (c *Conversation) AppendTurn(role Role, content string) Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().Local().Truncate(time.Second)
	if n := len(c.turns); n > 0 && ts.Before(c.turns[n-1].Timestamp) {
		ts = c.turns[n-1].Timestamp
	}

	turn := Turn{
		Role:      role,
		Content:   content,
		Timestamp: ts,
	}
	c.turns = append(c.turns, turn)
	c.lastActive = c.now()
	return turn
}

func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
	c.lastActive = c.now()
}

// Turns returns a snapshot in insertion order.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Turn(nil), c.turns...)
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// TryBegin marks an exchange as in flight. It reports false if one already is.
func (c *Conversation) TryBegin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return false
	}
	c.inFlight = true
	c.lastActive = c.now()
	return true
}

func (c *Conversation) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.lastActive = c.now()
}

// IdleSince reports when the conversation was last touched and whether an
// exchange is currently running.
func (c *Conversation) IdleSince() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive, c.inFlight
}
