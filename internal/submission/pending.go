package submission

import (
	"sync"
	"time"
)

// Confirmation is an ambiguous submission waiting for its author to answer yes or no.
type Confirmation struct {
	GroupID  int64
	UserID   int64
	SlotID   uint
	SlotName string
	EventID  uint
	Day      string
	Points   int

	// MessageID is the member's original message, PromptID the bot's yes/no prompt.
	MessageID int
	PromptID  int
	Content   Content

	ExpiresAt time.Time
}

type pendingKey struct {
	chatID   int64
	promptID int
}

// Pending holds confirmations keyed by their prompt message.
// Take removes the record, so only the first of yes, no and timeout gets it.
type Pending struct {
	mu    sync.Mutex
	items map[pendingKey]*Confirmation
	now   func() time.Time
}

func NewPending() *Pending {
	return &Pending{
		items: make(map[pendingKey]*Confirmation),
		now:   time.Now,
	}
}

func (p *Pending) Put(c *Confirmation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[pendingKey{c.GroupID, c.PromptID}] = c
}

// Get returns the live confirmation without removing it.
func (p *Pending) Get(chatID int64, promptID int) (*Confirmation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.items[pendingKey{chatID, promptID}]
	if !ok || !p.now().Before(c.ExpiresAt) {
		return nil, false
	}
	return c, true
}

// Take removes and returns the confirmation. Expired records are still returned,
// the timeout path relies on that.
func (p *Pending) Take(chatID int64, promptID int) (*Confirmation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pendingKey{chatID, promptID}
	c, ok := p.items[key]
	if ok {
		delete(p.items, key)
	}
	return c, ok
}

// Prune drops records that expired more than grace ago and returns how many were dropped.
func (p *Pending) Prune(grace time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-grace)
	dropped := 0
	for key, c := range p.items {
		if c.ExpiresAt.Before(cutoff) {
			delete(p.items, key)
			dropped++
		}
	}
	return dropped
}

func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
