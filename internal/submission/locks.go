package submission

import (
	"fmt"
	"sync"
	"time"
)

// LockKey identifies one button press target: a member completing a slot on a day.
func LockKey(groupID, userID int64, slotID uint, day string) string {
	return fmt.Sprintf("%d:%d:%d:%s", groupID, userID, slotID, day)
}

// Locks is a set of short-lived in-memory locks. A lock that is never released
// frees itself after ttl.
type Locks struct {
	mu   sync.Mutex
	ttl  time.Duration
	held map[string]time.Time
	now  func() time.Time
}

func NewLocks(ttl time.Duration) *Locks {
	return &Locks{
		ttl:  ttl,
		held: make(map[string]time.Time),
		now:  time.Now,
	}
}

// TryLock takes key unless someone else holds it.
func (l *Locks) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return false
	}
	l.held[key] = now.Add(l.ttl)

	for k, until := range l.held {
		if !now.Before(until) {
			delete(l.held, k)
		}
	}
	return true
}

func (l *Locks) Unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
