// Package delay runs keyed one-shot tasks after a delay: auto-deleting notices and confirmation timeouts.
package delay

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Task func(ctx context.Context)

type entry struct {
	timer *time.Timer
	seq   uint64
}

// Scheduler owns every pending task. Scheduling a key that is already pending replaces the old task.
type Scheduler struct {
	ctx     context.Context
	timeout time.Duration

	mu      sync.Mutex
	tasks   map[string]*entry
	seq     uint64
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler whose tasks each run with a context derived from ctx
// and bounded by timeout.
func NewScheduler(ctx context.Context, timeout time.Duration) *Scheduler {
	return &Scheduler{
		ctx:     ctx,
		timeout: timeout,
		tasks:   make(map[string]*entry),
	}
}

func (s *Scheduler) After(key string, d time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if old, ok := s.tasks[key]; ok {
		old.timer.Stop()
	}

	s.seq++
	e := &entry{seq: s.seq}
	e.timer = time.AfterFunc(d, func() { s.fire(key, e, task) })
	s.tasks[key] = e
}

func (s *Scheduler) fire(key string, e *entry, task Task) {
	s.mu.Lock()
	cur, ok := s.tasks[key]
	if !ok || cur.seq != e.seq || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, key)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("task", key).Errorf("delayed task panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	task(ctx)
}

// Cancel drops the pending task for key and reports whether there was one.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.tasks, key)
	return true
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels every pending task and waits for running ones to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for key, e := range s.tasks {
		e.timer.Stop()
		delete(s.tasks, key)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
