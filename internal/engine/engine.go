// Package engine decides what every member action means for points, warnings and membership.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/chat"
	"github.com/C4T-BuT-S4D/slotwarden/internal/config"
	"github.com/C4T-BuT-S4D/slotwarden/internal/delay"
	"github.com/C4T-BuT-S4D/slotwarden/internal/filestore"
	"github.com/C4T-BuT-S4D/slotwarden/internal/metrics"
	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/C4T-BuT-S4D/slotwarden/internal/submission"
	"github.com/sirupsen/logrus"
)

// MediaSaver persists a submitted file and returns where it was stored.
type MediaSaver interface {
	Persist(ctx context.Context, req filestore.Request) (string, error)
}

const promptTTL = 3 * time.Second

type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
}

func (u User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return fmt.Sprintf("user%d", u.ID)
	}
}

type Engine struct {
	config   *config.Config
	storage  *storage.Storage
	resolver *slots.Resolver
	chat     chat.Messenger
	media    MediaSaver
	tasks    *delay.Scheduler

	pending *submission.Pending
	locks   *submission.Locks
	now     func() time.Time
}

func New(
	cfg *config.Config,
	storage *storage.Storage,
	resolver *slots.Resolver,
	messenger chat.Messenger,
	media MediaSaver,
	tasks *delay.Scheduler,
) *Engine {
	return &Engine{
		config:   cfg,
		storage:  storage,
		resolver: resolver,
		chat:     messenger,
		media:    media,
		tasks:    tasks,
		pending:  submission.NewPending(),
		locks:    submission.NewLocks(cfg.ButtonLockTTL),
		now:      time.Now,
	}
}

func (e *Engine) clock() time.Time {
	return e.now().In(e.resolver.Location())
}

func (e *Engine) Pending() *submission.Pending {
	return e.pending
}

// notice sends a message that deletes itself after ttl.
func (e *Engine) notice(ctx context.Context, chatID int64, ttl time.Duration, text string, opts ...any) {
	msg := e.chat.Send(ctx, chatID, text, opts...)
	if msg == nil {
		return
	}
	e.deleteLater(chatID, msg.ID, ttl)
}

func (e *Engine) deleteLater(chatID int64, messageID int, ttl time.Duration) {
	e.tasks.After(fmt.Sprintf("delete:%d:%d", chatID, messageID), ttl, func(ctx context.Context) {
		e.chat.Delete(ctx, chatID, messageID)
	})
}

func (e *Engine) groupConfig(ctx context.Context, chatID int64) (*models.GroupConfig, error) {
	cfg, err := e.storage.GetGroupConfig(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive {
		return nil, nil
	}
	return cfg, nil
}

func cycleDates(start time.Time) (string, string) {
	return start.Format(slots.DayLayout), start.AddDate(0, 0, models.CycleLength-1).Format(slots.DayLayout)
}

// liftRestriction ends an expired restriction and starts the member's Day 1.
func (e *Engine) liftRestriction(ctx context.Context, m *models.Member, now time.Time) error {
	start, end := cycleDates(now)
	if err := e.storage.LiftRestriction(ctx, m.GroupID, m.UserID, start, end); err != nil {
		return fmt.Errorf("lifting restriction: %w", err)
	}
	if err := e.chat.Unrestrict(ctx, m.GroupID, m.UserID); err != nil {
		logrus.WithField("chat_id", m.GroupID).Warnf("unrestricting %d in chat: %v", m.UserID, err)
	}
	m.IsRestricted = false
	m.RestrictionUntil = nil
	m.DayNumber = 1
	m.CycleStartDate, m.CycleEndDate = start, end
	return nil
}

// LiftRestriction is used by the day-cycle sweep; it also announces the new Day 1.
func (e *Engine) LiftRestriction(ctx context.Context, m *models.Member) error {
	if err := e.liftRestriction(ctx, m, e.clock()); err != nil {
		return err
	}
	e.chat.Send(ctx, m.GroupID, fmt.Sprintf(
		"🎉 %s, your restriction has been lifted!\nWelcome to Day 1! You can now participate in activities. 💪",
		m.DisplayName(),
	))
	return nil
}

// Remove kicks the user from the chat and archives them with action. Nothing is archived if the kick fails.
func (e *Engine) Remove(ctx context.Context, chatID, userID int64, action models.HistoryAction, reason string) (*models.Member, error) {
	if err := e.chat.Kick(ctx, chatID, userID); err != nil {
		return nil, fmt.Errorf("kicking: %w", err)
	}
	archived, err := e.storage.RemoveMember(ctx, chatID, userID, action)
	if err != nil {
		return nil, fmt.Errorf("archiving: %w", err)
	}
	metrics.Removals.WithLabelValues(reason).Inc()
	return archived, nil
}

// Penalize deducts knockout points and records the reason in metrics.
func (e *Engine) Penalize(ctx context.Context, chatID, userID int64, points int, reason string) error {
	if points <= 0 {
		return nil
	}
	if err := e.storage.DeductKnockoutPoints(ctx, chatID, userID, points); err != nil {
		return err
	}
	metrics.KnockoutPoints.WithLabelValues(reason).Add(float64(points))
	return nil
}
