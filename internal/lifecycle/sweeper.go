// Package lifecycle holds the scheduled sweeps: slot announcements and reminders, inactivity and
// low-score removals, the 7-day cycle, the daily leaderboard and penalties, and admin sync.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/chat"
	"github.com/C4T-BuT-S4D/slotwarden/internal/config"
	"github.com/C4T-BuT-S4D/slotwarden/internal/engine"
	"github.com/C4T-BuT-S4D/slotwarden/internal/metrics"
	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	sweepAnnounce     = "announce"
	sweepReminder     = "reminder"
	sweepInactivity   = "inactivity"
	sweepLowScore     = "low_score"
	sweepDayCycle     = "day_cycle"
	sweepLeaderboard  = "leaderboard"
	sweepZeroActivity = "zero_activity"
	sweepAdminSync    = "admin_sync"
)

type Sweeper struct {
	config   *config.Config
	storage  *storage.Storage
	resolver *slots.Resolver
	chat     chat.Messenger
	engine   *engine.Engine
	now      func() time.Time
}

func New(
	cfg *config.Config,
	storage *storage.Storage,
	resolver *slots.Resolver,
	messenger chat.Messenger,
	eng *engine.Engine,
) *Sweeper {
	return &Sweeper{
		config:   cfg,
		storage:  storage,
		resolver: resolver,
		chat:     messenger,
		engine:   eng,
		now:      time.Now,
	}
}

func (s *Sweeper) clock() time.Time {
	return s.now().In(s.resolver.Location())
}

// forEachGroup runs fn for every active group. A failing group is logged and skipped.
func (s *Sweeper) forEachGroup(ctx context.Context, sweep string, fn func(ctx context.Context, g *models.GroupConfig, logger *logrus.Entry) error) error {
	groups, err := s.storage.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("listing groups: %w", err)
	}
	for _, g := range groups {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger := logrus.WithFields(logrus.Fields{"sweep": sweep, "chat_id": g.ChatID})
		if err := fn(ctx, g, logger); err != nil {
			metrics.SweepFailures.WithLabelValues(sweep).Inc()
			logger.Errorf("sweep failed for group: %v", err)
		}
	}
	return nil
}

// memberFailed records a per-member failure; the sweep carries on with the next member.
func memberFailed(sweep string, logger *logrus.Entry, m *models.Member, err error) {
	metrics.SweepFailures.WithLabelValues(sweep).Inc()
	logger.WithField("user_id", m.UserID).Errorf("sweep failed for member: %v", err)
}

// SyncAdmins mirrors every group's chat administrators onto the members' is_admin flag.
func (s *Sweeper) SyncAdmins(ctx context.Context) error {
	return s.forEachGroup(ctx, sweepAdminSync, func(ctx context.Context, g *models.GroupConfig, logger *logrus.Entry) error {
		admins, err := s.chat.Administrators(ctx, g.ChatID)
		if err != nil {
			return fmt.Errorf("getting administrators: %w", err)
		}
		if err := s.storage.SyncAdmins(ctx, g.ChatID, admins); err != nil {
			return err
		}
		logger.Debugf("synced %d admins", len(admins))
		return nil
	})
}

// PostLeaderboards posts the daily leaderboard in every group running an event.
func (s *Sweeper) PostLeaderboards(ctx context.Context) error {
	now := s.clock()
	return s.forEachGroup(ctx, sweepLeaderboard, func(ctx context.Context, g *models.GroupConfig, logger *logrus.Entry) error {
		event, err := s.resolver.ActiveEvent(ctx, g.ChatID, now)
		if err != nil {
			return err
		}
		if event == nil {
			return nil
		}
		posted, err := s.engine.PostLeaderboard(ctx, g.ChatID)
		if err != nil {
			return err
		}
		logger.Infof("leaderboard posted=%v", posted)
		return nil
	})
}
