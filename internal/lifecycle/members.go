package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/sirupsen/logrus"
)

const (
	warningInactivity = "inactivity"
	keyZeroActivity   = "zero_activity_day"
)

// SweepInactivity warns members idle for inactivity_days, once per day, and removes members idle
// a day longer after deducting the inactivity penalty.
func (s *Sweeper) SweepInactivity(ctx context.Context) error {
	now := s.clock()
	limit := s.config.InactivityDays
	if limit <= 0 {
		return nil
	}
	cutoff := now.Add(-time.Duration(limit) * 24 * time.Hour)
	today := s.resolver.Day(now)

	return s.forEachGroup(ctx, sweepInactivity, func(ctx context.Context, g *models.GroupConfig, logger *logrus.Entry) error {
		members, err := s.storage.InactiveMembers(ctx, g.ChatID, cutoff)
		if err != nil {
			return err
		}
		for _, m := range members {
			idle := int(now.Sub(m.LastActiveAt) / (24 * time.Hour))
			if idle > limit {
				err = s.removeInactive(ctx, m, idle, logger)
			} else {
				err = s.warnInactive(ctx, m, idle, today)
			}
			if err != nil {
				memberFailed(sweepInactivity, logger, m, err)
			}
		}
		return nil
	})
}

func (s *Sweeper) warnInactive(ctx context.Context, m *models.Member, idle int, today string) error {
	first, err := s.storage.RecordInactivityWarning(ctx, m.GroupID, m.UserID, today, warningInactivity)
	if err != nil || !first {
		return err
	}
	s.chat.Send(ctx, m.GroupID, fmt.Sprintf(
		"⚠️ %s, you've been inactive for %d days!\nPlease participate in today's activities or you'll be removed tomorrow.",
		m.DisplayName(), idle,
	))
	return nil
}

func (s *Sweeper) removeInactive(ctx context.Context, m *models.Member, idle int, logger *logrus.Entry) error {
	if err := s.engine.Penalize(ctx, m.GroupID, m.UserID, s.config.InactivityPenalty, "inactivity"); err != nil {
		return fmt.Errorf("deducting points: %w", err)
	}
	if _, err := s.engine.Remove(ctx, m.GroupID, m.UserID, models.HistoryActionKicked, "inactivity"); err != nil {
		return err
	}
	s.chat.Send(ctx, m.GroupID, fmt.Sprintf(
		"🚫 %s has been temporarily removed due to %d days of inactivity.\n"+
			"⚠️ %d knockout points were deducted.\n"+
			"They can be re-added by an admin after discussing with them.",
		m.DisplayName(), idle, s.config.InactivityPenalty,
	))
	logger.WithField("user_id", m.UserID).Infof("removed after %d idle days", idle)
	return nil
}

// SweepLowScores removes members who reached the end of their cycle below the event's pass mark.
func (s *Sweeper) SweepLowScores(ctx context.Context) error {
	now := s.clock()
	return s.forEachGroup(ctx, sweepLowScore, func(ctx context.Context, g *models.GroupConfig, logger *logrus.Entry) error {
		event, err := s.resolver.ActiveEvent(ctx, g.ChatID, now)
		if err != nil {
			return err
		}
		if event == nil || event.MinPassPoints <= 0 {
			return nil
		}

		members, err := s.storage.CycleEndMembersBelow(ctx, g.ChatID, event.MinPassPoints)
		if err != nil {
			return err
		}
		for _, m := range members {
			if _, err := s.engine.Remove(ctx, m.GroupID, m.UserID, models.HistoryActionKicked, "low_score"); err != nil {
				memberFailed(sweepLowScore, logger, m, err)
				continue
			}
			s.chat.Send(ctx, g.ChatID, fmt.Sprintf(
				"🙏 %s, thank you for your participation!\n"+
					"🎯 You earned %d points - great effort!\n\n"+
					"Unfortunately, you didn't reach the minimum %d points required.\n"+
					"💪 Keep trying! You can rejoin and try again!",
				m.DisplayName(), m.TotalPoints, event.MinPassPoints,
			))
			logger.WithField("user_id", m.UserID).Infof("removed with %d/%d points", m.TotalPoints, event.MinPassPoints)
		}
		return nil
	})
}

// AdvanceDayCycles lifts expired restrictions, moves members to the day matching their cycle
// start and starts a fresh cycle for anyone past day 7.
func (s *Sweeper) AdvanceDayCycles(ctx context.Context) error {
	now := s.clock()
	today, err := time.ParseInLocation(slots.DayLayout, s.resolver.Day(now), s.resolver.Location())
	if err != nil {
		return err
	}

	return s.forEachGroup(ctx, sweepDayCycle, func(ctx context.Context, g *models.GroupConfig, logger *logrus.Entry) error {
		members, err := s.storage.ListMembers(ctx, g.ChatID)
		if err != nil {
			return err
		}
		for _, m := range members {
			if err := s.advance(ctx, m, now, today, logger); err != nil {
				memberFailed(sweepDayCycle, logger, m, err)
			}
		}
		return nil
	})
}

func (s *Sweeper) advance(ctx context.Context, m *models.Member, now, today time.Time, logger *logrus.Entry) error {
	if m.IsRestricted {
		if m.RestrictedAt(now) {
			return nil
		}
		return s.engine.LiftRestriction(ctx, m)
	}
	if m.CycleStartDate == "" {
		return nil
	}

	start, err := time.ParseInLocation(slots.DayLayout, m.CycleStartDate, s.resolver.Location())
	if err != nil {
		return fmt.Errorf("parsing cycle start %q: %w", m.CycleStartDate, err)
	}
	elapsed := int(today.Sub(start).Hours() / 24)
	if elapsed <= 0 {
		return nil
	}
	day := elapsed + 1
	if day == m.DayNumber {
		return nil
	}

	if day <= models.CycleLength {
		if err := s.storage.SetDayNumber(ctx, m.GroupID, m.UserID, day); err != nil {
			return err
		}
		logger.WithField("user_id", m.UserID).Debugf("advanced to day %d", day)
		return nil
	}

	cycleStart := today.Format(slots.DayLayout)
	cycleEnd := today.AddDate(0, 0, models.CycleLength-1).Format(slots.DayLayout)
	if err := s.storage.ResetCycle(ctx, m.GroupID, m.UserID, cycleStart, cycleEnd); err != nil {
		return err
	}
	s.chat.Send(ctx, m.GroupID, fmt.Sprintf(
		"🎊 %s, congratulations!\n\n"+
			"You completed your %d-day wellness cycle with %d points! 🏆\n\n"+
			"🔄 Starting a fresh Day 1 cycle.\n"+
			"Your points have been reset. Let's go again! 💪",
		m.DisplayName(), models.CycleLength, m.TotalPoints,
	))
	logger.WithField("user_id", m.UserID).Infof("cycle completed with %d points, reset", m.TotalPoints)
	return nil
}

// PenalizeZeroActivity deducts the zero-activity penalty from members who completed nothing today.
// It runs at most once per group and day.
func (s *Sweeper) PenalizeZeroActivity(ctx context.Context) error {
	now := s.clock()
	today := s.resolver.Day(now)
	return s.forEachGroup(ctx, sweepZeroActivity, func(ctx context.Context, g *models.GroupConfig, logger *logrus.Entry) error {
		if s.config.ZeroActivityPenalty <= 0 {
			return nil
		}
		event, err := s.resolver.ActiveEvent(ctx, g.ChatID, now)
		if err != nil || event == nil {
			return err
		}
		done, _, err := s.storage.GetRuntimeState(ctx, g.ChatID, keyZeroActivity)
		if err != nil {
			return err
		}
		if done == today {
			return nil
		}

		members, err := s.storage.MembersWithoutCompletion(ctx, g.ChatID, event.ID, today)
		if err != nil {
			return err
		}
		for _, m := range members {
			if err := s.engine.Penalize(ctx, m.GroupID, m.UserID, s.config.ZeroActivityPenalty, "zero_activity"); err != nil {
				memberFailed(sweepZeroActivity, logger, m, err)
			}
		}
		if err := s.storage.SetRuntimeState(ctx, g.ChatID, keyZeroActivity, today); err != nil {
			return err
		}
		logger.Infof("penalized %d members without activity on %s", len(members), today)
		return nil
	})
}
