package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/sirupsen/logrus"
)

func newMember(chatID int64, u User, now time.Time) *models.Member {
	start, end := cycleDates(now)
	return &models.Member{
		GroupID:        chatID,
		UserID:         u.ID,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		DayNumber:      1,
		CycleStartDate: start,
		CycleEndDate:   end,
		LastActiveAt:   now,
		JoinedAt:       now,
	}
}

// ensureMember returns the member row, creating an unrestricted one for users who were
// in the chat before the bot started tracking them.
func (e *Engine) ensureMember(ctx context.Context, group *models.GroupConfig, u User, now time.Time) (*models.Member, error) {
	m, err := e.storage.GetMember(ctx, group.ChatID, u.ID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("getting member: %w", err)
	}

	m = newMember(group.ChatID, u, now)
	m.IsAdmin = group.AdminUserID == u.ID
	if _, err := e.storage.CreateMember(ctx, m); err != nil {
		return nil, fmt.Errorf("creating member: %w", err)
	}
	return e.storage.GetMember(ctx, group.ChatID, u.ID)
}

// restrictionEnd is when a member joining at now may start posting: tomorrow's first slot.
func (e *Engine) restrictionEnd(ctx context.Context, chatID int64, now time.Time) (time.Time, error) {
	list, err := e.storage.ListSlots(ctx, chatID)
	if err != nil {
		return time.Time{}, fmt.Errorf("listing slots: %w", err)
	}
	until, _ := slots.FirstStartAfterToday(list, now)
	return until, nil
}

// HandleJoin registers a member who joined the chat. Returning members are restored from
// their last departure: a voluntary leave restores their stats, a kick or ban restricts them again.
func (e *Engine) HandleJoin(ctx context.Context, chatID int64, u User) error {
	if u.IsBot {
		return nil
	}
	group, err := e.groupConfig(ctx, chatID)
	if err != nil {
		return fmt.Errorf("getting group config: %w", err)
	}
	if group == nil {
		return nil
	}

	now := e.clock()
	if _, err := e.storage.GetMember(ctx, chatID, u.ID); err == nil {
		return e.storage.TouchMember(ctx, chatID, u.ID, u.Username, u.FirstName, u.LastName, now)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("getting member: %w", err)
	}

	m := newMember(chatID, u, now)
	m.IsAdmin = group.AdminUserID == u.ID

	last, err := e.storage.LastDeparture(ctx, chatID, u.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		last = nil
	case err != nil:
		return fmt.Errorf("getting last departure: %w", err)
	}

	restrict := false
	switch {
	case m.IsAdmin:
	case last != nil && last.Action.IsPenalty():
		restrict = true
	case last != nil:
		m.TotalPoints = last.TotalPoints
		m.KnockoutPoints = last.KnockoutPoints
		m.GeneralWarnings = last.GeneralWarnings
		m.BannedWordCount = last.BannedWordCount
		m.DayNumber = last.DayNumber
		m.CycleStartDate = last.CycleStartDate
		m.CycleEndDate = last.CycleEndDate
		m.JoinedAt = last.JoinedAt
		restrict = last.IsRestricted
	default:
		active, err := e.resolver.ActiveSlot(ctx, chatID, now)
		if err != nil {
			return fmt.Errorf("resolving slot: %w", err)
		}
		restrict = active != nil
	}

	var until time.Time
	if restrict {
		if until, err = e.restrictionEnd(ctx, chatID, now); err != nil {
			return err
		}
		m.IsRestricted = true
		m.RestrictionUntil = &until
	}

	created, err := e.storage.CreateMember(ctx, m)
	if err != nil {
		return fmt.Errorf("creating member: %w", err)
	}
	if !created {
		return nil
	}

	logger := logrus.WithFields(logrus.Fields{"chat_id": chatID, "user_id": u.ID})
	if last != nil {
		logger.Infof("member rejoined after %s, restricted=%v", last.Action, restrict)
	} else {
		logger.Infof("member joined, restricted=%v", restrict)
	}

	if restrict {
		if err := e.chat.Restrict(ctx, chatID, u.ID, until); err != nil {
			logger.Warnf("restricting in chat: %v", err)
		}
	}

	text := fmt.Sprintf("%s, %s\n\nUse the keyboard below for quick access:", u.DisplayName(), group.WelcomeMessage)
	if restrict {
		text += fmt.Sprintf("\n\n🔒 You can start participating from %s.", until.Format("Jan 2 15:04"))
	}
	e.chat.Send(ctx, chatID, text, MenuKeyboard())
	return nil
}

// HandleLeave archives a member who left on their own.
func (e *Engine) HandleLeave(ctx context.Context, chatID int64, u User) error {
	if u.IsBot {
		return nil
	}
	if _, err := e.storage.RemoveMember(ctx, chatID, u.ID, models.HistoryActionLeft); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("archiving member: %w", err)
	}
	logrus.WithFields(logrus.Fields{"chat_id": chatID, "user_id": u.ID}).Info("member left")
	return nil
}
