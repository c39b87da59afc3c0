package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/sirupsen/logrus"
)

const LeaderboardSize = 10

type Command struct {
	ChatID    int64
	MessageID int
	Private   bool
	Title     string
	From      User
}

func (e *Engine) isChatAdmin(ctx context.Context, chatID, userID int64) bool {
	admins, err := e.chat.Administrators(ctx, chatID)
	if err != nil {
		logrus.WithField("chat_id", chatID).Warnf("checking admin status: %v", err)
		return false
	}
	return slices.Contains(admins, userID)
}

func (e *Engine) reply(ctx context.Context, cmd *Command, text string, opts ...any) {
	e.chat.Reply(ctx, cmd.ChatID, cmd.MessageID, text, opts...)
}

// Start greets in private chats. In groups it is admin-only and configures the group if needed.
func (e *Engine) Start(ctx context.Context, cmd *Command) error {
	if cmd.Private {
		e.reply(ctx, cmd, fmt.Sprintf(
			"Hi %s! 👋\n\nI'm a Wellness Group Manager Bot.\n\n"+
				"Add me to a group and make me an admin to start managing:\n"+
				"• Time slot enforcement\n• Points tracking\n• Inactive user monitoring\n• Content moderation\n\n"+
				"Use /help for more commands.",
			cmd.From.DisplayName(),
		))
		return nil
	}

	if !e.isChatAdmin(ctx, cmd.ChatID, cmd.From.ID) {
		logrus.WithField("chat_id", cmd.ChatID).Infof("non-admin %d tried /start", cmd.From.ID)
		return nil
	}

	group, err := e.groupConfig(ctx, cmd.ChatID)
	if err != nil {
		return fmt.Errorf("getting group config: %w", err)
	}
	if group != nil {
		e.reply(ctx, cmd,
			"✅ Group is configured and active!\n\n"+
				"Available commands:\n/points - Check your points\n/schedule - View today's slots\n/help - Show help\n\n"+
				"💡 Use the keyboard buttons below for quick access!",
			MenuKeyboard(),
		)
		return nil
	}

	if _, err := e.ConfigureGroup(ctx, cmd.ChatID, cmd.Title, cmd.From.ID); err != nil {
		e.reply(ctx, cmd, "❌ Failed to auto-configure the group. Please check bot permissions.")
		return err
	}
	e.reply(ctx, cmd, "✅ Group auto-configured. Check the pinned welcome message for details.", MenuKeyboard())
	return nil
}

func (e *Engine) Points(ctx context.Context, cmd *Command) error {
	if cmd.Private {
		e.reply(ctx, cmd, "Use this command in a group!")
		return nil
	}
	group, err := e.groupConfig(ctx, cmd.ChatID)
	if err != nil {
		return fmt.Errorf("getting group config: %w", err)
	}
	if group == nil {
		return nil
	}

	m, err := e.ensureMember(ctx, group, cmd.From, e.clock())
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎯 %s, your stats:\n\n", cmd.From.DisplayName())
	fmt.Fprintf(&b, "✅ Earned Points: %d\n", m.TotalPoints)
	if m.KnockoutPoints > 0 {
		fmt.Fprintf(&b, "⚠️ Knockout Points: %d\n", m.KnockoutPoints)
	}
	fmt.Fprintf(&b, "🏅 Net Score: %d\n", m.NetScore())
	fmt.Fprintf(&b, "📅 Day: %d/%d\n", m.DayNumber, models.CycleLength)
	if m.IsRestricted {
		b.WriteString("🔒 Restricted\n")
	}
	e.reply(ctx, cmd, b.String())
	return nil
}

func (e *Engine) Schedule(ctx context.Context, cmd *Command) error {
	if cmd.Private {
		e.reply(ctx, cmd, "Use this command in a group!")
		return nil
	}
	list, err := e.storage.ListSlots(ctx, cmd.ChatID)
	if err != nil {
		return fmt.Errorf("listing slots: %w", err)
	}
	if len(list) == 0 {
		e.reply(ctx, cmd, "No slots configured yet!")
		return nil
	}
	e.reply(ctx, cmd, FormatSchedule(list))
	return nil
}

func FormatSchedule(list []models.Slot) string {
	var b strings.Builder
	b.WriteString("📅 Today's Schedule\n\n")
	for _, s := range list {
		fmt.Fprintf(&b, "%s\n⏰ %s - %s\n🔖 Points : %d\n\n", s.Name, s.StartTime, s.EndTime, s.Points)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) Help(ctx context.Context, cmd *Command) error {
	e.reply(ctx, cmd,
		"🤖 Bot Commands\n\n"+
			"/points - Check your points\n"+
			"/schedule - View today's schedule\n"+
			"/help - Show this help\n\n"+
			"How it works:\n"+
			"• Post messages/photos only during active slots\n"+
			"• Earn points for participation\n"+
			"• Stay active to avoid being removed\n"+
			"• Avoid banned words\n"+
			"• Reach minimum points to stay in the group\n"+
			"• Leaderboard posted automatically every evening 🏆\n\n"+
			"💡 Keyboard buttons appear automatically for easy access!",
	)
	return nil
}

// Leaderboard posts the leaderboard on an admin's request.
func (e *Engine) Leaderboard(ctx context.Context, cmd *Command) error {
	if cmd.Private {
		e.reply(ctx, cmd, "Use this command in a group!")
		return nil
	}
	if !e.isChatAdmin(ctx, cmd.ChatID, cmd.From.ID) {
		e.reply(ctx, cmd, "❌ Only admins can use this command!")
		return nil
	}

	event, err := e.resolver.ActiveEvent(ctx, cmd.ChatID, e.clock())
	if err != nil {
		return err
	}
	if event == nil {
		e.reply(ctx, cmd, "❌ No active event found!")
		return nil
	}

	posted, err := e.PostLeaderboard(ctx, cmd.ChatID)
	if err != nil {
		return err
	}
	if !posted {
		e.reply(ctx, cmd, "📊 No participants yet!")
	}
	return nil
}

// PostLeaderboard sends the top members by net score. It reports false if nobody qualifies.
func (e *Engine) PostLeaderboard(ctx context.Context, chatID int64) (bool, error) {
	top, err := e.storage.Leaderboard(ctx, chatID, LeaderboardSize)
	if err != nil {
		return false, fmt.Errorf("getting leaderboard: %w", err)
	}
	if len(top) == 0 {
		return false, nil
	}
	e.chat.Send(ctx, chatID, FormatLeaderboard(top))
	return true, nil
}

func FormatLeaderboard(top []*models.Member) string {
	medals := []string{"🥇 ", "🥈 ", "🥉 "}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 End of Day Leaderboard - Top %d\n\n", LeaderboardSize)
	for i, m := range top {
		if i < len(medals) {
			b.WriteString(medals[i])
		}
		fmt.Fprintf(&b, "%d. %s: %d pts", i+1, m.DisplayName(), m.NetScore())
		if m.KnockoutPoints > 0 {
			fmt.Fprintf(&b, " (%d earned - %d lost)", m.TotalPoints, m.KnockoutPoints)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n📅 Great job everyone! See you tomorrow! 🌟")
	return b.String()
}

// MemberOrNil returns the member or nil when they are not tracked.
func (e *Engine) MemberOrNil(ctx context.Context, chatID, userID int64) (*models.Member, error) {
	m, err := e.storage.GetMember(ctx, chatID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return m, err
}
