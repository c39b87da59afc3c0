package engine

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/C4T-BuT-S4D/slotwarden/internal/submission"
	"github.com/sirupsen/logrus"
)

// HandleWater awards a button slot. Presses for the same member, slot and day are
// serialised by a short-lived lock; a press that finds the lock taken is told to wait.
func (e *Engine) HandleWater(ctx context.Context, p *Press) error {
	liters, slotID, err := parseWater(p.Payload)
	if err != nil {
		logrus.WithField("chat_id", p.ChatID).Warnf("bad water button: %v", err)
		return e.chat.Respond(ctx, p.Callback, "Invalid water selection", true)
	}
	if p.From.IsBot {
		return nil
	}

	group, err := e.groupConfig(ctx, p.ChatID)
	if err != nil {
		return fmt.Errorf("getting group config: %w", err)
	}
	if group == nil {
		return e.chat.Respond(ctx, p.Callback, "", false)
	}

	now := e.clock()
	member, err := e.ensureMember(ctx, group, p.From, now)
	if err != nil {
		return err
	}
	if err := e.storage.TouchMember(ctx, p.ChatID, p.From.ID, p.From.Username, p.From.FirstName, p.From.LastName, now); err != nil {
		return err
	}

	if member.IsRestricted && !member.IsAdmin {
		if member.RestrictedAt(now) {
			return e.chat.Respond(ctx, p.Callback, "You are currently restricted and cannot perform this action.", true)
		}
		if err := e.liftRestriction(ctx, member, now); err != nil {
			return err
		}
	}

	key := submission.LockKey(p.ChatID, p.From.ID, slotID, now.Format(slots.DayLayout))
	if !e.locks.TryLock(key) {
		return e.chat.Respond(ctx, p.Callback, "⏳ Processing your previous click, please wait...", true)
	}

	slot, err := e.resolver.ActiveSlot(ctx, p.ChatID, now)
	if err != nil {
		return err
	}
	if slot == nil || slot.ID != slotID {
		return e.chat.Respond(ctx, p.Callback, "This water slot is no longer active!", true)
	}

	event, err := e.resolver.ActiveEvent(ctx, p.ChatID, now)
	if err != nil {
		return err
	}

	content := submission.Button{Label: fmt.Sprintf("%dL water", liters)}
	first, err := e.complete(ctx, p.ChatID, p.From.ID, slot, slots.EventID(event), e.resolver.SlotDay(slot, now), content, "")
	if err != nil {
		return err
	}

	name := p.From.DisplayName()
	if !first {
		if err := e.chat.Respond(ctx, p.Callback, "Already completed!", true); err != nil {
			logrus.WithField("chat_id", p.ChatID).Warnf("answering callback: %v", err)
		}
		if msg := e.chat.Reply(ctx, p.ChatID, p.MessageID, fmt.Sprintf("⚠️ %s, you have already completed %s slot for today!", name, slot.Name)); msg != nil {
			e.deleteLater(p.ChatID, msg.ID, e.config.NoticeTTL)
		}
		return nil
	}

	if err := e.chat.Respond(ctx, p.Callback, fmt.Sprintf("✅ %dL logged! %d points!", liters, slot.Points), true); err != nil {
		logrus.WithField("chat_id", p.ChatID).Warnf("answering callback: %v", err)
	}
	e.chat.Send(ctx, p.ChatID, fmt.Sprintf("💧 %s drank %dL of water! %d points!", name, liters, slot.Points))
	return nil
}
