package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/C4T-BuT-S4D/slotwarden/internal/metrics"
	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/C4T-BuT-S4D/slotwarden/internal/submission"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

// Press is an inline button press. MessageID is the message carrying the buttons.
type Press struct {
	Callback  *telebot.Callback
	ChatID    int64
	MessageID int
	From      User
	Payload   string
}

// HandleConfirmation resolves a yes/no answer to a pending confirmation. Only the member
// who posted the submission may answer, and only the first answer counts.
func (e *Engine) HandleConfirmation(ctx context.Context, p *Press) error {
	c, ok := e.pending.Get(p.ChatID, p.MessageID)
	if !ok {
		return e.chat.Respond(ctx, p.Callback, "⏱️ This confirmation has expired or was already processed.", false)
	}
	if c.UserID != p.From.ID {
		return e.chat.Respond(ctx, p.Callback, fmt.Sprintf("%s, this confirmation is not for you!", p.From.DisplayName()), true)
	}

	c, ok = e.pending.Take(p.ChatID, p.MessageID)
	if !ok {
		return e.chat.Respond(ctx, p.Callback, "⏱️ This confirmation has expired or was already processed.", false)
	}
	e.tasks.Cancel(confirmationKey(p.ChatID, p.MessageID))
	metrics.PendingConfirmations.Set(float64(e.pending.Len()))

	if err := e.chat.Respond(ctx, p.Callback, "", false); err != nil {
		logrus.WithField("chat_id", p.ChatID).Warnf("answering callback: %v", err)
	}

	if p.Payload == answerYes {
		return e.confirm(ctx, c, p.From)
	}
	return e.reject(ctx, c, "❌ Cancelled. No points awarded.")
}

// ExpireConfirmation is the timeout transition: it behaves like a "no" answer.
// It does nothing if the confirmation was already answered.
func (e *Engine) ExpireConfirmation(ctx context.Context, chatID int64, promptID int) error {
	c, ok := e.pending.Take(chatID, promptID)
	if !ok {
		return nil
	}
	metrics.PendingConfirmations.Set(float64(e.pending.Len()))
	return e.reject(ctx, c, "⏱️ Timeout - marked as No")
}

func (e *Engine) confirm(ctx context.Context, c *submission.Confirmation, from User) error {
	defer e.deleteLater(c.GroupID, c.PromptID, promptTTL)

	slot, err := e.storage.GetSlot(ctx, c.SlotID)
	if errors.Is(err, storage.ErrNotFound) {
		e.chat.Edit(ctx, c.GroupID, c.PromptID, "❌ This slot no longer exists.")
		return nil
	}
	if err != nil {
		e.chat.Edit(ctx, c.GroupID, c.PromptID, "❌ Something went wrong. Please try again.")
		return fmt.Errorf("getting slot: %w", err)
	}

	path, err := e.persist(ctx, c.GroupID, c.UserID, slot.Name, c.Content)
	if err != nil {
		e.chat.Edit(ctx, c.GroupID, c.PromptID, fmt.Sprintf("❌ Error saving %s. Please try again.", c.Content.Activity()))
		return fmt.Errorf("saving media: %w", err)
	}

	first, err := e.complete(ctx, c.GroupID, c.UserID, slot, c.EventID, c.Day, c.Content, path)
	if err != nil {
		e.chat.Edit(ctx, c.GroupID, c.PromptID, "❌ Something went wrong. Please try again.")
		return err
	}
	if !first {
		e.chat.Edit(ctx, c.GroupID, c.PromptID, fmt.Sprintf("✅ %s, you've already completed this slot today!", from.DisplayName()))
		return nil
	}

	logrus.WithFields(logrus.Fields{"chat_id": c.GroupID, "user_id": c.UserID}).
		Infof("confirmed %s for slot %s, awarded %d points", c.Content.Activity(), slot.Name, slot.Points)
	e.chat.Edit(ctx, c.GroupID, c.PromptID, fmt.Sprintf("✅ %s scored %d points!", from.DisplayName(), slot.Points))
	return nil
}

func (e *Engine) reject(ctx context.Context, c *submission.Confirmation, text string) error {
	defer e.deleteLater(c.GroupID, c.PromptID, promptTTL)

	if err := e.storage.LogActivity(ctx, &models.ActivityLog{
		GroupID:        c.GroupID,
		UserID:         c.UserID,
		SlotName:       c.SlotName,
		Type:           c.Content.Activity(),
		Content:        c.Content.Summary(),
		TelegramFileID: c.Content.File(),
		PointsEarned:   0,
		IsValid:        false,
	}); err != nil {
		return fmt.Errorf("logging rejected activity: %w", err)
	}

	e.chat.Edit(ctx, c.GroupID, c.PromptID, text)
	e.chat.Delete(ctx, c.GroupID, c.MessageID)
	return nil
}
