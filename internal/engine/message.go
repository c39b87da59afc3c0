package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/filestore"
	"github.com/C4T-BuT-S4D/slotwarden/internal/metrics"
	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/moderation"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/C4T-BuT-S4D/slotwarden/internal/submission"
	"github.com/sirupsen/logrus"
)

// Incoming is a member message in a managed group. Content is nil for kinds the bot does not score.
type Incoming struct {
	ChatID    int64
	MessageID int
	From      User
	Content   submission.Content
}

type Outcome string

const (
	OutcomeIgnored     Outcome = "ignored"
	OutcomeRestricted  Outcome = "restricted"
	OutcomeBannedWord  Outcome = "banned_word"
	OutcomeOutsideSlot Outcome = "outside_slot"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeUseButtons  Outcome = "use_buttons"
	OutcomeEmpty       Outcome = "empty"
	OutcomeAccepted    Outcome = "accepted"
	OutcomeConfirm     Outcome = "confirm"
	OutcomeFailed      Outcome = "failed"
)

// HandleMessage runs a member message through restriction, moderation, the slot window,
// the duplicate check and finally slot-type dispatch, stopping at the first step that rejects it.
func (e *Engine) HandleMessage(ctx context.Context, in *Incoming) (Outcome, error) {
	outcome, err := e.handleMessage(ctx, in)
	metrics.Submissions.WithLabelValues(string(outcome)).Inc()
	return outcome, err
}

func (e *Engine) handleMessage(ctx context.Context, in *Incoming) (Outcome, error) {
	if in.From.IsBot {
		return OutcomeIgnored, nil
	}
	group, err := e.groupConfig(ctx, in.ChatID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("getting group config: %w", err)
	}
	if group == nil {
		return OutcomeIgnored, nil
	}

	now := e.clock()
	member, err := e.ensureMember(ctx, group, in.From, now)
	if err != nil {
		return OutcomeFailed, err
	}
	if err := e.storage.TouchMember(ctx, in.ChatID, in.From.ID, in.From.Username, in.From.FirstName, in.From.LastName, now); err != nil {
		return OutcomeFailed, err
	}

	logger := logrus.WithFields(logrus.Fields{"chat_id": in.ChatID, "user_id": in.From.ID, "message_id": in.MessageID})
	name := in.From.DisplayName()

	if !member.IsAdmin {
		if member.IsRestricted {
			if member.RestrictedAt(now) {
				e.chat.Delete(ctx, in.ChatID, in.MessageID)
				text := fmt.Sprintf("🔒 %s, you are restricted and cannot post yet.", name)
				if member.RestrictionUntil != nil {
					text += fmt.Sprintf("\nYou can start participating from %s.", member.RestrictionUntil.In(e.resolver.Location()).Format("Jan 2 15:04"))
				}
				e.notice(ctx, in.ChatID, e.config.NoticeTTL, text)
				return OutcomeRestricted, nil
			}
			if err := e.liftRestriction(ctx, member, now); err != nil {
				return OutcomeFailed, err
			}
			logger.Info("restriction expired, lifted")
		}

		done, err := e.moderate(ctx, in)
		if err != nil {
			return OutcomeFailed, err
		}
		if done {
			return OutcomeBannedWord, nil
		}
	}

	slot, err := e.resolver.ActiveSlot(ctx, in.ChatID, now)
	if err != nil {
		return OutcomeFailed, err
	}
	if slot == nil {
		if member.IsAdmin {
			return OutcomeIgnored, nil
		}
		return OutcomeOutsideSlot, e.outsideSlot(ctx, in)
	}

	event, err := e.resolver.ActiveEvent(ctx, in.ChatID, now)
	if err != nil {
		return OutcomeFailed, err
	}
	eventID := slots.EventID(event)
	day := e.resolver.SlotDay(slot, now)

	done, err := e.storage.CompletedToday(ctx, eventID, slot.ID, in.From.ID, day)
	if err != nil {
		return OutcomeFailed, err
	}
	if done {
		e.chat.Delete(ctx, in.ChatID, in.MessageID)
		e.notice(ctx, in.ChatID, e.config.NoticeTTL, fmt.Sprintf("✅ %s, you've already completed this slot today!", name))
		return OutcomeDuplicate, nil
	}

	if in.Content == nil {
		logger.Debug("unsupported message kind, ignoring")
		return OutcomeIgnored, nil
	}
	content := in.Content
	if t, ok := content.(submission.Text); ok {
		content = submission.Text{Body: submission.Sanitize(t.Body)}
	}

	switch submission.Classify(slot, content) {
	case submission.UseButtons:
		e.chat.Delete(ctx, in.ChatID, in.MessageID)
		e.notice(ctx, in.ChatID, e.config.NoticeTTL, fmt.Sprintf("💧 %s, please use the buttons on the pinned %s message for this slot!", name, slot.Name))
		return OutcomeUseButtons, nil

	case submission.Empty:
		e.chat.Delete(ctx, in.ChatID, in.MessageID)
		e.notice(ctx, in.ChatID, e.config.NoticeTTL, fmt.Sprintf("✏️ %s, please describe your %s in words, links are not accepted.", name, slot.Name))
		return OutcomeEmpty, nil

	case submission.Accept:
		return e.accept(ctx, in, content, slot, eventID, day)

	default:
		return OutcomeConfirm, e.askConfirmation(ctx, in, content, slot, eventID, day, now)
	}
}

// moderate reports whether the message contained a banned word and was handled.
func (e *Engine) moderate(ctx context.Context, in *Incoming) (bool, error) {
	text := ""
	switch c := in.Content.(type) {
	case submission.Text:
		text = c.Body
	case submission.Photo:
		text = c.Caption
	case submission.Media:
		text = c.Caption
	}
	if text == "" {
		return false, nil
	}

	words, err := e.storage.BannedWords(ctx, in.ChatID)
	if err != nil {
		return false, fmt.Errorf("getting banned words: %w", err)
	}
	word, found := moderation.NewMatcher(words).Match(text)
	if !found {
		return false, nil
	}

	logger := logrus.WithFields(logrus.Fields{"chat_id": in.ChatID, "user_id": in.From.ID})
	logger.Warnf("banned word %q in message %d", word, in.MessageID)

	e.chat.Delete(ctx, in.ChatID, in.MessageID)
	count, err := e.storage.IncrementBannedWordCount(ctx, in.ChatID, in.From.ID)
	if err != nil {
		return true, fmt.Errorf("recording warning: %w", err)
	}
	if err := e.Penalize(ctx, in.ChatID, in.From.ID, e.config.BannedWordPenalty, "banned_word"); err != nil {
		return true, fmt.Errorf("deducting points: %w", err)
	}

	name := in.From.DisplayName()
	e.notice(ctx, in.ChatID, e.config.NoticeTTL, moderation.WarningNotice(name, word, count, e.config.BannedWordLimit, e.config.BannedWordPenalty))

	if !moderation.ShouldRemove(count, e.config.BannedWordLimit) {
		return true, nil
	}

	archived, err := e.Remove(ctx, in.ChatID, in.From.ID, models.HistoryActionBanned, "banned_word")
	if err != nil {
		return true, fmt.Errorf("removing member: %w", err)
	}
	logger.Infof("removed after %d banned word warnings", count)
	e.chat.Send(ctx, in.ChatID, moderation.RemovalNotice(name, archived.TotalPoints, e.config.KickCongratsThreshold, e.config.BannedWordLimit))
	return true, nil
}

func (e *Engine) outsideSlot(ctx context.Context, in *Incoming) error {
	e.chat.Delete(ctx, in.ChatID, in.MessageID)
	if err := e.storage.IncrementGeneralWarnings(ctx, in.ChatID, in.From.ID); err != nil {
		return fmt.Errorf("recording warning: %w", err)
	}
	if err := e.Penalize(ctx, in.ChatID, in.From.ID, e.config.OutsideSlotPenalty, "outside_slot"); err != nil {
		return fmt.Errorf("deducting points: %w", err)
	}
	e.notice(ctx, in.ChatID, e.config.NoticeTTL, fmt.Sprintf(
		"⏰ %s, no active slot right now!\nPlease only post during designated time slots.\n⚠️ -%d knockout points deducted!",
		in.From.DisplayName(), e.config.OutsideSlotPenalty,
	))
	return nil
}

func (e *Engine) persist(ctx context.Context, chatID, userID int64, slotName string, c submission.Content) (string, error) {
	if c.File() == "" || e.media == nil {
		return "", nil
	}
	name := ""
	if m, ok := c.(submission.Media); ok {
		name = m.FileName
	}
	return e.media.Persist(ctx, filestore.Request{
		GroupID:  chatID,
		UserID:   userID,
		SlotName: slotName,
		FileID:   c.File(),
		FileName: name,
		Category: submission.Category(c),
	})
}

// complete records the first completion of the slot for the day. It reports false for a duplicate.
func (e *Engine) complete(ctx context.Context, chatID, userID int64, slot *models.Slot, eventID uint, day string, c submission.Content, path string) (bool, error) {
	first, err := e.storage.RecordCompletion(ctx, &storage.Completion{
		Tracker: models.DailySlotTracker{
			GroupID:      chatID,
			EventID:      eventID,
			SlotID:       slot.ID,
			UserID:       userID,
			Day:          day,
			Status:       models.TrackerStatusCompleted,
			PointsScored: slot.Points,
		},
		Activity: models.ActivityLog{
			GroupID:        chatID,
			UserID:         userID,
			SlotName:       slot.Name,
			Type:           c.Activity(),
			Content:        c.Summary(),
			TelegramFileID: c.File(),
			LocalFilePath:  path,
		},
	})
	if err != nil {
		return false, fmt.Errorf("recording completion: %w", err)
	}
	if first {
		metrics.PointsAwarded.Add(float64(slot.Points))
	}
	return first, nil
}

func (e *Engine) accept(ctx context.Context, in *Incoming, c submission.Content, slot *models.Slot, eventID uint, day string) (Outcome, error) {
	path, err := e.persist(ctx, in.ChatID, in.From.ID, slot.Name, c)
	if err != nil {
		e.chat.Reply(ctx, in.ChatID, in.MessageID, "Sorry, there was an error processing your submission. Please try again.")
		return OutcomeFailed, fmt.Errorf("saving media: %w", err)
	}

	first, err := e.complete(ctx, in.ChatID, in.From.ID, slot, eventID, day, c, path)
	if err != nil {
		return OutcomeFailed, err
	}
	if !first {
		e.chat.Delete(ctx, in.ChatID, in.MessageID)
		e.notice(ctx, in.ChatID, e.config.NoticeTTL, fmt.Sprintf("✅ %s, you've already completed this slot today!", in.From.DisplayName()))
		return OutcomeDuplicate, nil
	}

	e.chat.Reply(ctx, in.ChatID, in.MessageID, fmt.Sprintf("%s\n+%d points!", positive(slot), slot.Points))
	return OutcomeAccepted, nil
}

func positive(slot *models.Slot) string {
	if slot.ResponsePositive != "" {
		return slot.ResponsePositive
	}
	return fmt.Sprintf("Great %s! ✅", slot.Name)
}

func clarify(slot *models.Slot, c submission.Content) string {
	if m, ok := c.(submission.Media); ok {
		return fmt.Sprintf("Is this %s for the %s slot? (+%d points)", m.Kind, slot.Name, slot.Points)
	}
	if slot.ResponseClarify != "" {
		return slot.ResponseClarify
	}
	return fmt.Sprintf("Is this for the %s slot?", slot.Name)
}

func (e *Engine) askConfirmation(ctx context.Context, in *Incoming, c submission.Content, slot *models.Slot, eventID uint, day string, now time.Time) error {
	prompt := e.chat.Reply(ctx, in.ChatID, in.MessageID, clarify(slot, c), confirmKeyboard())
	if prompt == nil {
		return fmt.Errorf("confirmation prompt not delivered")
	}

	e.pending.Put(&submission.Confirmation{
		GroupID:   in.ChatID,
		UserID:    in.From.ID,
		SlotID:    slot.ID,
		SlotName:  slot.Name,
		EventID:   eventID,
		Day:       day,
		Points:    slot.Points,
		MessageID: in.MessageID,
		PromptID:  prompt.ID,
		Content:   c,
		ExpiresAt: now.Add(e.config.ConfirmationTimeout),
	})
	metrics.PendingConfirmations.Set(float64(e.pending.Len()))

	chatID, promptID := in.ChatID, prompt.ID
	e.tasks.After(confirmationKey(chatID, promptID), e.config.ConfirmationTimeout, func(ctx context.Context) {
		if err := e.ExpireConfirmation(ctx, chatID, promptID); err != nil {
			logrus.WithField("chat_id", chatID).Errorf("expiring confirmation %d: %v", promptID, err)
		}
	})
	return nil
}

func confirmationKey(chatID int64, promptID int) string {
	return fmt.Sprintf("confirm:%d:%d", chatID, promptID)
}
