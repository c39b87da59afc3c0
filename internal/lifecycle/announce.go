package lifecycle

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/C4T-BuT-S4D/slotwarden/internal/engine"
	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

const (
	keyPinnedSlot    = "pinned_slot_id"
	keyPinnedMessage = "pinned_message_id"
	keyPinnedDay     = "pinned_slot_day"
	keyPinnedEvent   = "pinned_event_id"
	keyReminded      = "reminded_slot"
)

// pinned is the announcement currently pinned in a group, kept in runtime state so it
// survives restarts.
type pinned struct {
	SlotID    uint
	MessageID int
	Day       string
	EventID   uint
}

func (s *Sweeper) loadPinned(ctx context.Context, groupID int64) (*pinned, error) {
	raw := make(map[string]string, 4)
	for _, key := range []string{keyPinnedSlot, keyPinnedMessage, keyPinnedDay, keyPinnedEvent} {
		value, ok, err := s.storage.GetRuntimeState(ctx, groupID, key)
		if err != nil {
			return nil, err
		}
		if ok {
			raw[key] = value
		}
	}
	if raw[keyPinnedSlot] == "" {
		return nil, nil
	}

	slotID, err := strconv.ParseUint(raw[keyPinnedSlot], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing pinned slot %q: %w", raw[keyPinnedSlot], err)
	}
	p := &pinned{SlotID: uint(slotID), Day: raw[keyPinnedDay]}
	if v := raw[keyPinnedMessage]; v != "" {
		if p.MessageID, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("parsing pinned message %q: %w", v, err)
		}
	}
	if v := raw[keyPinnedEvent]; v != "" {
		eventID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing pinned event %q: %w", v, err)
		}
		p.EventID = uint(eventID)
	}
	return p, nil
}

func (s *Sweeper) savePinned(ctx context.Context, groupID int64, p *pinned) error {
	for key, value := range map[string]string{
		keyPinnedSlot:    strconv.FormatUint(uint64(p.SlotID), 10),
		keyPinnedMessage: strconv.Itoa(p.MessageID),
		keyPinnedDay:     p.Day,
		keyPinnedEvent:   strconv.FormatUint(uint64(p.EventID), 10),
	} {
		if err := s.storage.SetRuntimeState(ctx, groupID, key, value); err != nil {
			return err
		}
	}
	return nil
}

// AnnounceSlots posts and pins the announcement of a slot that has just opened and takes down
// the announcement of one that has closed, recording who missed it.
func (s *Sweeper) AnnounceSlots(ctx context.Context) error {
	now := s.clock()
	return s.forEachGroup(ctx, sweepAnnounce, func(ctx context.Context, g *models.GroupConfig, logger *logrus.Entry) error {
		slot, err := s.resolver.ActiveSlot(ctx, g.ChatID, now)
		if err != nil {
			return err
		}
		prev, err := s.loadPinned(ctx, g.ChatID)
		if err != nil {
			return err
		}

		day := ""
		if slot != nil {
			day = s.resolver.SlotDay(slot, now)
			if prev != nil && prev.SlotID == slot.ID && prev.Day == day {
				return nil
			}
		}

		if prev != nil {
			if err := s.closeSlot(ctx, g.ChatID, prev, logger); err != nil {
				return err
			}
		}
		if slot == nil {
			return nil
		}

		event, err := s.resolver.ActiveEvent(ctx, g.ChatID, now)
		if err != nil {
			return err
		}
		next := &pinned{SlotID: slot.ID, Day: day, EventID: slots.EventID(event)}

		msg := s.chat.Send(ctx, g.ChatID, announcementContent(slot, announcement(slot, event)), announcementOptions(slot)...)
		if msg != nil {
			next.MessageID = msg.ID
			if err := s.chat.Pin(ctx, g.ChatID, msg.ID); err != nil {
				logger.Warnf("pinning announcement: %v", err)
			}
		} else {
			logger.Warnf("announcement of slot %s not delivered", slot.Name)
		}

		if err := s.savePinned(ctx, g.ChatID, next); err != nil {
			return fmt.Errorf("saving pinned slot: %w", err)
		}
		logger.Infof("announced slot %s for %s", slot.Name, day)
		return nil
	})
}

// closeSlot removes the announcement of a finished slot occurrence and marks non-completers as missed.
func (s *Sweeper) closeSlot(ctx context.Context, groupID int64, p *pinned, logger *logrus.Entry) error {
	if p.MessageID != 0 {
		if err := s.chat.Unpin(ctx, groupID, p.MessageID); err != nil {
			logger.Warnf("unpinning announcement: %v", err)
		}
		s.chat.Delete(ctx, groupID, p.MessageID)
	}

	missed, err := s.storage.RecordMissed(ctx, groupID, p.EventID, p.SlotID, p.Day)
	if err != nil {
		return fmt.Errorf("recording missed: %w", err)
	}
	if err := s.storage.DeleteRuntimeState(ctx, groupID, keyPinnedSlot, keyPinnedMessage, keyPinnedDay, keyPinnedEvent); err != nil {
		return fmt.Errorf("clearing pinned slot: %w", err)
	}
	logger.Infof("slot %d of %s closed, %d members missed it", p.SlotID, p.Day, missed)
	return nil
}

func announcement(slot *models.Slot, event *models.Event) string {
	text := fmt.Sprintf("⏰ %s - Time: %s to %s\n\n", slot.Name, slot.StartTime, slot.EndTime)
	if slot.InitialMessage != "" {
		text += slot.InitialMessage
	} else {
		text += fmt.Sprintf("%s has started!", slot.Name)
	}
	if event != nil {
		text += fmt.Sprintf("\n📅 Event: %s", event.Name)
	}
	return text
}

func announcementOptions(slot *models.Slot) []any {
	if slot.Type == models.SlotTypeButton {
		return []any{engine.WaterKeyboard(slot.ID)}
	}
	return nil
}

// announcementContent wraps the text into a photo when the slot has an image on disk.
func announcementContent(slot *models.Slot, text string) any {
	if slot.Type == models.SlotTypeButton || slot.ImagePath == "" {
		return text
	}
	if _, err := os.Stat(slot.ImagePath); err != nil {
		return text
	}
	return &telebot.Photo{File: telebot.FromDisk(slot.ImagePath), Caption: text}
}

// SendReminders posts a single reminder per slot occurrence once less than reminder_before_end is left.
func (s *Sweeper) SendReminders(ctx context.Context) error {
	now := s.clock()
	return s.forEachGroup(ctx, sweepReminder, func(ctx context.Context, g *models.GroupConfig, logger *logrus.Entry) error {
		slot, err := s.resolver.ActiveSlot(ctx, g.ChatID, now)
		if err != nil || slot == nil {
			return err
		}
		w, err := slots.ParseWindow(slot.StartTime, slot.EndTime)
		if err != nil {
			return err
		}
		if w.Duration() <= s.config.ReminderBeforeEnd {
			return nil
		}
		remaining := w.Remaining(now)
		if remaining > s.config.ReminderBeforeEnd {
			return nil
		}

		mark := fmt.Sprintf("%d@%s", slot.ID, s.resolver.SlotDay(slot, now))
		last, _, err := s.storage.GetRuntimeState(ctx, g.ChatID, keyReminded)
		if err != nil {
			return err
		}
		if last == mark {
			return nil
		}
		if err := s.storage.SetRuntimeState(ctx, g.ChatID, keyReminded, mark); err != nil {
			return err
		}

		s.chat.Send(ctx, g.ChatID, fmt.Sprintf(
			"⏰ %s - Reminder!\n\n⚠️ Only %d minutes remaining!\n📸 If you haven't posted yet, do it now!",
			slot.Name, int(math.Ceil(remaining.Minutes())),
		))
		logger.Infof("reminded about slot %s", slot.Name)
		return nil
	})
}
