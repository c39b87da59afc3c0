package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	defaultEventName       = "Wellness Challenge"
	defaultEventDays       = 30
	defaultEventPassPoints = 250
)

func keywords(words ...string) []models.SlotKeyword {
	out := make([]models.SlotKeyword, 0, len(words))
	for _, w := range words {
		out = append(out, models.SlotKeyword{Keyword: w})
	}
	return out
}

// DefaultSlots is the daily schedule a newly configured group starts with.
func DefaultSlots() []models.Slot {
	return []models.Slot{
		{
			Name: "Good Morning", StartTime: "05:00", EndTime: "07:00", Type: models.SlotTypeText, Points: 10,
			InitialMessage:   "It's Good Morning time everyone! Share your morning photo 🌅",
			ResponsePositive: "Great start to your day! ✅",
			ResponseClarify:  "Is this for the Good Morning slot?",
			IsMandatory:      true,
			Keywords:         keywords("good morning", "morning"),
		},
		{
			Name: "Workout", StartTime: "07:00", EndTime: "09:00", Type: models.SlotTypeMedia, Points: 10,
			InitialMessage:   "It's Workout time everyone! Post your exercise photo 💪",
			ResponsePositive: "Amazing workout! 💪",
			ResponseClarify:  "Is this for the Workout slot?",
			IsMandatory:      true,
		},
		{
			Name: "Breakfast", StartTime: "09:00", EndTime: "10:30", Type: models.SlotTypeMedia, Points: 10,
			InitialMessage:   "It's Breakfast time everyone! Share your delicious & healthy meal 🍳",
			ResponsePositive: "Healthy breakfast! 🍳",
			ResponseClarify:  "Is this for the Breakfast slot?",
			IsMandatory:      true,
			Keywords:         keywords("breakfast", "morning meal"),
		},
		{
			Name: "Morning Water Intake", StartTime: "10:30", EndTime: "12:00", Type: models.SlotTypeButton, Points: 2,
			InitialMessage:   "Let's check your morning hydration everyone! How much water did you drink? 💧",
			ResponsePositive: "Great hydration! 💧",
			ResponseClarify:  "Did you drink water?",
			IsMandatory:      true,
		},
		{
			Name: "Lunch", StartTime: "12:30", EndTime: "14:30", Type: models.SlotTypeMedia, Points: 10,
			InitialMessage:   "It's Lunch time everyone! Post your delicious meal 🍱",
			ResponsePositive: "Nutritious lunch! 🍱",
			ResponseClarify:  "Is this for the Lunch slot?",
			IsMandatory:      true,
			Keywords:         keywords("lunch", "afternoon meal"),
		},
		{
			Name: "Afternoon Water Intake", StartTime: "15:00", EndTime: "16:30", Type: models.SlotTypeButton, Points: 2,
			InitialMessage:   "Let's check your afternoon hydration everyone! How much water did you drink? 💧",
			ResponsePositive: "Great hydration! 💧",
			ResponseClarify:  "Did you drink water?",
			IsMandatory:      true,
		},
		{
			Name: "Evening Snacks", StartTime: "17:00", EndTime: "18:30", Type: models.SlotTypeMedia, Points: 10,
			InitialMessage:   "Evening snack time! Share your healthy snack 🍎",
			ResponsePositive: "Healthy snack! 🍎",
			ResponseClarify:  "Is this for the Evening Snacks slot?",
			Keywords:         keywords("snacks", "evening snack"),
		},
		{
			Name: "Evening Water Intake", StartTime: "18:30", EndTime: "19:30", Type: models.SlotTypeButton, Points: 2,
			InitialMessage:   "Let's check how hydrated you are this evening! Track your water 💧",
			ResponsePositive: "Great hydration! 💧",
			ResponseClarify:  "Did you drink water?",
			IsMandatory:      true,
		},
		{
			Name: "Dinner", StartTime: "19:30", EndTime: "21:30", Type: models.SlotTypeMedia, Points: 10,
			InitialMessage:   "It's Dinner time everyone! Share your healthy meal 🍽️",
			ResponsePositive: "Delicious dinner! 🍽️",
			ResponseClarify:  "Is this for the Dinner slot?",
			IsMandatory:      true,
			Keywords:         keywords("dinner", "night meal"),
		},
	}
}

// ConfigureGroup sets up a group the bot now administers: config, default event and slots.
// It reports whether the group was new.
func (e *Engine) ConfigureGroup(ctx context.Context, chatID int64, title string, adminID int64) (bool, error) {
	now := e.clock()
	created, err := e.storage.ConfigureGroup(ctx, &storage.GroupSetup{
		ChatID:          chatID,
		Title:           title,
		AdminUserID:     adminID,
		LicenseKey:      fmt.Sprintf("AUTO_%d_%d", chatID, now.Unix()),
		EventName:       defaultEventName,
		EventStart:      now.Format(slots.DayLayout),
		EventEnd:        now.AddDate(0, 0, defaultEventDays-1).Format(slots.DayLayout),
		EventPassPoints: defaultEventPassPoints,
		Slots:           DefaultSlots(),
	})
	if err != nil {
		return false, fmt.Errorf("configuring group: %w", err)
	}
	if !created {
		return false, nil
	}

	logrus.WithField("chat_id", chatID).Infof("group %q configured, admin %d", title, adminID)

	if admins, err := e.chat.Administrators(ctx, chatID); err != nil {
		logrus.WithField("chat_id", chatID).Warnf("syncing admins: %v", err)
	} else if err := e.storage.SyncAdmins(ctx, chatID, admins); err != nil {
		logrus.WithField("chat_id", chatID).Warnf("syncing admins: %v", err)
	}

	msg := e.chat.Send(ctx, chatID, setupMessage(len(DefaultSlots())))
	if msg != nil {
		if err := e.chat.Pin(ctx, chatID, msg.ID); err != nil {
			logrus.WithField("chat_id", chatID).Warnf("pinning setup message: %v", err)
		}
	}
	return true, nil
}

// HandleBotPromoted configures the group once the bot has been made an administrator.
func (e *Engine) HandleBotPromoted(ctx context.Context, chatID int64, title string, promotedBy User) error {
	admins, err := e.chat.Administrators(ctx, chatID)
	if err != nil {
		return fmt.Errorf("getting admins: %w", err)
	}
	owner := promotedBy.ID
	if !slices.Contains(admins, owner) && len(admins) > 0 {
		owner = admins[0]
	}
	_, err = e.ConfigureGroup(ctx, chatID, title, owner)
	return err
}

func setupMessage(slotCount int) string {
	return fmt.Sprintf(
		"👋 Hello! I'm now managing this group!\n\n"+
			"✅ Auto-Setup Complete!\n\n"+
			"I've automatically configured:\n"+
			"• %d daily time slots\n"+
			"• Points tracking system\n"+
			"• Content moderation\n"+
			"• Auto member management\n\n"+
			"📋 Commands:\n"+
			"/schedule - View all time slots\n"+
			"/points - Check your points\n"+
			"/leaderboard - Top members\n\n"+
			"🎯 Ready to use! Post messages during time slots to earn points!",
		slotCount,
	)
}
