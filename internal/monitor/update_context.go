package monitor

import (
	"context"

	"github.com/C4T-BuT-S4D/slotwarden/internal/engine"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

// UpdateContext is the context handed to the engine for one update. Its logger is
// bound to the update, chat and sender ids.
type UpdateContext struct {
	context.Context
	chat *telebot.Chat
	log  *logrus.Entry
}

func NewUpdateContext(c context.Context, tc telebot.Context) *UpdateContext {
	uc := &UpdateContext{
		Context: c,
		chat:    tc.Chat(),
	}

	fields := logrus.Fields{"update_id": tc.Update().ID}
	if uc.chat != nil {
		fields["chat_id"] = uc.chat.ID
		fields["chat_type"] = uc.chat.Type
	}
	if sender := tc.Sender(); sender != nil {
		fields["sender_id"] = sender.ID
		fields["sender_username"] = sender.Username
	}
	uc.log = logrus.WithFields(fields)
	return uc
}

func (uc *UpdateContext) L() *logrus.Entry {
	return uc.log
}

// IsGroup reports whether the update came from a group or supergroup.
func (uc *UpdateContext) IsGroup() bool {
	return uc.chat != nil && (uc.chat.Type == telebot.ChatGroup || uc.chat.Type == telebot.ChatSuperGroup)
}

func userOf(u *telebot.User) engine.User {
	if u == nil {
		return engine.User{}
	}
	return engine.User{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.IsBot,
	}
}
