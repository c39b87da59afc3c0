package monitor

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/slotwarden/internal/config"
	"github.com/C4T-BuT-S4D/slotwarden/internal/engine"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"gopkg.in/telebot.v4"
)

type Monitor struct {
	config  *config.Config
	storage *storage.Storage
	engine  *engine.Engine
}

func New(cfg *config.Config, storage *storage.Storage, eng *engine.Engine) *Monitor {
	return &Monitor{
		config:  cfg,
		storage: storage,
		engine:  eng,
	}
}

// HandleAnyUpdate routes every update the bot receives. Handler errors are logged, never
// returned, so one bad update cannot stall the poller.
func (m *Monitor) HandleAnyUpdate(c telebot.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.BotHandleTimeout)
	defer cancel()

	uc := NewUpdateContext(ctx, c)
	upd := c.Update()

	uc.L().Debugf(
		"Received update message=%v, callback=%v, chat_member=%v, my_chat_member=%v",
		upd.Message != nil,
		upd.Callback != nil,
		upd.ChatMember != nil,
		upd.MyChatMember != nil,
	)

	if err := m.storage.UpdateLastUpdate(uc, upd.ID); err != nil {
		uc.L().Errorf("failed to update last update: %v", err)
	}

	var err error
	switch {
	case upd.MyChatMember != nil:
		err = m.HandleMyChatMember(uc, upd.MyChatMember)
	case upd.ChatMember != nil:
		err = m.HandleChatMember(uc, upd.ChatMember)
	case upd.Callback != nil:
		err = m.HandleCallback(uc, upd.Callback)
	case upd.Message != nil:
		err = m.HandleMessage(uc, upd.Message)
	default:
		uc.L().Debug("ignoring update")
	}
	if err != nil {
		uc.L().Errorf("failed to handle update: %v", err)
	}
	return nil
}

func (m *Monitor) HandleMessage(uc *UpdateContext, msg *telebot.Message) error {
	switch {
	case msg.UserJoined != nil || len(msg.UsersJoined) > 0:
		return m.HandleUsersJoined(uc, msg)
	case msg.UserLeft != nil:
		if !uc.IsGroup() {
			return nil
		}
		return m.engine.HandleLeave(uc, msg.Chat.ID, userOf(msg.UserLeft))
	}

	if name, ok := commandOf(msg.Text); ok {
		return m.HandleCommand(uc, name, msg)
	}

	if !uc.IsGroup() {
		uc.L().Debugf("ignoring message from non-group chat %d", msg.Chat.ID)
		return nil
	}
	if msg.Sender == nil || msg.SenderChat != nil {
		uc.L().Debug("ignoring message sent on behalf of a chat")
		return nil
	}

	outcome, err := m.engine.HandleMessage(uc, &engine.Incoming{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		From:      userOf(msg.Sender),
		Content:   contentOf(msg),
	})
	uc.L().Debugf("message %d: %s", msg.ID, outcome)
	return err
}

func (m *Monitor) HandleUsersJoined(uc *UpdateContext, msg *telebot.Message) error {
	if !uc.IsGroup() {
		return nil
	}
	// telebot sets UserJoined once per user even for multi-user joins.
	joined := msg.UsersJoined
	if msg.UserJoined != nil {
		joined = []telebot.User{*msg.UserJoined}
	}
	for i := range joined {
		u := userOf(&joined[i])
		uc.L().Infof("User %s (%d) joined the chat %d", u.Username, u.ID, msg.Chat.ID)
		if err := m.engine.HandleJoin(uc, msg.Chat.ID, u); err != nil {
			return fmt.Errorf("handling join of %d: %w", u.ID, err)
		}
	}
	return nil
}

// HandleChatMember covers joins and leaves reported as membership changes rather than service messages.
func (m *Monitor) HandleChatMember(uc *UpdateContext, upd *telebot.ChatMemberUpdate) error {
	if upd.NewChatMember == nil || upd.NewChatMember.User == nil || upd.OldChatMember == nil {
		return nil
	}
	u := userOf(upd.NewChatMember.User)
	was, now := present(upd.OldChatMember.Role), present(upd.NewChatMember.Role)

	switch {
	case !was && now:
		uc.L().Infof("User %d became a member of chat %d", u.ID, upd.Chat.ID)
		return m.engine.HandleJoin(uc, upd.Chat.ID, u)
	case was && !now && upd.NewChatMember.Role == telebot.Left:
		uc.L().Infof("User %d left chat %d", u.ID, upd.Chat.ID)
		return m.engine.HandleLeave(uc, upd.Chat.ID, u)
	}
	return nil
}

func present(role telebot.MemberStatus) bool {
	switch role {
	case telebot.Creator, telebot.Administrator, telebot.Member, telebot.Restricted:
		return true
	default:
		return false
	}
}

// HandleMyChatMember configures the group once the bot itself is promoted to administrator.
func (m *Monitor) HandleMyChatMember(uc *UpdateContext, upd *telebot.ChatMemberUpdate) error {
	if upd.NewChatMember == nil || upd.Chat == nil {
		return nil
	}
	if upd.Chat.Type != telebot.ChatGroup && upd.Chat.Type != telebot.ChatSuperGroup {
		return nil
	}
	if upd.NewChatMember.Role != telebot.Administrator {
		uc.L().Infof("bot is now %s in chat %d", upd.NewChatMember.Role, upd.Chat.ID)
		return nil
	}
	if upd.OldChatMember != nil && upd.OldChatMember.Role == telebot.Administrator {
		return nil
	}

	uc.L().Infof("bot promoted in chat %d (%s)", upd.Chat.ID, upd.Chat.Title)
	return m.engine.HandleBotPromoted(uc, upd.Chat.ID, upd.Chat.Title, userOf(upd.Sender))
}

func (m *Monitor) HandleCallback(uc *UpdateContext, cb *telebot.Callback) error {
	if cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	press := &engine.Press{
		Callback:  cb,
		ChatID:    cb.Message.Chat.ID,
		MessageID: cb.Message.ID,
		From:      userOf(cb.Sender),
	}

	if payload, ok := engine.CallbackActionConfirm.Payload(cb.Data); ok {
		press.Payload = payload
		return m.engine.HandleConfirmation(uc, press)
	}
	if payload, ok := engine.CallbackActionWater.Payload(cb.Data); ok {
		press.Payload = payload
		return m.engine.HandleWater(uc, press)
	}

	uc.L().Warnf("unknown callback data %q", cb.Data)
	return nil
}

func (m *Monitor) HandleCommand(uc *UpdateContext, name string, msg *telebot.Message) error {
	cmd := &engine.Command{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Private:   msg.Chat.Type == telebot.ChatPrivate,
		Title:     msg.Chat.Title,
		From:      userOf(msg.Sender),
	}
	uc.L().Infof("command /%s from %d", name, cmd.From.ID)

	switch name {
	case "start":
		return m.engine.Start(uc, cmd)
	case "points":
		return m.engine.Points(uc, cmd)
	case "schedule":
		return m.engine.Schedule(uc, cmd)
	case "help":
		return m.engine.Help(uc, cmd)
	case "leaderboard":
		return m.engine.Leaderboard(uc, cmd)
	}

	// Unknown commands in a group are ordinary messages.
	if !uc.IsGroup() || msg.Sender == nil {
		return nil
	}
	_, err := m.engine.HandleMessage(uc, &engine.Incoming{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		From:      userOf(msg.Sender),
		Content:   contentOf(msg),
	})
	return err
}
