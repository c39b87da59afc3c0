// Package chat wraps the Telegram API with the retry policy business code relies on.
// Message operations never fail from the caller's point of view: after the retry budget
// is spent the error is logged and nil is returned.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/metrics"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"
)

// Messenger is the chat surface used by the engine and lifecycle sweeps.
type Messenger interface {
	Send(ctx context.Context, chatID int64, what any, opts ...any) *telebot.Message
	Edit(ctx context.Context, chatID int64, messageID int, what any, opts ...any) *telebot.Message
	Reply(ctx context.Context, chatID int64, messageID int, what any, opts ...any) *telebot.Message
	Delete(ctx context.Context, chatID int64, messageID int)

	Pin(ctx context.Context, chatID int64, messageID int) error
	Unpin(ctx context.Context, chatID int64, messageID int) error

	Restrict(ctx context.Context, chatID, userID int64, until time.Time) error
	Unrestrict(ctx context.Context, chatID, userID int64) error
	Kick(ctx context.Context, chatID, userID int64) error
	Administrators(ctx context.Context, chatID int64) ([]int64, error)

	Respond(ctx context.Context, cb *telebot.Callback, text string, alert bool) error
}

const timeoutStep = 5 * time.Second

type Client struct {
	bot     telebot.API
	retries int
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(bot telebot.API, retries int) *Client {
	return &Client{
		bot:     bot,
		retries: retries,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func floodWait(err error) (time.Duration, bool) {
	var fe telebot.FloodError
	if errors.As(err, &fe) {
		return time.Duration(fe.RetryAfter) * time.Second, true
	}
	var pfe *telebot.FloodError
	if errors.As(err, &pfe) && pfe != nil {
		return time.Duration(pfe.RetryAfter) * time.Second, true
	}
	return 0, false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// stripURL drops the request URL from transport errors. Bot API URLs carry the token.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// do runs call, retrying flood and timeout errors up to c.retries times.
// Any other error is returned immediately.
func (c *Client) do(ctx context.Context, what string, call func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = stripURL(call()); err == nil {
			return nil
		}
		if attempt >= c.retries {
			break
		}

		var wait time.Duration
		if d, ok := floodWait(err); ok {
			wait = d
			metrics.TransportRetries.WithLabelValues("flood").Inc()
		} else if isTimeout(err) {
			wait = timeoutStep * time.Duration(attempt+1)
			metrics.TransportRetries.WithLabelValues("timeout").Inc()
		} else {
			return err
		}

		logrus.Warnf("%s failed (attempt %d), retrying in %v: %v", what, attempt+1, wait, err)
		if serr := c.sleep(ctx, wait); serr != nil {
			return fmt.Errorf("%s: %w", what, errors.Join(err, serr))
		}
	}
	metrics.TransportDropped.Inc()
	return err
}

func ref(chatID int64, messageID int) telebot.StoredMessage {
	return telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
}

func (c *Client) Send(ctx context.Context, chatID int64, what any, opts ...any) *telebot.Message {
	var msg *telebot.Message
	err := c.do(ctx, "send", func() (err error) {
		msg, err = c.bot.Send(&telebot.Chat{ID: chatID}, what, opts...)
		return err
	})
	if err != nil {
		logrus.WithField("chat_id", chatID).Errorf("message not delivered: %v", err)
		return nil
	}
	return msg
}

func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, what any, opts ...any) *telebot.Message {
	var msg *telebot.Message
	err := c.do(ctx, "edit", func() (err error) {
		msg, err = c.bot.Edit(ref(chatID, messageID), what, opts...)
		return err
	})
	if err != nil {
		logrus.WithField("chat_id", chatID).Errorf("message %d not edited: %v", messageID, err)
		return nil
	}
	return msg
}

func (c *Client) Reply(ctx context.Context, chatID int64, messageID int, what any, opts ...any) *telebot.Message {
	to := &telebot.Message{ID: messageID, Chat: &telebot.Chat{ID: chatID}}
	var msg *telebot.Message
	err := c.do(ctx, "reply", func() (err error) {
		msg, err = c.bot.Reply(to, what, opts...)
		return err
	})
	if err != nil {
		logrus.WithField("chat_id", chatID).Errorf("reply to %d not delivered: %v", messageID, err)
		return nil
	}
	return msg
}

func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := c.do(ctx, "delete", func() error {
		return c.bot.Delete(ref(chatID, messageID))
	}); err != nil {
		logrus.WithField("chat_id", chatID).Warnf("message %d not deleted: %v", messageID, err)
	}
}

func (c *Client) Pin(ctx context.Context, chatID int64, messageID int) error {
	return c.do(ctx, "pin", func() error {
		return c.bot.Pin(ref(chatID, messageID), telebot.Silent)
	})
}

func (c *Client) Unpin(ctx context.Context, chatID int64, messageID int) error {
	return c.do(ctx, "unpin", func() error {
		return c.bot.Unpin(&telebot.Chat{ID: chatID}, messageID)
	})
}

// Restrict mutes the user until the given time.
func (c *Client) Restrict(ctx context.Context, chatID, userID int64, until time.Time) error {
	member := &telebot.ChatMember{
		User:            &telebot.User{ID: userID},
		Rights:          telebot.NoRights(),
		RestrictedUntil: until.Unix(),
	}
	return c.do(ctx, "restrict", func() error {
		return c.bot.Restrict(&telebot.Chat{ID: chatID}, member)
	})
}

func (c *Client) Unrestrict(ctx context.Context, chatID, userID int64) error {
	member := &telebot.ChatMember{
		User:   &telebot.User{ID: userID},
		Rights: telebot.NoRestrictions(),
	}
	return c.do(ctx, "unrestrict", func() error {
		return c.bot.Restrict(&telebot.Chat{ID: chatID}, member)
	})
}

// Kick removes the user with a short ban followed by an unban, so they may join again.
func (c *Client) Kick(ctx context.Context, chatID, userID int64) error {
	chat := &telebot.Chat{ID: chatID}
	user := &telebot.User{ID: userID}
	member := &telebot.ChatMember{User: user, RestrictedUntil: time.Now().Add(time.Minute).Unix()}

	if err := c.do(ctx, "ban", func() error {
		return c.bot.Ban(chat, member)
	}); err != nil {
		return fmt.Errorf("banning user %d: %w", userID, err)
	}
	if err := c.do(ctx, "unban", func() error {
		return c.bot.Unban(chat, user, true)
	}); err != nil {
		return fmt.Errorf("unbanning user %d: %w", userID, err)
	}
	return nil
}

// Administrators returns the ids of the chat's human administrators.
func (c *Client) Administrators(ctx context.Context, chatID int64) ([]int64, error) {
	var admins []telebot.ChatMember
	if err := c.do(ctx, "admins", func() (err error) {
		admins, err = c.bot.AdminsOf(&telebot.Chat{ID: chatID})
		return err
	}); err != nil {
		return nil, fmt.Errorf("getting admins of %d: %w", chatID, err)
	}

	ids := make([]int64, 0, len(admins))
	for _, a := range admins {
		if a.User == nil || a.User.IsBot {
			continue
		}
		ids = append(ids, a.User.ID)
	}
	return ids, nil
}

func (c *Client) Respond(ctx context.Context, cb *telebot.Callback, text string, alert bool) error {
	return c.do(ctx, "respond", func() error {
		return c.bot.Respond(cb, &telebot.CallbackResponse{Text: text, ShowAlert: alert})
	})
}
