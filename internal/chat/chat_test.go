package chat

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type fakeBot struct {
	telebot.API

	sendErrs []error
	sends    int
	deletes  []telebot.Editable
	bans     []int64
	unbans   []int64
}

func (f *fakeBot) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	f.sends++
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &telebot.Message{ID: 100 + f.sends}, nil
}

func (f *fakeBot) Delete(msg telebot.Editable) error {
	f.deletes = append(f.deletes, msg)
	return nil
}

func (f *fakeBot) Ban(chat *telebot.Chat, member *telebot.ChatMember, revoke ...bool) error {
	f.bans = append(f.bans, member.User.ID)
	return nil
}

func (f *fakeBot) Unban(chat *telebot.Chat, user *telebot.User, forBanned ...bool) error {
	f.unbans = append(f.unbans, user.ID)
	return nil
}

func newTestClient(bot *fakeBot, retries int) (*Client, *[]time.Duration) {
	c := New(bot, retries)
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

func TestSendRetriesTimeoutsLinearly(t *testing.T) {
	bot := &fakeBot{sendErrs: []error{timeoutErr{}, timeoutErr{}}}
	c, waits := newTestClient(bot, 2)

	msg := c.Send(context.Background(), -1, "hi")
	if msg == nil {
		t.Fatal("Send() = nil, want message after retries")
	}
	if bot.sends != 3 {
		t.Errorf("sends = %d, want 3", bot.sends)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(*waits) != len(want) || (*waits)[0] != want[0] || (*waits)[1] != want[1] {
		t.Errorf("waits = %v, want %v", *waits, want)
	}
}

func TestSendGivesUpWithNil(t *testing.T) {
	bot := &fakeBot{sendErrs: []error{timeoutErr{}, timeoutErr{}, timeoutErr{}}}
	c, _ := newTestClient(bot, 2)

	if msg := c.Send(context.Background(), -1, "hi"); msg != nil {
		t.Fatalf("Send() = %v, want nil", msg)
	}
	if bot.sends != 3 {
		t.Errorf("sends = %d, want 3", bot.sends)
	}
}

func TestSendDoesNotRetryPermanentErrors(t *testing.T) {
	bot := &fakeBot{sendErrs: []error{errors.New("bad request")}}
	c, waits := newTestClient(bot, 2)

	if msg := c.Send(context.Background(), -1, "hi"); msg != nil {
		t.Fatalf("Send() = %v, want nil", msg)
	}
	if bot.sends != 1 || len(*waits) != 0 {
		t.Errorf("sends = %d, waits = %v; want a single attempt", bot.sends, *waits)
	}
}

func TestKickBansThenUnbans(t *testing.T) {
	bot := &fakeBot{}
	c, _ := newTestClient(bot, 2)

	if err := c.Kick(context.Background(), -1, 42); err != nil {
		t.Fatalf("Kick() error: %v", err)
	}
	if len(bot.bans) != 1 || bot.bans[0] != 42 || len(bot.unbans) != 1 || bot.unbans[0] != 42 {
		t.Errorf("bans = %v, unbans = %v", bot.bans, bot.unbans)
	}
}

func TestDeleteSkipsZeroID(t *testing.T) {
	bot := &fakeBot{}
	c, _ := newTestClient(bot, 2)

	c.Delete(context.Background(), -1, 0)
	c.Delete(context.Background(), -1, 7)
	if len(bot.deletes) != 1 {
		t.Fatalf("deletes = %d, want 1", len(bot.deletes))
	}
	id, chatID := bot.deletes[0].MessageSig()
	if id != "7" || chatID != -1 {
		t.Errorf("deleted %s in %d", id, chatID)
	}
}

func TestTransportErrorsHideToken(t *testing.T) {
	c, waits := newTestClient(&fakeBot{}, 2)

	err := c.do(context.Background(), "sending", func() error {
		return fmt.Errorf("telebot: %w", &url.Error{
			Op:  "Post",
			URL: "https://api.telegram.org/bot123:SECRET/sendMessage",
			Err: timeoutErr{},
		})
	})
	if err == nil {
		t.Fatal("do() returned nil for a failing call")
	}
	if strings.Contains(err.Error(), "SECRET") {
		t.Errorf("error leaks the token: %v", err)
	}
	if len(*waits) != 2 {
		t.Errorf("retried %d times, want 2", len(*waits))
	}
}
