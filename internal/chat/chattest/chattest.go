// Package chattest provides an in-memory chat.Messenger for tests.
package chattest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/telebot.v4"
)

type Sent struct {
	ChatID    int64
	MessageID int
	Text      string
	Markup    *telebot.ReplyMarkup
	ReplyTo   int
}

type Edit struct {
	ChatID    int64
	MessageID int
	Text      string
}

type Ref struct {
	ChatID int64
	ID     int
}

type UserRef struct {
	ChatID int64
	UserID int64
}

type Restriction struct {
	ChatID int64
	UserID int64
	Until  time.Time
}

type Fake struct {
	mu sync.Mutex

	nextID int

	Sent         []Sent
	Edits        []Edit
	Deleted      []Ref
	Pinned       []Ref
	Unpinned     []Ref
	Kicked       []UserRef
	Restricted   []Restriction
	Unrestricted []UserRef
	Responses    []string

	Admins map[int64][]int64
}

func New() *Fake {
	return &Fake{nextID: 1000, Admins: make(map[int64][]int64)}
}

func describe(what any) string {
	switch v := what.(type) {
	case string:
		return v
	case *telebot.Photo:
		return v.Caption
	default:
		return fmt.Sprint(v)
	}
}

func markup(opts []any) *telebot.ReplyMarkup {
	for _, o := range opts {
		switch v := o.(type) {
		case *telebot.ReplyMarkup:
			return v
		case *telebot.SendOptions:
			if v.ReplyMarkup != nil {
				return v.ReplyMarkup
			}
		}
	}
	return nil
}

func (f *Fake) record(chatID int64, what any, replyTo int, opts []any) *telebot.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.Sent = append(f.Sent, Sent{
		ChatID:    chatID,
		MessageID: f.nextID,
		Text:      describe(what),
		Markup:    markup(opts),
		ReplyTo:   replyTo,
	})
	return &telebot.Message{ID: f.nextID, Chat: &telebot.Chat{ID: chatID}}
}

func (f *Fake) Send(_ context.Context, chatID int64, what any, opts ...any) *telebot.Message {
	return f.record(chatID, what, 0, opts)
}

func (f *Fake) Reply(_ context.Context, chatID int64, messageID int, what any, opts ...any) *telebot.Message {
	return f.record(chatID, what, messageID, opts)
}

func (f *Fake) Edit(_ context.Context, chatID int64, messageID int, what any, _ ...any) *telebot.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits = append(f.Edits, Edit{ChatID: chatID, MessageID: messageID, Text: describe(what)})
	return &telebot.Message{ID: messageID, Chat: &telebot.Chat{ID: chatID}}
}

func (f *Fake) Delete(_ context.Context, chatID int64, messageID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, Ref{chatID, messageID})
}

func (f *Fake) Pin(_ context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pinned = append(f.Pinned, Ref{chatID, messageID})
	return nil
}

func (f *Fake) Unpin(_ context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Unpinned = append(f.Unpinned, Ref{chatID, messageID})
	return nil
}

func (f *Fake) Restrict(_ context.Context, chatID, userID int64, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Restricted = append(f.Restricted, Restriction{chatID, userID, until})
	return nil
}

func (f *Fake) Unrestrict(_ context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Unrestricted = append(f.Unrestricted, UserRef{chatID, userID})
	return nil
}

func (f *Fake) Kick(_ context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Kicked = append(f.Kicked, UserRef{chatID, userID})
	return nil
}

func (f *Fake) Administrators(_ context.Context, chatID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Admins[chatID], nil
}

func (f *Fake) Respond(_ context.Context, _ *telebot.Callback, text string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses = append(f.Responses, text)
	return nil
}

func (f *Fake) WasDeleted(chatID int64, messageID int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.Deleted {
		if d.ChatID == chatID && d.ID == messageID {
			return true
		}
	}
	return false
}

func (f *Fake) WasKicked(chatID, userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.Kicked {
		if k.ChatID == chatID && k.UserID == userID {
			return true
		}
	}
	return false
}

// SentContaining returns sent messages whose text contains substr.
func (f *Fake) SentContaining(substr string) []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Sent
	for _, s := range f.Sent {
		if strings.Contains(s.Text, substr) {
			out = append(out, s)
		}
	}
	return out
}

func (f *Fake) LastEdit() (Edit, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Edits) == 0 {
		return Edit{}, false
	}
	return f.Edits[len(f.Edits)-1], true
}

func (f *Fake) LastSent() (Sent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return Sent{}, false
	}
	return f.Sent[len(f.Sent)-1], true
}
