package engine

import (
	"fmt"
	"strings"

	"gopkg.in/telebot.v4"
)

type CallbackAction string

const (
	CallbackActionConfirm CallbackAction = "confirm"
	CallbackActionWater   CallbackAction = "water"
)

func (a CallbackAction) String() string {
	return string(a)
}

// DataMatches reports whether raw callback data was produced by a button of this action.
// telebot encodes it as "\f<unique>|<payload>".
func (a CallbackAction) DataMatches(data string) bool {
	prefix := "\f" + a.String()
	return data == prefix || strings.HasPrefix(data, prefix+"|")
}

// Payload strips the action prefix from raw callback data.
func (a CallbackAction) Payload(data string) (string, bool) {
	if !a.DataMatches(data) {
		return "", false
	}
	return strings.TrimPrefix(strings.TrimPrefix(data, "\f"+a.String()), "|"), true
}

func (a CallbackAction) Button(m *telebot.ReplyMarkup, text string, payload ...string) telebot.Btn {
	return m.Data(text, a.String(), payload...)
}

const (
	answerYes = "yes"
	answerNo  = "no"

	ButtonMyScore   = "My Score 💯"
	ButtonTimeSheet = "Time Sheet 📅"
)

func confirmKeyboard() *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	m.Inline(m.Row(
		CallbackActionConfirm.Button(m, "✅ Yes", answerYes),
		CallbackActionConfirm.Button(m, "❌ No", answerNo),
	))
	return m
}

// WaterKeyboard is attached to button slot announcements.
func WaterKeyboard(slotID uint) *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	btn := func(liters int) telebot.Btn {
		return CallbackActionWater.Button(m, fmt.Sprintf("%dL %s", liters, strings.Repeat("💧", liters)), fmt.Sprintf("%d:%d", liters, slotID))
	}
	m.Inline(
		m.Row(btn(1), btn(2), btn(3)),
		m.Row(btn(4), btn(5)),
	)
	return m
}

func parseWater(payload string) (liters int, slotID uint, err error) {
	if _, err := fmt.Sscanf(payload, "%d:%d", &liters, &slotID); err != nil {
		return 0, 0, fmt.Errorf("parsing water payload %q: %w", payload, err)
	}
	if liters < 1 || liters > 5 {
		return 0, 0, fmt.Errorf("unexpected amount %d", liters)
	}
	return liters, slotID, nil
}

// MenuKeyboard is the persistent reply keyboard given to members.
func MenuKeyboard() *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{ResizeKeyboard: true}
	m.Reply(m.Row(m.Text(ButtonMyScore), m.Text(ButtonTimeSheet)))
	return m
}
