package monitor

import (
	"testing"

	"github.com/C4T-BuT-S4D/slotwarden/internal/engine"
	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/submission"
	"gopkg.in/telebot.v4"
)

func TestCommandOf(t *testing.T) {
	for _, tc := range []struct {
		text string
		want string
		ok   bool
	}{
		{"/points", "points", true},
		{"/Schedule@slotwarden_bot", "schedule", true},
		{"/help me", "help", true},
		{engine.ButtonMyScore, "points", true},
		{engine.ButtonTimeSheet, "schedule", true},
		{"breakfast /points", "", false},
		{"/", "", false},
		{"", "", false},
	} {
		got, ok := commandOf(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Errorf("commandOf(%q) = %q, %v; want %q, %v", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestContentOf(t *testing.T) {
	for _, tc := range []struct {
		name string
		msg  *telebot.Message
		want submission.Content
	}{
		{
			name: "text",
			msg:  &telebot.Message{Text: "good morning"},
			want: submission.Text{Body: "good morning"},
		},
		{
			name: "photo",
			msg:  &telebot.Message{Photo: &telebot.Photo{File: telebot.File{FileID: "p1"}}, Caption: "lunch"},
			want: submission.Photo{FileID: "p1", Caption: "lunch"},
		},
		{
			name: "sticker",
			msg:  &telebot.Message{Sticker: &telebot.Sticker{File: telebot.File{FileID: "s1"}}},
			want: submission.Media{Kind: models.ActivitySticker, FileID: "s1"},
		},
		{
			name: "document",
			msg:  &telebot.Message{Document: &telebot.Document{File: telebot.File{FileID: "d1"}, FileName: "plan.pdf"}, Caption: "diet"},
			want: submission.Media{Kind: models.ActivityDocument, FileID: "d1", FileName: "plan.pdf", Caption: "diet"},
		},
		{
			name: "unsupported",
			msg:  &telebot.Message{Location: &telebot.Location{Lat: 1, Lng: 2}},
			want: nil,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := contentOf(tc.msg); got != tc.want {
				t.Errorf("contentOf() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestPresent(t *testing.T) {
	for role, want := range map[telebot.MemberStatus]bool{
		telebot.Creator:       true,
		telebot.Administrator: true,
		telebot.Member:        true,
		telebot.Restricted:    true,
		telebot.Left:          false,
		telebot.Kicked:        false,
	} {
		if got := present(role); got != want {
			t.Errorf("present(%s) = %v, want %v", role, got, want)
		}
	}
}
