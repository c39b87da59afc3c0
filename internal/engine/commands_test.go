package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
)

func TestFormatLeaderboard(t *testing.T) {
	got := FormatLeaderboard([]*models.Member{
		{UserID: 1, FirstName: "Ann", TotalPoints: 50},
		{UserID: 2, Username: "bo", TotalPoints: 40, KnockoutPoints: 5},
		{UserID: 3, FirstName: "Cy", TotalPoints: 20},
		{UserID: 4, FirstName: "Di", TotalPoints: 10},
	})

	for _, want := range []string{
		"🏆 End of Day Leaderboard - Top 10",
		"🥇 1. Ann: 50 pts\n",
		"🥈 2. bo: 35 pts (40 earned - 5 lost)\n",
		"🥉 3. Cy: 20 pts\n",
		"\n4. Di: 10 pts\n",
		"See you tomorrow!",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("leaderboard missing %q:\n%s", want, got)
		}
	}
}

func TestPointsCommand(t *testing.T) {
	f := newFixture(t)
	f.addMember(alice, 25)

	if err := f.e.Points(context.Background(), &Command{ChatID: testChat, MessageID: 7, From: alice}); err != nil {
		t.Fatalf("points: %v", err)
	}
	sent, ok := f.chat.LastSent()
	if !ok || sent.ReplyTo != 7 {
		t.Fatalf("reply = %+v", sent)
	}
	for _, want := range []string{"🎯 Alice, your stats:", "✅ Earned Points: 25", "📅 Day: 1/7"} {
		if !strings.Contains(sent.Text, want) {
			t.Errorf("reply missing %q:\n%s", want, sent.Text)
		}
	}
}

func TestScheduleCommand(t *testing.T) {
	f := newFixture(t)

	if err := f.e.Schedule(context.Background(), &Command{ChatID: testChat, MessageID: 7, From: alice}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	sent, _ := f.chat.LastSent()
	if !strings.HasPrefix(sent.Text, "📅 Today's Schedule") || !strings.Contains(sent.Text, "Dinner\n⏰ 19:30 - 21:30") {
		t.Errorf("schedule = %q", sent.Text)
	}
}

func TestLeaderboardCommandAdminOnly(t *testing.T) {
	f := newFixture(t)
	f.addMember(alice, 25)
	ctx := context.Background()

	if err := f.e.Leaderboard(ctx, &Command{ChatID: testChat, MessageID: 7, From: alice}); err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if got := f.chat.SentContaining("Only admins"); len(got) != 1 {
		t.Errorf("non-admin replies = %+v", got)
	}

	f.chat.Admins[testChat] = []int64{testAdmin}
	if err := f.e.Leaderboard(ctx, &Command{ChatID: testChat, MessageID: 8, From: User{ID: testAdmin}}); err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if got := f.chat.SentContaining("1. Alice: 25 pts"); len(got) != 1 {
		t.Errorf("leaderboard posts = %+v", got)
	}
}

func TestStartConfiguresGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const chatID int64 = -2002

	f.chat.Admins[chatID] = []int64{5}
	if err := f.e.Start(ctx, &Command{ChatID: chatID, MessageID: 1, Title: "New", From: User{ID: 5}}); err != nil {
		t.Fatalf("start: %v", err)
	}

	list, err := f.store.ListSlots(ctx, chatID)
	if err != nil {
		t.Fatalf("listing slots: %v", err)
	}
	if len(list) != len(DefaultSlots()) {
		t.Errorf("slots = %d, want %d", len(list), len(DefaultSlots()))
	}
	if len(f.chat.Pinned) != 1 {
		t.Errorf("pinned = %+v", f.chat.Pinned)
	}

	if err := f.e.Start(ctx, &Command{ChatID: chatID, MessageID: 2, From: User{ID: 5}}); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if got := f.chat.SentContaining("Group is configured and active"); len(got) != 1 {
		t.Errorf("status replies = %+v", got)
	}
}
