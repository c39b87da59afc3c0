package storage_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage/storagetest"
)

const group = int64(-100123)

func TestDeductKnockoutPointsFloorsTotal(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 1, TotalPoints: 12})

	for _, deduction := range []int{5, 5, 5, 20} {
		if err := store.DeductKnockoutPoints(ctx, group, 1, deduction); err != nil {
			t.Fatalf("DeductKnockoutPoints: %v", err)
		}
		m, err := store.GetMember(ctx, group, 1)
		if err != nil {
			t.Fatalf("GetMember: %v", err)
		}
		if m.TotalPoints < 0 {
			t.Fatalf("total points went negative: %d", m.TotalPoints)
		}
	}

	m, err := store.GetMember(ctx, group, 1)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m.TotalPoints != 0 {
		t.Errorf("TotalPoints = %d, want 0", m.TotalPoints)
	}
	if m.KnockoutPoints != 35 {
		t.Errorf("KnockoutPoints = %d, want 35", m.KnockoutPoints)
	}
}

func TestMarkSlotCompletedOncePerDay(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)

	entry := func(day string) *models.DailySlotTracker {
		return &models.DailySlotTracker{GroupID: group, EventID: 1, SlotID: 2, UserID: 3, Day: day, PointsScored: 10}
	}

	first, err := store.MarkSlotCompleted(ctx, entry("2026-03-10"))
	if err != nil || !first {
		t.Fatalf("first MarkSlotCompleted = %v, %v; want true, nil", first, err)
	}
	for i := 0; i < 3; i++ {
		again, err := store.MarkSlotCompleted(ctx, entry("2026-03-10"))
		if err != nil {
			t.Fatalf("MarkSlotCompleted: %v", err)
		}
		if again {
			t.Fatalf("repeated MarkSlotCompleted returned true")
		}
	}
	nextDay, err := store.MarkSlotCompleted(ctx, entry("2026-03-11"))
	if err != nil || !nextDay {
		t.Fatalf("next day MarkSlotCompleted = %v, %v; want true, nil", nextDay, err)
	}

	done, err := store.CompletedToday(ctx, 1, 2, 3, "2026-03-10")
	if err != nil || !done {
		t.Errorf("CompletedToday = %v, %v; want true, nil", done, err)
	}
}

func TestRecordCompletionAwardsOnce(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 7})

	completion := func() *storage.Completion {
		return &storage.Completion{
			Tracker: models.DailySlotTracker{
				GroupID: group, EventID: 1, SlotID: 4, UserID: 7, Day: "2026-03-10", PointsScored: 10,
			},
			Activity: models.ActivityLog{GroupID: group, UserID: 7, SlotName: "Breakfast", Type: models.ActivityPhoto},
		}
	}

	results := []bool{}
	for i := 0; i < 3; i++ {
		first, err := store.RecordCompletion(ctx, completion())
		if err != nil {
			t.Fatalf("RecordCompletion: %v", err)
		}
		results = append(results, first)
	}
	if !results[0] || results[1] || results[2] {
		t.Fatalf("RecordCompletion results = %v, want [true false false]", results)
	}

	m, err := store.GetMember(ctx, group, 7)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m.TotalPoints != 10 {
		t.Errorf("TotalPoints = %d, want 10", m.TotalPoints)
	}
}

func TestRecordCompletionConcurrentAwardsOnce(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 8})

	const workers = 8
	var (
		wg     sync.WaitGroup
		firsts atomic.Int32
		errs   = make(chan error, workers)
		start  = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			first, err := store.RecordCompletion(ctx, &storage.Completion{
				Tracker: models.DailySlotTracker{
					GroupID: group, EventID: 1, SlotID: 5, UserID: 8, Day: "2026-03-10", PointsScored: 10,
				},
				Activity: models.ActivityLog{GroupID: group, UserID: 8, SlotName: "Lunch", Type: models.ActivityText},
			})
			if err != nil {
				errs <- err
				return
			}
			if first {
				firsts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("RecordCompletion: %v", err)
	}
	if got := firsts.Load(); got != 1 {
		t.Errorf("%d submissions were first, want exactly 1", got)
	}

	m, err := store.GetMember(ctx, group, 8)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m.TotalPoints != 10 {
		t.Errorf("TotalPoints = %d, want 10", m.TotalPoints)
	}
	logs, err := store.ActivityLogs(ctx, group, 8, 100)
	if err != nil {
		t.Fatalf("ActivityLogs: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("%d activity logs, want 1", len(logs))
	}
}

func TestLeaderboardSkipsNonPositiveNet(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 1, TotalPoints: 5, KnockoutPoints: 10})
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 2, TotalPoints: 30, KnockoutPoints: 5})
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 3, TotalPoints: 50})
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 4, TotalPoints: 10, KnockoutPoints: 10})

	board, err := store.Leaderboard(ctx, group, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("len(board) = %d, want 2", len(board))
	}
	if board[0].UserID != 3 || board[1].UserID != 2 {
		t.Errorf("order = [%d %d], want [3 2]", board[0].UserID, board[1].UserID)
	}
}

func TestRemoveMemberArchivesAndDeletes(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 9, TotalPoints: 40, DayNumber: 3})

	if _, err := store.RemoveMember(ctx, group, 9, models.HistoryActionLeft); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if _, err := store.GetMember(ctx, group, 9); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetMember after removal err = %v, want ErrNotFound", err)
	}

	h, err := store.LastDeparture(ctx, group, 9)
	if err != nil {
		t.Fatalf("LastDeparture: %v", err)
	}
	if h.Action != models.HistoryActionLeft || h.TotalPoints != 40 || h.DayNumber != 3 {
		t.Errorf("history = %+v, want left with 40 points on day 3", h)
	}
}

func TestSyncAdmins(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 1, IsAdmin: true})
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 2})
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 3})

	if err := store.SyncAdmins(ctx, group, []int64{2, 42}); err != nil {
		t.Fatalf("SyncAdmins: %v", err)
	}

	want := map[int64]bool{1: false, 2: true, 3: false}
	for id, admin := range want {
		m, err := store.GetMember(ctx, group, id)
		if err != nil {
			t.Fatalf("GetMember: %v", err)
		}
		if m.IsAdmin != admin {
			t.Errorf("member %d IsAdmin = %v, want %v", id, m.IsAdmin, admin)
		}
	}
}

func TestRuntimeState(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)

	if _, ok, err := store.GetRuntimeState(ctx, group, "pinned_slot_id"); err != nil || ok {
		t.Fatalf("GetRuntimeState on empty = %v, %v; want false, nil", ok, err)
	}
	for _, v := range []string{"1", "2"} {
		if err := store.SetRuntimeState(ctx, group, "pinned_slot_id", v); err != nil {
			t.Fatalf("SetRuntimeState: %v", err)
		}
	}
	v, ok, err := store.GetRuntimeState(ctx, group, "pinned_slot_id")
	if err != nil || !ok || v != "2" {
		t.Fatalf("GetRuntimeState = %q, %v, %v; want 2, true, nil", v, ok, err)
	}
	if err := store.DeleteRuntimeState(ctx, group, "pinned_slot_id"); err != nil {
		t.Fatalf("DeleteRuntimeState: %v", err)
	}
	if _, ok, _ := store.GetRuntimeState(ctx, group, "pinned_slot_id"); ok {
		t.Errorf("state still present after delete")
	}

	if err := store.UpdateLastUpdate(ctx, 991); err != nil {
		t.Fatalf("UpdateLastUpdate: %v", err)
	}
	if id, err := store.LastUpdateID(ctx); err != nil || id != 991 {
		t.Errorf("LastUpdateID = %d, %v; want 991, nil", id, err)
	}
}

func TestRecordMissedAndInactivityWarnings(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 1})
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 2})
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 3, IsRestricted: true})

	if _, err := store.MarkSlotCompleted(ctx, &models.DailySlotTracker{
		GroupID: group, EventID: 1, SlotID: 5, UserID: 1, Day: "2026-03-10",
	}); err != nil {
		t.Fatalf("MarkSlotCompleted: %v", err)
	}

	n, err := store.RecordMissed(ctx, group, 1, 5, "2026-03-10")
	if err != nil {
		t.Fatalf("RecordMissed: %v", err)
	}
	if n != 1 {
		t.Errorf("RecordMissed wrote %d rows, want 1", n)
	}

	idle, err := store.MembersWithoutCompletion(ctx, group, 1, "2026-03-10")
	if err != nil {
		t.Fatalf("MembersWithoutCompletion: %v", err)
	}
	if len(idle) != 1 || idle[0].UserID != 2 {
		t.Errorf("MembersWithoutCompletion = %v, want only user 2", idle)
	}

	first, err := store.RecordInactivityWarning(ctx, group, 2, "2026-03-10", "inactive")
	if err != nil || !first {
		t.Fatalf("first warning = %v, %v", first, err)
	}
	again, err := store.RecordInactivityWarning(ctx, group, 2, "2026-03-10", "inactive")
	if err != nil || again {
		t.Fatalf("repeated warning = %v, %v; want false, nil", again, err)
	}
}

func TestInactiveMembers(t *testing.T) {
	ctx := context.Background()
	store := storagetest.New(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 1, LastActiveAt: now.AddDate(0, 0, -5)})
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 2, LastActiveAt: now.Add(-time.Hour)})
	storagetest.AddMember(t, store, &models.Member{GroupID: group, UserID: 3, LastActiveAt: now.AddDate(0, 0, -5), IsAdmin: true})

	got, err := store.InactiveMembers(ctx, group, now.AddDate(0, 0, -3))
	if err != nil {
		t.Fatalf("InactiveMembers: %v", err)
	}
	if len(got) != 1 || got[0].UserID != 1 {
		t.Errorf("InactiveMembers = %v, want only user 1", got)
	}
}
