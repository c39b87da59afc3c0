package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage/storagetest"
	"github.com/labstack/echo/v4"
)

const testChat int64 = -1001

func newServer(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()

	store := storagetest.New(t)
	ctx := context.Background()
	for _, s := range []*models.Slot{
		{GroupID: testChat, Name: "Breakfast", StartTime: "09:00", EndTime: "10:30", Type: models.SlotTypeMedia, Points: 10},
		{GroupID: testChat, Name: "Lunch", StartTime: "12:30", EndTime: "14:30", Type: models.SlotTypeMedia, Points: 10},
	} {
		if err := store.CreateSlot(ctx, s); err != nil {
			t.Fatalf("creating slot: %v", err)
		}
	}
	storagetest.AddMember(t, store, &models.Member{GroupID: testChat, UserID: 1, FirstName: "Ann", TotalPoints: 40, KnockoutPoints: 5})
	storagetest.AddMember(t, store, &models.Member{GroupID: testChat, UserID: 2, FirstName: "Bo", TotalPoints: 5, KnockoutPoints: 10})
	storagetest.AddMember(t, store, &models.Member{GroupID: testChat, UserID: 3, FirstName: "Cy", TotalPoints: 60})

	svc := NewService(store, slots.NewResolver(store, time.UTC))
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) }

	e := echo.New()
	svc.Register(e)
	return e, svc
}

func get(t *testing.T, e *echo.Echo, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s: %v", path, err)
		}
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	e, _ := newServer(t)
	if code := get(t, e, "/healthz", nil); code != http.StatusOK {
		t.Errorf("status = %d", code)
	}
}

func TestLeaderboard(t *testing.T) {
	e, _ := newServer(t)

	var resp struct {
		Leaderboard []leaderboardEntry `json:"leaderboard"`
	}
	if code := get(t, e, "/groups/-1001/leaderboard", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Leaderboard) != 2 {
		t.Fatalf("entries = %+v", resp.Leaderboard)
	}
	if first := resp.Leaderboard[0]; first.Name != "Cy" || first.Net != 60 || first.Rank != 1 {
		t.Errorf("first = %+v", first)
	}
	if second := resp.Leaderboard[1]; second.Name != "Ann" || second.Net != 35 || second.Knockout != 5 {
		t.Errorf("second = %+v", second)
	}

	if code := get(t, e, "/groups/-1001/leaderboard?limit=0", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", code)
	}
	if code := get(t, e, "/groups/abc/leaderboard", nil); code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", code)
	}
}

func TestSlots(t *testing.T) {
	e, _ := newServer(t)

	var resp struct {
		Day   string     `json:"day"`
		Slots []slotView `json:"slots"`
	}
	if code := get(t, e, "/groups/-1001/slots", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Day != "2025-03-10" || len(resp.Slots) != 2 {
		t.Fatalf("response = %+v", resp)
	}
	if !resp.Slots[0].Active || resp.Slots[1].Active {
		t.Errorf("active flags = %+v", resp.Slots)
	}
}

func TestActivityNotFound(t *testing.T) {
	e, _ := newServer(t)
	if code := get(t, e, "/groups/-1001/members/99/activity", nil); code != http.StatusNotFound {
		t.Errorf("status = %d", code)
	}
	if code := get(t, e, "/groups/-1001/members/1/activity", nil); code != http.StatusOK {
		t.Errorf("status = %d", code)
	}
}
