package submission

import (
	"sync"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
)

func slotWith(typ models.SlotType, keywords ...string) *models.Slot {
	s := &models.Slot{ID: 1, Name: "Breakfast", Type: typ, Points: 10}
	for _, k := range keywords {
		s.Keywords = append(s.Keywords, models.SlotKeyword{Keyword: k})
	}
	return s
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		slot    *models.Slot
		content Content
		want    Decision
	}{
		{"text keyword", slotWith(models.SlotTypeText, "breakfast"), Text{Body: "Breakfast done"}, Accept},
		{"text no keyword", slotWith(models.SlotTypeText, "breakfast"), Text{Body: "hello"}, Confirm},
		{"empty text", slotWith(models.SlotTypeText, "breakfast"), Text{}, Empty},
		{"photo caption keyword", slotWith(models.SlotTypeMedia, "breakfast"), Photo{FileID: "f", Caption: "breakfast time"}, Accept},
		{"photo caption with markup", slotWith(models.SlotTypeMedia, "breakfast"), Photo{FileID: "f", Caption: "<b>breakfast</b>"}, Accept},
		{"photo no caption", slotWith(models.SlotTypeMedia, "breakfast"), Photo{FileID: "f"}, Confirm},
		{"photo without keywords", slotWith(models.SlotTypeMedia), Photo{FileID: "f", Caption: "breakfast"}, Confirm},
		{"sticker", slotWith(models.SlotTypeMedia, "breakfast"), Media{Kind: models.ActivitySticker, FileID: "s"}, Confirm},
		{"video with keyword caption", slotWith(models.SlotTypeText, "breakfast"), Media{Kind: models.ActivityVideo, Caption: "breakfast"}, Confirm},
		{"button slot text", slotWith(models.SlotTypeButton, "water"), Text{Body: "water"}, UseButtons},
		{"button slot photo", slotWith(models.SlotTypeButton), Photo{FileID: "f"}, UseButtons},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.slot, tt.content); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"plain":                                "plain",
		"<b>bold</b> move":                     "bold move",
		"see https://example.com/x?y=1 now":    "see now",
		"www.spam.org   buy":                   "buy",
		"  a \n\t b  ":                         "a b",
		"fish &amp; chips":                     "fish & chips",
		"<a href=\"http://x.y\">link</a> text": "link text",
	}
	for in, want := range tests {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCategory(t *testing.T) {
	if got := Category(Photo{}); got != "photos" {
		t.Errorf("photo category = %q", got)
	}
	if got := Category(Media{Kind: models.ActivityVideoNote}); got != "videos" {
		t.Errorf("video note category = %q", got)
	}
	if got := Category(Media{Kind: models.ActivityDocument}); got != "documents" {
		t.Errorf("document category = %q", got)
	}
}

func TestPendingTakeOnce(t *testing.T) {
	p := NewPending()
	p.Put(&Confirmation{GroupID: -1, UserID: 7, PromptID: 42, ExpiresAt: time.Now().Add(time.Minute)})

	if _, ok := p.Get(-1, 42); !ok {
		t.Fatal("Get() missed a live confirmation")
	}
	if _, ok := p.Get(-2, 42); ok {
		t.Fatal("Get() matched another chat")
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := p.Take(-1, 42); ok {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if taken != 1 {
		t.Errorf("Take() succeeded %d times, want 1", taken)
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d after take", p.Len())
	}
}

func TestPendingExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := NewPending()
	p.now = func() time.Time { return now }

	p.Put(&Confirmation{GroupID: 1, PromptID: 1, ExpiresAt: now.Add(-time.Second)})
	p.Put(&Confirmation{GroupID: 1, PromptID: 2, ExpiresAt: now.Add(-time.Hour)})
	p.Put(&Confirmation{GroupID: 1, PromptID: 3, ExpiresAt: now.Add(time.Minute)})

	if _, ok := p.Get(1, 1); ok {
		t.Error("Get() returned an expired confirmation")
	}
	if _, ok := p.Take(1, 1); !ok {
		t.Error("Take() must still hand out an expired confirmation")
	}
	if n := p.Prune(time.Minute); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestLocks(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewLocks(3 * time.Second)
	l.now = func() time.Time { return now }

	key := LockKey(-1, 2, 3, "2026-03-10")
	if key != "-1:2:3:2026-03-10" {
		t.Fatalf("LockKey() = %q", key)
	}
	if !l.TryLock(key) {
		t.Fatal("first TryLock() failed")
	}
	if l.TryLock(key) {
		t.Fatal("second TryLock() succeeded while held")
	}
	if !l.TryLock(LockKey(-1, 2, 4, "2026-03-10")) {
		t.Fatal("TryLock() on another slot failed")
	}

	now = now.Add(3 * time.Second)
	if !l.TryLock(key) {
		t.Fatal("TryLock() failed after ttl")
	}
	l.Unlock(key)
	if !l.TryLock(key) {
		t.Fatal("TryLock() failed after Unlock")
	}
}
