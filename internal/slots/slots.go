// Package slots decides which daily time window is active for a group at a given instant.
package slots

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	DayLayout = "2006-01-02"
	day       = 24 * time.Hour
)

// ParseClock parses "15:04" or "15:04:05" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}

	limits := []int{23, 59, 59}
	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		total += time.Duration(v) * units[i]
	}
	return total, nil
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

// Window is a parsed daily [Start, End) range. Start > End wraps past midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

func ParseWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: s, End: e}, nil
}

func (w Window) Wraps() bool {
	return w.Start > w.End
}

func (w Window) Contains(t time.Time) bool {
	now := sinceMidnight(t)
	if w.Wraps() {
		return now >= w.Start || now < w.End
	}
	return now >= w.Start && now < w.End
}

func (w Window) Duration() time.Duration {
	if w.Wraps() {
		return day - w.Start + w.End
	}
	return w.End - w.Start
}

// Remaining returns the time left until the window closes, assuming t is inside it.
func (w Window) Remaining(t time.Time) time.Duration {
	now := sinceMidnight(t)
	if now < w.End {
		return w.End - now
	}
	return day - now + w.End
}

// Opened returns the calendar day on which the occurrence containing t started.
// For a wrapping window observed after midnight that is the previous day.
func (w Window) Opened(t time.Time) time.Time {
	if w.Wraps() && sinceMidnight(t) < w.End {
		return t.AddDate(0, 0, -1)
	}
	return t
}

// Pick returns the first slot whose window contains t, and the ids of any other slots that also contain it.
// Slots with unparsable times are skipped.
func Pick(list []models.Slot, t time.Time) (*models.Slot, []uint) {
	var (
		found    *models.Slot
		overlaps []uint
	)
	for i := range list {
		w, err := ParseWindow(list[i].StartTime, list[i].EndTime)
		if err != nil {
			logrus.Warnf("skipping %v: %v", &list[i], err)
			continue
		}
		if !w.Contains(t) {
			continue
		}
		if found == nil {
			found = &list[i]
			continue
		}
		overlaps = append(overlaps, list[i].ID)
	}
	return found, overlaps
}

// NextStart returns the first moment strictly after t at which any slot opens.
func NextStart(list []models.Slot, t time.Time) (time.Time, bool) {
	var (
		best time.Time
		ok   bool
	)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for _, s := range list {
		start, err := ParseClock(s.StartTime)
		if err != nil {
			continue
		}
		candidate := midnight.Add(start)
		if !candidate.After(t) {
			candidate = midnight.AddDate(0, 0, 1).Add(start)
		}
		if !ok || candidate.Before(best) {
			best, ok = candidate, true
		}
	}
	return best, ok
}

// FirstStartAfterToday returns the start of the earliest slot on the day after t.
func FirstStartAfterToday(list []models.Slot, t time.Time) (time.Time, bool) {
	tomorrow := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
	var (
		best time.Duration
		ok   bool
	)
	for _, s := range list {
		start, err := ParseClock(s.StartTime)
		if err != nil {
			continue
		}
		if !ok || start < best {
			best, ok = start, true
		}
	}
	if !ok {
		return tomorrow, false
	}
	return tomorrow.Add(best), true
}

type Resolver struct {
	storage *storage.Storage
	loc     *time.Location
}

func NewResolver(storage *storage.Storage, loc *time.Location) *Resolver {
	return &Resolver{storage: storage, loc: loc}
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

func (r *Resolver) Day(t time.Time) string {
	return t.In(r.loc).Format(DayLayout)
}

// SlotDay returns the day key of the slot occurrence containing now. For a window that
// wraps past midnight the hours after midnight belong to the previous day.
func (r *Resolver) SlotDay(slot *models.Slot, now time.Time) string {
	now = now.In(r.loc)
	w, err := ParseWindow(slot.StartTime, slot.EndTime)
	if err != nil {
		return now.Format(DayLayout)
	}
	return w.Opened(now).Format(DayLayout)
}

// ActiveSlot returns the group's active slot at now, or nil when no slot is active.
// Overlapping windows resolve to the earliest-starting slot and are logged.
func (r *Resolver) ActiveSlot(ctx context.Context, groupID int64, now time.Time) (*models.Slot, error) {
	list, err := r.storage.ListSlots(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	slot, overlaps := Pick(list, now.In(r.loc))
	if len(overlaps) > 0 {
		logrus.WithField("group_id", groupID).Warnf("slot %v overlaps slots %v, using the earliest", slot, overlaps)
	}
	return slot, nil
}

// ActiveEvent returns the group's running event, or nil if there is none.
func (r *Resolver) ActiveEvent(ctx context.Context, groupID int64, now time.Time) (*models.Event, error) {
	event, err := r.storage.GetActiveEvent(ctx, groupID, r.Day(now))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting active event: %w", err)
	}
	return event, nil
}

// EventID returns the id used to key completions: the event's id, or 0 when none is running.
func EventID(e *models.Event) uint {
	if e == nil {
		return 0
	}
	return e.ID
}
