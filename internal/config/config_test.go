package config_test

import (
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/config"
	"github.com/C4T-BuT-S4D/slotwarden/internal/engine"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/robfig/cron/v3"
)

func TestDefaultDailySweeps(t *testing.T) {
	config.SetupCommon()
	cfg := config.New()

	var lastEnd time.Duration
	for _, s := range engine.DefaultSlots() {
		end, err := slots.ParseClock(s.EndTime)
		if err != nil {
			t.Fatalf("slot %s: %v", s.Name, err)
		}
		lastEnd = max(lastEnd, end)
	}

	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		spec      string
		afterSlot bool
	}{
		{"inactivity", cfg.InactivityCron, false},
		{"low_score", cfg.LowScoreCron, true},
		{"zero_activity", cfg.ZeroActivityCron, true},
		{"leaderboard", cfg.LeaderboardCron, true},
		{"day_cycle", cfg.DayCycleCron, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := cron.ParseStandard(tt.spec)
			if err != nil {
				t.Fatalf("ParseStandard(%q): %v", tt.spec, err)
			}
			first := sched.Next(midnight)
			if first.YearDay() != midnight.YearDay() {
				t.Errorf("first run %v is not on the same day", first)
			}
			if second := sched.Next(first); second.Sub(first) != 24*time.Hour {
				t.Errorf("runs %v then %v, want once a day", first, second)
			}
			if tt.afterSlot && first.Sub(midnight) < lastEnd {
				t.Errorf("runs at %v, before the last slot closes at %v", first.Format("15:04"), lastEnd)
			}
		})
	}
}
