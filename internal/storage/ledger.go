package storage

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Storage) AddPoints(ctx context.Context, groupID, userID int64, points int) error {
	return addPoints(s.db.WithContext(ctx), groupID, userID, points)
}

func addPoints(tx *gorm.DB, groupID, userID int64, points int) error {
	if err := tx.
		Model(&models.Member{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("total_points", gorm.Expr("total_points + ?", points)).
		Error; err != nil {
		return fmt.Errorf("adding points: %w", err)
	}
	return nil
}

// DeductKnockoutPoints adds to knockout_points and subtracts from total_points, flooring total_points at zero.
func (s *Storage) DeductKnockoutPoints(ctx context.Context, groupID, userID int64, points int) error {
	if err := s.db.
		WithContext(ctx).
		Model(&models.Member{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Updates(map[string]any{
			"knockout_points": gorm.Expr("knockout_points + ?", points),
			"total_points":    gorm.Expr("CASE WHEN total_points > ? THEN total_points - ? ELSE 0 END", points, points),
		}).
		Error; err != nil {
		return fmt.Errorf("deducting knockout points: %w", err)
	}
	return nil
}

// MarkSlotCompleted inserts the tracker row. It returns true only for the first insert of
// (event, slot, user, day); a conflicting insert bumps duplicate_submissions and returns false.
func (s *Storage) MarkSlotCompleted(ctx context.Context, entry *models.DailySlotTracker) (bool, error) {
	return markSlotCompleted(s.db.WithContext(ctx), entry)
}

func markSlotCompleted(tx *gorm.DB, entry *models.DailySlotTracker) (bool, error) {
	row := *entry
	row.ID = 0
	row.DuplicateSubmissions = 0
	if row.Status == "" {
		row.Status = models.TrackerStatusCompleted
	}

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("inserting tracker row: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		entry.ID = row.ID
		return true, nil
	}

	if err := tx.
		Model(&models.DailySlotTracker{}).
		Where("event_id = ? AND slot_id = ? AND user_id = ? AND day = ?", row.EventID, row.SlotID, row.UserID, row.Day).
		Update("duplicate_submissions", gorm.Expr("duplicate_submissions + 1")).
		Error; err != nil {
		return false, fmt.Errorf("counting duplicate: %w", err)
	}
	return false, nil
}

// CompletedToday is a read-only pre-check. MarkSlotCompleted stays the authority.
func (s *Storage) CompletedToday(ctx context.Context, eventID, slotID uint, userID int64, day string) (bool, error) {
	var count int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.DailySlotTracker{}).
		Where(
			"event_id = ? AND slot_id = ? AND user_id = ? AND day = ? AND status = ?",
			eventID, slotID, userID, day, models.TrackerStatusCompleted,
		).
		Count(&count).
		Error; err != nil {
		return false, fmt.Errorf("checking completion: %w", err)
	}
	return count > 0, nil
}

type Completion struct {
	Tracker  models.DailySlotTracker
	Activity models.ActivityLog
}

// RecordCompletion marks the slot completed and, only if that was the first completion,
// awards the points and writes the activity log, all in one transaction.
func (s *Storage) RecordCompletion(ctx context.Context, c *Completion) (bool, error) {
	first := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := markSlotCompleted(tx, &c.Tracker)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		first = true

		if err := addPoints(tx, c.Tracker.GroupID, c.Tracker.UserID, c.Tracker.PointsScored); err != nil {
			return err
		}

		c.Activity.PointsEarned = c.Tracker.PointsScored
		c.Activity.IsValid = true
		return logActivity(tx, &c.Activity)
	})
	if err != nil {
		return false, fmt.Errorf("in tx: %w", err)
	}
	return first, nil
}

func (s *Storage) LogActivity(ctx context.Context, entry *models.ActivityLog) error {
	return logActivity(s.db.WithContext(ctx), entry)
}

func logActivity(tx *gorm.DB, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// RecordMissed writes a "missed" tracker row for every unrestricted member of the group who has no
// row for (event, slot, day). It returns how many rows were written.
func (s *Storage) RecordMissed(ctx context.Context, groupID int64, eventID, slotID uint, day string) (int, error) {
	var userIDs []int64
	if err := s.db.
		WithContext(ctx).
		Model(&models.Member{}).
		Where("group_id = ? AND is_restricted = ?", groupID, false).
		Where("user_id NOT IN (?)", s.db.
			Model(&models.DailySlotTracker{}).
			Select("user_id").
			Where("event_id = ? AND slot_id = ? AND day = ?", eventID, slotID, day),
		).
		Order("user_id").
		Pluck("user_id", &userIDs).
		Error; err != nil {
		return 0, fmt.Errorf("getting members without completion: %w", err)
	}

	written := 0
	for _, userID := range userIDs {
		res := s.db.
			WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.DailySlotTracker{
				GroupID: groupID,
				EventID: eventID,
				SlotID:  slotID,
				UserID:  userID,
				Day:     day,
				Status:  models.TrackerStatusMissed,
			})
		if res.Error != nil {
			return written, fmt.Errorf("recording missed for %d: %w", userID, res.Error)
		}
		written += int(res.RowsAffected)
	}
	return written, nil
}

// MembersWithoutCompletion returns unrestricted non-admin members with no completed slot for the event on day.
func (s *Storage) MembersWithoutCompletion(ctx context.Context, groupID int64, eventID uint, day string) ([]*models.Member, error) {
	var result []*models.Member
	if err := s.db.
		WithContext(ctx).
		Where("group_id = ? AND is_restricted = ? AND is_admin = ?", groupID, false, false).
		Where("user_id NOT IN (?)", s.db.
			Model(&models.DailySlotTracker{}).
			Select("user_id").
			Where("event_id = ? AND day = ? AND status = ?", eventID, day, models.TrackerStatusCompleted),
		).
		Order("user_id").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("getting members without completion: %w", err)
	}
	return result, nil
}

// Leaderboard returns up to limit members with a strictly positive net score, best first.
func (s *Storage) Leaderboard(ctx context.Context, groupID int64, limit int) ([]*models.Member, error) {
	var result []*models.Member
	if err := s.db.
		WithContext(ctx).
		Where("group_id = ? AND total_points - knockout_points > 0", groupID).
		Order("total_points - knockout_points DESC").
		Limit(limit).
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	return result, nil
}

// ActivityLogs returns the member's most recent activity entries, newest first.
func (s *Storage) ActivityLogs(ctx context.Context, groupID, userID int64, limit int) ([]*models.ActivityLog, error) {
	var result []*models.ActivityLog
	if err := s.db.
		WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("getting activity logs: %w", err)
	}
	return result, nil
}
