package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Storage) GetMember(ctx context.Context, groupID, userID int64) (*models.Member, error) {
	var member models.Member
	if err := s.db.
		WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).
		Error; err != nil {
		return nil, fmt.Errorf("getting member: %w", wrapNotFound(err))
	}
	return &member, nil
}

func (s *Storage) ListMembers(ctx context.Context, groupID int64) ([]*models.Member, error) {
	var result []*models.Member
	if err := s.db.
		WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("user_id").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return result, nil
}

// CreateMember inserts the member and a "joined" history record. It reports false
// without touching anything if the member already exists.
func (s *Storage) CreateMember(ctx context.Context, member *models.Member) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(member)
		if res.Error != nil {
			return fmt.Errorf("creating member: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true

		if err := tx.Create(snapshot(member, models.HistoryActionJoined)).Error; err != nil {
			return fmt.Errorf("creating history: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("in tx: %w", err)
	}
	return created, nil
}

// TouchMember refreshes the member's display identity and last activity time.
func (s *Storage) TouchMember(ctx context.Context, groupID, userID int64, username, firstName, lastName string, at time.Time) error {
	if err := s.db.
		WithContext(ctx).
		Model(&models.Member{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Updates(map[string]any{
			"username":       username,
			"first_name":     firstName,
			"last_name":      lastName,
			"last_active_at": at,
		}).
		Error; err != nil {
		return fmt.Errorf("touching member: %w", err)
	}
	return nil
}

// RemoveMember archives the member's current state with the given action and deletes the row,
// in one transaction. The archived snapshot is returned.
func (s *Storage) RemoveMember(ctx context.Context, groupID, userID int64, action models.HistoryAction) (*models.Member, error) {
	var member models.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error; err != nil {
			return fmt.Errorf("getting member: %w", wrapNotFound(err))
		}
		if err := tx.Create(snapshot(&member, action)).Error; err != nil {
			return fmt.Errorf("creating history: %w", err)
		}
		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.Member{}).Error; err != nil {
			return fmt.Errorf("deleting member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("in tx: %w", err)
	}
	return &member, nil
}

// LastDeparture returns the most recent left/kicked/banned record for the user, or ErrNotFound.
func (s *Storage) LastDeparture(ctx context.Context, groupID, userID int64) (*models.MemberHistory, error) {
	var h models.MemberHistory
	if err := s.db.
		WithContext(ctx).
		Where("group_id = ? AND user_id = ? AND action IN ?", groupID, userID, []models.HistoryAction{
			models.HistoryActionLeft,
			models.HistoryActionKicked,
			models.HistoryActionBanned,
		}).
		Order("created_at DESC").
		First(&h).
		Error; err != nil {
		return nil, fmt.Errorf("getting last departure: %w", wrapNotFound(err))
	}
	return &h, nil
}

func snapshot(m *models.Member, action models.HistoryAction) *models.MemberHistory {
	return &models.MemberHistory{
		ID:              uuid.New().String(),
		GroupID:         m.GroupID,
		UserID:          m.UserID,
		Action:          action,
		Username:        m.Username,
		FirstName:       m.FirstName,
		TotalPoints:     m.TotalPoints,
		KnockoutPoints:  m.KnockoutPoints,
		GeneralWarnings: m.GeneralWarnings,
		BannedWordCount: m.BannedWordCount,
		IsRestricted:    m.IsRestricted,
		DayNumber:       m.DayNumber,
		CycleStartDate:  m.CycleStartDate,
		CycleEndDate:    m.CycleEndDate,
		JoinedAt:        m.JoinedAt,
		CreatedAt:       time.Now(),
	}
}

func (s *Storage) updateMember(ctx context.Context, groupID, userID int64, what string, fields map[string]any) error {
	if err := s.db.
		WithContext(ctx).
		Model(&models.Member{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Updates(fields).
		Error; err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (s *Storage) RestrictMember(ctx context.Context, groupID, userID int64, until time.Time) error {
	return s.updateMember(ctx, groupID, userID, "restricting member", map[string]any{
		"is_restricted":     true,
		"restriction_until": until,
	})
}

// LiftRestriction clears the restriction and starts a fresh cycle on cycleStart.
func (s *Storage) LiftRestriction(ctx context.Context, groupID, userID int64, cycleStart, cycleEnd string) error {
	return s.updateMember(ctx, groupID, userID, "lifting restriction", map[string]any{
		"is_restricted":     false,
		"restriction_until": nil,
		"day_number":        1,
		"cycle_start_date":  cycleStart,
		"cycle_end_date":    cycleEnd,
	})
}

func (s *Storage) SetDayNumber(ctx context.Context, groupID, userID int64, day int) error {
	return s.updateMember(ctx, groupID, userID, "setting day number", map[string]any{
		"day_number": day,
	})
}

// ResetCycle starts a new cycle: day 1, points and knockout points cleared.
func (s *Storage) ResetCycle(ctx context.Context, groupID, userID int64, cycleStart, cycleEnd string) error {
	return s.updateMember(ctx, groupID, userID, "resetting cycle", map[string]any{
		"day_number":       1,
		"cycle_start_date": cycleStart,
		"cycle_end_date":   cycleEnd,
		"total_points":     0,
		"knockout_points":  0,
	})
}

func (s *Storage) IncrementGeneralWarnings(ctx context.Context, groupID, userID int64) error {
	return s.updateMember(ctx, groupID, userID, "incrementing general warnings", map[string]any{
		"general_warnings": gorm.Expr("general_warnings + 1"),
	})
}

// IncrementBannedWordCount bumps the counter and returns the new value.
func (s *Storage) IncrementBannedWordCount(ctx context.Context, groupID, userID int64) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Member{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Update("banned_word_count", gorm.Expr("banned_word_count + 1")).
			Error; err != nil {
			return fmt.Errorf("updating member: %w", err)
		}
		var m models.Member
		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&m).Error; err != nil {
			return fmt.Errorf("getting member: %w", wrapNotFound(err))
		}
		count = m.BannedWordCount
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("in tx: %w", err)
	}
	return count, nil
}

// SyncAdmins clears is_admin for every member of the group and sets it for adminIDs, in one transaction.
func (s *Storage) SyncAdmins(ctx context.Context, groupID int64, adminIDs []int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Member{}).
			Where("group_id = ?", groupID).
			Update("is_admin", false).
			Error; err != nil {
			return fmt.Errorf("clearing admins: %w", err)
		}
		if len(adminIDs) == 0 {
			return nil
		}
		if err := tx.
			Model(&models.Member{}).
			Where("group_id = ? AND user_id IN ?", groupID, adminIDs).
			Update("is_admin", true).
			Error; err != nil {
			return fmt.Errorf("setting admins: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("in tx: %w", err)
	}
	return nil
}

// InactiveMembers returns non-admin members whose last activity is before cutoff.
func (s *Storage) InactiveMembers(ctx context.Context, groupID int64, cutoff time.Time) ([]*models.Member, error) {
	var result []*models.Member
	if err := s.db.
		WithContext(ctx).
		Where("group_id = ? AND is_admin = ? AND last_active_at < ?", groupID, false, cutoff).
		Order("user_id").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("getting inactive members: %w", err)
	}
	return result, nil
}

// CycleEndMembersBelow returns non-admin members on the last day of their cycle with fewer than minPoints.
func (s *Storage) CycleEndMembersBelow(ctx context.Context, groupID int64, minPoints int) ([]*models.Member, error) {
	var result []*models.Member
	if err := s.db.
		WithContext(ctx).
		Where(
			"group_id = ? AND is_admin = ? AND is_restricted = ? AND day_number >= ? AND total_points < ?",
			groupID, false, false, models.CycleLength, minPoints,
		).
		Order("user_id").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("getting low score members: %w", err)
	}
	return result, nil
}

// RecordInactivityWarning stores the warning and reports whether it is the first of its type that day.
func (s *Storage) RecordInactivityWarning(ctx context.Context, groupID, userID int64, day, warningType string) (bool, error) {
	res := s.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.InactivityWarning{
			GroupID:     groupID,
			UserID:      userID,
			Day:         day,
			WarningType: warningType,
		})
	if res.Error != nil {
		return false, fmt.Errorf("recording inactivity warning: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
