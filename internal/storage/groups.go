package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const lastUpdateKey = "last_update_id"

func (s *Storage) GetGroupConfig(ctx context.Context, chatID int64) (*models.GroupConfig, error) {
	var cfg models.GroupConfig
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&cfg).Error; err != nil {
		return nil, fmt.Errorf("getting group config: %w", wrapNotFound(err))
	}
	return &cfg, nil
}

func (s *Storage) ListGroups(ctx context.Context) ([]*models.GroupConfig, error) {
	var result []*models.GroupConfig
	if err := s.db.
		WithContext(ctx).
		Where("is_active = ?", true).
		Order("chat_id").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	return result, nil
}

type GroupSetup struct {
	ChatID      int64
	Title       string
	AdminUserID int64
	LicenseKey  string

	EventName       string
	EventStart      string
	EventEnd        string
	EventPassPoints int

	Slots []models.Slot
}

// ConfigureGroup creates the group config and, if the group has no slots yet, its default
// event and slots. Everything happens in one transaction. It reports whether the config was new.
func (s *Storage) ConfigureGroup(ctx context.Context, setup *GroupSetup) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.GroupConfig{
				ChatID:         setup.ChatID,
				Title:          setup.Title,
				AdminUserID:    setup.AdminUserID,
				LicenseKey:     setup.LicenseKey,
				IsActive:       true,
				WelcomeMessage: "Welcome! 🌟",
				KickMessage:    "Goodbye!",
			})
		if res.Error != nil {
			return fmt.Errorf("creating group config: %w", res.Error)
		}
		created = res.RowsAffected == 1

		var slotCount int64
		if err := tx.Model(&models.Slot{}).Where("group_id = ?", setup.ChatID).Count(&slotCount).Error; err != nil {
			return fmt.Errorf("counting slots: %w", err)
		}
		if slotCount > 0 {
			return nil
		}

		event := &models.Event{
			GroupID:       setup.ChatID,
			Name:          setup.EventName,
			StartDate:     setup.EventStart,
			EndDate:       setup.EventEnd,
			MinPassPoints: setup.EventPassPoints,
			IsActive:      true,
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("creating event: %w", err)
		}

		for i := range setup.Slots {
			slot := setup.Slots[i]
			slot.ID = 0
			slot.GroupID = setup.ChatID
			slot.EventID = &event.ID
			if err := tx.Create(&slot).Error; err != nil {
				return fmt.Errorf("creating slot %q: %w", slot.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("in tx: %w", err)
	}
	return created, nil
}

func (s *Storage) BannedWords(ctx context.Context, groupID int64) ([]string, error) {
	var words []string
	if err := s.db.
		WithContext(ctx).
		Model(&models.BannedWord{}).
		Where("group_id = ? OR group_id = ?", groupID, models.GlobalGroupID).
		Order("id").
		Pluck("word", &words).
		Error; err != nil {
		return nil, fmt.Errorf("getting banned words: %w", err)
	}
	return words, nil
}

func (s *Storage) AddBannedWords(ctx context.Context, groupID int64, words []string) error {
	if len(words) == 0 {
		return nil
	}
	rows := make([]*models.BannedWord, 0, len(words))
	for _, w := range words {
		rows = append(rows, &models.BannedWord{GroupID: groupID, Word: w})
	}
	if err := s.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rows).
		Error; err != nil {
		return fmt.Errorf("adding banned words: %w", err)
	}
	return nil
}

// GetRuntimeState returns the value for (group, key) and whether it exists.
func (s *Storage) GetRuntimeState(ctx context.Context, groupID int64, key string) (string, bool, error) {
	var state models.RuntimeState
	err := s.db.WithContext(ctx).Where("group_id = ? AND key = ?", groupID, key).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting runtime state %q: %w", key, err)
	}
	return state.Value, true, nil
}

func (s *Storage) SetRuntimeState(ctx context.Context, groupID int64, key, value string) error {
	if err := s.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&models.RuntimeState{GroupID: groupID, Key: key, Value: value}).
		Error; err != nil {
		return fmt.Errorf("setting runtime state %q: %w", key, err)
	}
	return nil
}

func (s *Storage) DeleteRuntimeState(ctx context.Context, groupID int64, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.
		WithContext(ctx).
		Where("group_id = ? AND key IN ?", groupID, keys).
		Delete(&models.RuntimeState{}).
		Error; err != nil {
		return fmt.Errorf("deleting runtime state: %w", err)
	}
	return nil
}

func (s *Storage) LastUpdateID(ctx context.Context) (int, error) {
	raw, ok, err := s.GetRuntimeState(ctx, models.GlobalGroupID, lastUpdateKey)
	if err != nil || !ok {
		return 0, err
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing last update id %q: %w", raw, err)
	}
	return id, nil
}

func (s *Storage) UpdateLastUpdate(ctx context.Context, updateID int) error {
	return s.SetRuntimeState(ctx, models.GlobalGroupID, lastUpdateKey, strconv.Itoa(updateID))
}
