package storage

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
)

// ListSlots returns the group's slots ordered by start time, keywords preloaded.
func (s *Storage) ListSlots(ctx context.Context, groupID int64) ([]models.Slot, error) {
	var result []models.Slot
	if err := s.db.
		WithContext(ctx).
		Preload("Keywords").
		Where("group_id = ?", groupID).
		Order("start_time, id").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	return result, nil
}

func (s *Storage) GetSlot(ctx context.Context, slotID uint) (*models.Slot, error) {
	var slot models.Slot
	if err := s.db.WithContext(ctx).Preload("Keywords").Where("id = ?", slotID).First(&slot).Error; err != nil {
		return nil, fmt.Errorf("getting slot: %w", wrapNotFound(err))
	}
	return &slot, nil
}

func (s *Storage) CreateSlot(ctx context.Context, slot *models.Slot) error {
	if err := s.db.WithContext(ctx).Create(slot).Error; err != nil {
		return fmt.Errorf("creating slot: %w", err)
	}
	return nil
}

func (s *Storage) CreateEvent(ctx context.Context, event *models.Event) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

// GetActiveEvent returns the active event whose date range contains day.
func (s *Storage) GetActiveEvent(ctx context.Context, groupID int64, day string) (*models.Event, error) {
	var event models.Event
	if err := s.db.
		WithContext(ctx).
		Where("group_id = ? AND is_active = ? AND start_date <= ? AND end_date >= ?", groupID, true, day, day).
		Order("id").
		First(&event).
		Error; err != nil {
		return nil, fmt.Errorf("getting active event: %w", wrapNotFound(err))
	}
	return &event, nil
}

func (s *Storage) ListActiveEvents(ctx context.Context, day string) ([]models.Event, error) {
	var result []models.Event
	if err := s.db.
		WithContext(ctx).
		Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, day, day).
		Order("group_id, id").
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("listing active events: %w", err)
	}
	return result, nil
}
