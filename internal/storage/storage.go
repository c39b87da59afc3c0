package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

type Storage struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

// Open connects to the database, retrying with backoff until attempts are exhausted or ctx is done.
func Open(ctx context.Context, dialector gorm.Dialector, attempts int) (*gorm.DB, error) {
	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    15 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for {
		db, err := connect(ctx, dialector)
		if err == nil {
			return db, nil
		}

		if int(b.Attempt())+1 >= attempts {
			return nil, fmt.Errorf("connecting after %d attempts: %w", attempts, err)
		}

		wait := b.Duration()
		logrus.Warnf("database is not reachable (%v), retrying in %v", err, wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for database: %w", ctx.Err())
		}
	}
}

func connect(ctx context.Context, dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&models.GroupConfig{},
		&models.Event{},
		&models.Slot{},
		&models.SlotKeyword{},
		&models.Member{},
		&models.MemberHistory{},
		&models.DailySlotTracker{},
		&models.ActivityLog{},
		&models.InactivityWarning{},
		&models.BannedWord{},
		&models.RuntimeState{},
	); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
