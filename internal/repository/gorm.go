package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskbench/backend/internal/models"
	"github.com/taskbench/backend/pkg/tool"
)

type gormStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewGormStore(db *gorm.DB, log *zap.SugaredLogger) SubscriptionStore {
	return &gormStore{db: db, log: log}
}

func (s *gormStore) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (s *gormStore) FindCurrentByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date desc").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find current subscription: %w", err)
	}
	return &sub, nil
}

func (s *gormStore) ListDueForRenewal(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND payment_method_id <> '' AND end_date <= ?", true, now).
		Order("end_date asc").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	return subs, nil
}

func (s *gormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Subscription{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Mutate serializes updates per subscription with a row-level lock so two
// concurrent webhook deliveries cannot both apply the same extension.
func (s *gormStore) Mutate(ctx context.Context, id string, fn func(sub *models.Subscription) (MutateResult, error)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock subscription: %w", err)
		}

		result, err := fn(&sub)
		if err != nil {
			return err
		}
		switch result {
		case MutateSave:
			if err := tx.Save(&sub).Error; err != nil {
				return fmt.Errorf("failed to save subscription: %w", err)
			}
		case MutateDelete:
			if err := tx.Delete(&models.Subscription{}, "id = ?", sub.ID).Error; err != nil {
				return fmt.Errorf("failed to delete subscription: %w", err)
			}
		}
		return nil
	})
}
