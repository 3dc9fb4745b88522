package repository

import (
	"context"
	"fmt"

	"github.com/buybloem/storefront-notifier/internal/domain"
	"gorm.io/gorm"
)

// GormDeliveryRepo persists one row per send attempt, success or failure.
type GormDeliveryRepo struct {
	db *gorm.DB
}

func NewGormDeliveryRepo(db *gorm.DB) *GormDeliveryRepo {
	return &GormDeliveryRepo{db: db}
}

func (r *GormDeliveryRepo) RecordAttempt(ctx context.Context, attempt domain.DeliveryAttempt) error {
	model := attemptModelFromDomain(attempt)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}
	return nil
}

func (r *GormDeliveryRepo) AttemptsByOrderID(ctx context.Context, orderID int64) ([]domain.DeliveryAttempt, error) {
	var models []DeliveryAttemptModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, attemptModelToDomain(&models[i]))
	}
	return attempts, nil
}
