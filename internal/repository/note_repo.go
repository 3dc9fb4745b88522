package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/buybloem/storefront-notifier/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderNoteRepo appends audit notes to orders. Notes are never shown to
// customers; they exist for the store operator.
type GormOrderNoteRepo struct {
	db *gorm.DB
}

func NewGormOrderNoteRepo(db *gorm.DB) *GormOrderNoteRepo {
	return &GormOrderNoteRepo{db: db}
}

func (r *GormOrderNoteRepo) AnnotateOrder(ctx context.Context, orderID int64, note string) error {
	if orderID <= 0 {
		return fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(note) == "" {
		return fmt.Errorf("%w: note text is required", domain.ErrValidation)
	}

	model := OrderNoteModel{
		ID:                uuid.NewString(),
		OrderID:           orderID,
		Note:              note,
		DisplayToCustomer: false,
		CreatedAt:         time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create order note: %w", err)
	}
	return nil
}

func (r *GormOrderNoteRepo) NotesByOrderID(ctx context.Context, orderID int64) ([]domain.OrderNote, error) {
	var models []OrderNoteModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notes := make([]domain.OrderNote, 0, len(models))
	for i := range models {
		notes = append(notes, noteModelToDomain(&models[i]))
	}
	return notes, nil
}
