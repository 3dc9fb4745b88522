package repository

import (
	"context"
	"errors"

	"github.com/buybloem/storefront-notifier/internal/domain"
	"gorm.io/gorm"
)

// GormStoreRepo serves the read-side lookups the resolver needs: customers,
// orders with their line items, vendors, and addresses.
type GormStoreRepo struct {
	db *gorm.DB
}

func NewGormStoreRepo(db *gorm.DB) *GormStoreRepo {
	return &GormStoreRepo{db: db}
}

func (r *GormStoreRepo) CustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var model CustomerModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return customerModelToDomain(&model), nil
}

func (r *GormStoreRepo) OrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items").First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return orderModelToDomain(&model), nil
}

func (r *GormStoreRepo) VendorByID(ctx context.Context, id int64) (*domain.Vendor, error) {
	var model VendorModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.Vendor{ID: model.ID, Name: model.Name, AddressID: model.AddressID}, nil
}

func (r *GormStoreRepo) AddressByID(ctx context.Context, id int64) (*domain.Address, error) {
	var model AddressModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.Address{ID: model.ID, Phone: model.Phone}, nil
}
