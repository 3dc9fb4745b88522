package repository

import (
	"time"

	"github.com/buybloem/storefront-notifier/internal/domain"
)

// CustomerModel is the persistence model for the customers table.
type CustomerModel struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"type:varchar(255);not null"`
	Email    string `gorm:"type:varchar(255);not null"`
	Phone    string `gorm:"type:varchar(32)"`
}

func (CustomerModel) TableName() string {
	return "customers"
}

// AddressModel is the persistence model for the addresses table.
type AddressModel struct {
	ID    int64  `gorm:"primaryKey"`
	Phone string `gorm:"type:varchar(32)"`
}

func (AddressModel) TableName() string {
	return "addresses"
}

// VendorModel is the persistence model for the vendors table.
type VendorModel struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(255);not null"`
	AddressID int64  `gorm:"not null"`
}

func (VendorModel) TableName() string {
	return "vendors"
}

// OrderModel is the persistence model for the orders table.
type OrderModel struct {
	ID         int64            `gorm:"primaryKey"`
	CustomerID int64            `gorm:"not null"`
	Total      float64          `gorm:"type:numeric(12,2);not null"`
	Items      []OrderItemModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the persistence model for the order_items table.
type OrderItemModel struct {
	ID           int64   `gorm:"primaryKey"`
	OrderID      int64   `gorm:"not null"`
	ProductName  string  `gorm:"type:varchar(255);not null"`
	VendorID     int64   `gorm:"not null"`
	PriceInclTax float64 `gorm:"type:numeric(12,2);not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderNoteModel is the persistence model for the order_notes table.
type OrderNoteModel struct {
	ID                string `gorm:"type:uuid;primaryKey"`
	OrderID           int64  `gorm:"not null"`
	Note              string `gorm:"type:text;not null"`
	DisplayToCustomer bool   `gorm:"not null;default:false"`
	CreatedAt         time.Time
}

func (OrderNoteModel) TableName() string {
	return "order_notes"
}

// DeliveryAttemptModel is the persistence model for the delivery_attempts table.
type DeliveryAttemptModel struct {
	ID           string           `gorm:"type:uuid;primaryKey"`
	EventKind    domain.EventKind `gorm:"type:varchar(30);not null"`
	OrderID      *int64
	Role         domain.Role    `gorm:"type:varchar(10);not null"`
	Channel      domain.Channel `gorm:"type:varchar(10);not null"`
	Recipient    string         `gorm:"type:varchar(32);not null"`
	Succeeded    bool           `gorm:"not null"`
	StatusCode   *int           `gorm:"type:int"`
	ResponseBody *string        `gorm:"type:text"`
	Error        *string        `gorm:"type:text"`
	CreatedAt    time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

func customerModelToDomain(m *CustomerModel) *domain.Customer {
	if m == nil {
		return nil
	}
	return &domain.Customer{
		ID:       m.ID,
		Username: m.Username,
		Email:    m.Email,
		Phone:    m.Phone,
	}
}

func orderModelToDomain(m *OrderModel) *domain.Order {
	if m == nil {
		return nil
	}

	items := make([]domain.OrderItem, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, domain.OrderItem{
			ID:           item.ID,
			OrderID:      item.OrderID,
			ProductName:  item.ProductName,
			VendorID:     item.VendorID,
			PriceInclTax: item.PriceInclTax,
		})
	}

	return &domain.Order{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		Total:      m.Total,
		Items:      items,
	}
}

func noteModelToDomain(m *OrderNoteModel) domain.OrderNote {
	return domain.OrderNote{
		ID:                m.ID,
		OrderID:           m.OrderID,
		Note:              m.Note,
		DisplayToCustomer: m.DisplayToCustomer,
		CreatedAt:         m.CreatedAt,
	}
}

func attemptModelFromDomain(a domain.DeliveryAttempt) DeliveryAttemptModel {
	return DeliveryAttemptModel{
		ID:           a.ID,
		EventKind:    a.EventKind,
		OrderID:      a.OrderID,
		Role:         a.Role,
		Channel:      a.Channel,
		Recipient:    a.Recipient,
		Succeeded:    a.Succeeded,
		StatusCode:   a.StatusCode,
		ResponseBody: a.ResponseBody,
		Error:        a.Error,
		CreatedAt:    a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) domain.DeliveryAttempt {
	return domain.DeliveryAttempt{
		ID:           m.ID,
		EventKind:    m.EventKind,
		OrderID:      m.OrderID,
		Role:         m.Role,
		Channel:      m.Channel,
		Recipient:    m.Recipient,
		Succeeded:    m.Succeeded,
		StatusCode:   m.StatusCode,
		ResponseBody: m.ResponseBody,
		Error:        m.Error,
		CreatedAt:    m.CreatedAt,
	}
}
