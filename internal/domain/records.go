package domain

import "time"

// Customer is a storefront customer account.
type Customer struct {
	ID       int64
	Username string
	Email    string
	Phone    string
}

// OrderItem is one purchased line item. VendorID identifies the vendor whose
// product was bought.
type OrderItem struct {
	ID           int64
	OrderID      int64
	ProductName  string
	VendorID     int64
	PriceInclTax float64
}

// Order is a storefront order with its line items.
type Order struct {
	ID         int64
	CustomerID int64
	Total      float64
	Items      []OrderItem
}

// VendorIDs returns the distinct vendor ids referenced by the order's line
// items, in first-appearance order.
func (o Order) VendorIDs() []int64 {
	seen := make(map[int64]struct{}, len(o.Items))
	ids := make([]int64, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.VendorID]; ok {
			continue
		}
		seen[item.VendorID] = struct{}{}
		ids = append(ids, item.VendorID)
	}
	return ids
}

// ItemsByVendor returns the order's line items belonging to one vendor,
// preserving line-item order.
func (o Order) ItemsByVendor(vendorID int64) []OrderItem {
	items := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if item.VendorID == vendorID {
			items = append(items, item)
		}
	}
	return items
}

// Vendor is a marketplace vendor. Its contact phone lives on the referenced
// address record.
type Vendor struct {
	ID        int64
	Name      string
	AddressID int64
}

// Address is a contact address record.
type Address struct {
	ID    int64
	Phone string
}

// OrderNote is an audit-trail entry appended to an order after a successful
// notification send.
type OrderNote struct {
	ID                string
	OrderID           int64
	Note              string
	DisplayToCustomer bool
	CreatedAt         time.Time
}
