package models

import "gorm.io/datatypes"

// OrderType enumerates how an order is fulfilled.
type OrderType string

const (
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeDineIn   OrderType = "dine_in"
)

// OrderStatus enumerates the kitchen workflow states of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status in workflow order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:      {OrderStatusDelivered, OrderStatusCancelled},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, candidate := range OrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypePickup, OrderTypeDelivery, OrderTypeDineIn:
		return true
	}
	return false
}

// Order is a customer order scoped to an Account.
type Order struct {
	BaseModel

	AccountID string   `gorm:"type:uuid;not null;index" json:"account_id"`
	Account   *Account `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	Number          string         `gorm:"size:26;uniqueIndex;not null" json:"number"`
	CustomerName    string         `gorm:"not null" json:"customer_name"`
	CustomerEmail   string         `json:"customer_email,omitempty"`
	CustomerPhone   string         `json:"customer_phone,omitempty"`
	Type            OrderType      `gorm:"size:16;not null;index" json:"type"`
	Status          OrderStatus    `gorm:"size:16;not null;index;default:pending" json:"status"`
	DeliveryAddress string         `json:"delivery_address,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	TotalCents      int64          `gorm:"not null;default:0" json:"total_cents"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is a single line on an order.
type OrderItem struct {
	BaseModel

	OrderID        string `gorm:"type:uuid;not null;index" json:"order_id"`
	Name           string `gorm:"not null" json:"name"`
	Quantity       int    `gorm:"not null" json:"quantity"`
	UnitPriceCents int64  `gorm:"not null" json:"unit_price_cents"`
	Notes          string `json:"notes,omitempty"`
}

// LineTotal returns quantity multiplied by unit price.
func (i OrderItem) LineTotal() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}
