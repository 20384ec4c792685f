// Package checkout implements the transactional order flow: stock
// reservation, compensating cancellation and order administration.
package checkout

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses, in their usual lifecycle order.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is the immutable record of one purchase. Product name and price are
// snapshots taken at reservation time, so later catalog edits never rewrite
// order history.
type Order struct {
	ID              uuid.UUID `json:"id"`
	UserID          string    `json:"userId"`
	UserEmail       string    `json:"userEmail"`
	ProductID       string    `json:"productId"`
	ProductName     string    `json:"productName"`
	ProductPrice    int64     `json:"productPrice"`
	Quantity        int       `json:"quantity"`
	TotalPrice      int64     `json:"totalPrice"`
	ShippingAddress string    `json:"shippingAddress"`
	OrderSource     string    `json:"orderSource"`
	OrderStatus     string    `json:"orderStatus"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ReserveRequest carries one storefront checkout line.
type ReserveRequest struct {
	ProductID       string `json:"productId"`
	Quantity        int    `json:"quantity"`
	UserID          string `json:"userId"`
	UserEmail       string `json:"userEmail"`
	ShippingAddress string `json:"shippingAddress"`
	OrderSource     string `json:"orderSource"`
}
