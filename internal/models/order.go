package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusPaid          OrderStatus = "paid"
	OrderStatusInPreparation OrderStatus = "in_preparation"
	OrderStatusReady         OrderStatus = "ready"
	OrderStatusDelivered     OrderStatus = "delivered"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusInPreparation,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderLine is one detail row of an order in its canonical shape.
type OrderLine struct {
	ID                 string          `json:"id"`
	ProductID          string          `json:"product_id"`
	ProductName        string          `json:"product_name"`
	ProductDescription string          `json:"product_description,omitempty"`
	ProductImageURL    string          `json:"product_image_url,omitempty"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	SpecialNotes       string          `json:"special_notes,omitempty"`
}

// DerivedSubtotal is quantity times unit price, independent of the stored subtotal.
func (l OrderLine) DerivedSubtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the canonical in-memory order shape every backend variant is
// normalized into. The backend remains the source of truth; instances held
// client-side only live for the duration of a screen.
type Order struct {
	ID              string          `json:"id"`
	AttentionNumber string          `json:"attention_number"`
	OrderDate       time.Time       `json:"order_date"`
	DeliveryDate    *time.Time      `json:"delivery_date,omitempty"`
	Status          OrderStatus     `json:"status"`
	Total           decimal.Decimal `json:"total"`
	Notes           string          `json:"notes,omitempty"`
	Lines           []OrderLine     `json:"lines"`

	// StatusRecognized is false when the backend sent a status outside the
	// known set; such orders display as pending but support no actions.
	StatusRecognized bool `json:"status_recognized"`
	// DateSynthesized marks an order whose orderDate was absent upstream and
	// filled in with the local clock, so telemetry can tell fabricated dates
	// from real ones.
	DateSynthesized bool `json:"date_synthesized,omitempty"`
}

func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

func (o *Order) HasLines() bool {
	return len(o.Lines) > 0
}

// Line returns the order line with the given id, or nil.
func (o *Order) Line(id string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Lifecycle transitions operate on copies so a
// failed submit never leaves a half-mutated order behind.
func (o *Order) Clone() *Order {
	c := *o
	if o.DeliveryDate != nil {
		d := *o.DeliveryDate
		c.DeliveryDate = &d
	}
	c.Lines = make([]OrderLine, len(o.Lines))
	copy(c.Lines, o.Lines)
	return &c
}

// DisplayName is the human-facing order code shown in lists.
func (o *Order) DisplayName() string {
	if o.AttentionNumber != "" {
		return o.AttentionNumber
	}
	if o.ID != "" {
		return fmt.Sprintf("#%s", o.ID)
	}
	return "N/A"
}
