package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusShipped OrderStatus = "shipped"
)

const UnknownCustomer = "Unknown"

type OrderLineItem struct {
	ProductRef string `json:"productRef" bson:"product_ref"`
	Quantity   int    `json:"quantity" bson:"quantity"`
	Variant    string `json:"variant,omitempty" bson:"variant,omitempty"`
}

type Order struct {
	ID              string          `json:"id" bson:"_id"`
	StripeSessionID string          `json:"stripeSessionId" bson:"stripe_session_id"`
	OrderNumber     string          `json:"orderNumber" bson:"order_number"`
	CustomerName    string          `json:"customerName" bson:"customer_name"`
	Email           string          `json:"email" bson:"email"`
	UserID          string          `json:"userId" bson:"user_id"`
	LineItems       []OrderLineItem `json:"lineItems" bson:"line_items"`
	TotalPrice      float64         `json:"totalPrice" bson:"total_price"`
	Status          OrderStatus     `json:"status" bson:"status"`
	OrderDate       time.Time       `json:"orderDate" bson:"order_date"`
}

// OrderNumberFromSession derives the human-facing order number: the last
// eight characters of the payment session id, upper-cased.
func OrderNumberFromSession(sessionID string) string {
	n := sessionID
	if len(n) > 8 {
		n = n[len(n)-8:]
	}
	return strings.ToUpper(n)
}

// OrderItemMetadata is the compact line form carried in payment session
// metadata.
type OrderItemMetadata struct {
	ID       string `json:"id"`
	Quantity int    `json:"q"`
	Variant  string `json:"v,omitempty"`
}

func EncodeOrderItems(items []OrderItemMetadata) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal order items: %w", err)
	}
	return string(b), nil
}

func DecodeOrderItems(raw string) ([]OrderItemMetadata, error) {
	if raw == "" {
		return []OrderItemMetadata{}, nil
	}
	var items []OrderItemMetadata
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	return items, nil
}

func (m OrderItemMetadata) LineItem() OrderLineItem {
	return OrderLineItem{ProductRef: m.ID, Quantity: m.Quantity, Variant: m.Variant}
}
