package domain

import "fmt"

const defaultVariant = "default"

type CartItem struct {
	ID        string  `json:"id" bson:"id"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Image     string  `json:"image" bson:"image"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Variant   string  `json:"variant,omitempty" bson:"variant,omitempty"`
	UpdatedAt int64   `json:"updatedAt,omitempty" bson:"updated_at,omitempty"` // unix millis, 0 = unknown
}

// Key identifies a line for merge purposes: product id plus variant.
func (i CartItem) Key() string {
	v := i.Variant
	if v == "" {
		v = defaultVariant
	}
	return fmt.Sprintf("%s-%s", i.ID, v)
}

func (i CartItem) HasTimestamp() bool {
	return i.UpdatedAt != 0
}

// Normalize drops lines whose quantity fell below one.
func Normalize(items []CartItem) []CartItem {
	out := make([]CartItem, 0, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			continue
		}
		out = append(out, it)
	}
	return out
}

func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return []CartItem{}
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
