package domain

type Product struct {
	ID          string   `json:"id" bson:"_id"`
	Name        string   `json:"name" bson:"name"`
	Slug        string   `json:"slug,omitempty" bson:"slug,omitempty"`
	Price       float64  `json:"price" bson:"price"`
	Image       string   `json:"image" bson:"image"`
	Images      []string `json:"images,omitempty" bson:"images,omitempty"`
	Stock       int      `json:"stock" bson:"stock"`
	Category    string   `json:"category,omitempty" bson:"category,omitempty"`
	Variant     string   `json:"variant,omitempty" bson:"variant,omitempty"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
}

// StockDecrement is one line of an atomic inventory update.
type StockDecrement struct {
	ProductID string
	Quantity  int
}
