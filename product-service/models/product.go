package models

// Product is the catalog document. Products referenced by a buy request are
// read-only; orders snapshot them instead of linking to them.
type Product struct {
	ID          string  `json:"_id" bson:"_id"`
	Name        string  `json:"name" bson:"name"`
	Description string  `json:"description" bson:"description"`
	Price       float64 `json:"price" bson:"price"`
}
