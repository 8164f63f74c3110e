package models

import "time"

// OrderProduct is one line item, snapshotted from the catalog at
// computation time rather than referenced.
type OrderProduct struct {
	ProductID   string  `json:"product_id" bson:"product_id"`
	Name        string  `json:"name" bson:"name"`
	Description string  `json:"description" bson:"description"`
	Price       float64 `json:"price" bson:"price"`
}

// Order is created exactly once per successful buy request and is immutable
// after creation.
type Order struct {
	ID        string         `json:"_id" bson:"_id"`
	Products  []OrderProduct `json:"products" bson:"products"`
	Total     float64        `json:"total" bson:"total"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// Product is the order service's read-only view of the catalog.
type Product struct {
	ID          string  `json:"_id" bson:"_id"`
	Name        string  `json:"name" bson:"name"`
	Description string  `json:"description" bson:"description"`
	Price       float64 `json:"price" bson:"price"`
}
