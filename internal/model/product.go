package model

import "time"

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductPatch carries a partial update; nil fields stay untouched.
type ProductPatch struct {
	Name  *string
	Price *float64
	Stock *int
}
