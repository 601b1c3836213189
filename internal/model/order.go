package model

import "time"

type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	ProductIDs []string  `json:"productIds"` // one unit per entry, duplicates allowed
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// OrderFilter constrains list queries. Zero values are not applied.
type OrderFilter struct {
	Status     Status
	CustomerID string
	CreatedGTE *time.Time
	CreatedLTE *time.Time
}
