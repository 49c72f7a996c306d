package domain

import "time"

// Package is a bookable offer. Packages are never hard-deleted.
type Package struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Features    []string  `json:"features"`
	Price       float64   `json:"price"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
