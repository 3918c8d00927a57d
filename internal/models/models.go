// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// Unlike Eloquent or ActiveRecord, Go models are just data containers with no
// ORM magic. The database package handles persistence.
//
// JSON tags (e.g., `json:"id"`) control how struct fields are serialized
// to/from JSON. The `db` tags work with sqlx for database column mapping,
// and `db:"-"` marks relations that are loaded separately.
package models

import (
	"math"
	"time"
)

// User is an authenticated account. Creators and invitees are both users.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // "-" means never serialize to JSON
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Response is the envelope for every API response.
//
//	success: {"success": true, "data": ..., "message": "..."}
//	failure: {"success": false, "message": "...", "errors": {"field": ["..."]}}
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Default and maximum page sizes for list endpoints.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// PaginatedResponse wraps a list response with pagination metadata.
// Key names follow the paginator shape the web client already consumes.
type PaginatedResponse[T any] struct {
	Data        []T `json:"data"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// NormalizePage clamps page and perPage to valid values.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > MaxPerPage {
		perPage = DefaultPerPage
	}
	return page, perPage
}

// Paginate builds a PaginatedResponse. A nil slice becomes an empty array.
func Paginate[T any](items []T, total, page, perPage int) PaginatedResponse[T] {
	page, perPage = NormalizePage(page, perPage)
	if items == nil {
		items = []T{}
	}
	lastPage := int(math.Ceil(float64(total) / float64(perPage)))
	if lastPage < 1 {
		lastPage = 1
	}
	return PaginatedResponse[T]{
		Data:        items,
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Database  string    `json:"database"`
	Workers   int       `json:"workers"`
	QueueSize int       `json:"queue_size"`
	Timestamp time.Time `json:"timestamp"`
}
