// Package core holds the domain types shared between the store and the HTTP
// layer.
package core

import "time"

// User is a stored user record.
type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	NickName   string    `json:"nick_name"`
	Email      string    `json:"email,omitempty"`
	CreateTime time.Time `json:"create_time"`
	UpdateTime time.Time `json:"update_time"`
}

// Product is a stored product record. Price is kept in cents to avoid
// floating point drift.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category,omitempty"`
	CreateTime  time.Time `json:"create_time"`
	UpdateTime  time.Time `json:"update_time"`
}

// Page describes pagination of a list result.
type Page struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}
