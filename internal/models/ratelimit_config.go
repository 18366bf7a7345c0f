package models

import "time"

// RatelimitConfig holds the rate limit in ulule/limiter's formatted notation
// (e.g. "5-S", "100-M").
type RatelimitConfig struct {
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
