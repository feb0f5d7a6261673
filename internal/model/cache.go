package model

import "time"

// CachedPage is a fetched form page kept for reuse until ExpiresAt.
type CachedPage struct {
	URL       string    `json:"url"`
	HTML      string    `json:"html"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
