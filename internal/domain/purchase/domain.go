package purchase

import "time"

// DefaultTerm is applied when a purchase is created without an explicit end.
const DefaultTerm = 30 * 24 * time.Hour

type Service struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
}

type Purchase struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	ServiceID    int64     `json:"service_id"`
	ServiceTitle string    `json:"service_title"`
	StartDate    time.Time `json:"start_date"`
	FinishedDate time.Time `json:"finished_date"`
	IsActive     bool      `json:"is_active"`
}
