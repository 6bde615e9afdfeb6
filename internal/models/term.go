package models

import "time"

// Term models an academic term bounding when sections run and when
// registration for them is open.
type Term struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	StartDate         time.Time `db:"start_date" json:"start_date"`
	EndDate           time.Time `db:"end_date" json:"end_date"`
	RegistrationStart time.Time `db:"registration_start" json:"registration_start"`
	RegistrationEnd   time.Time `db:"registration_end" json:"registration_end"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// IsRegistrationOpen reports whether now falls inside the registration window.
func (t *Term) IsRegistrationOpen(now time.Time) bool {
	return !now.Before(t.RegistrationStart) && !now.After(t.RegistrationEnd)
}

// HasEnded reports whether the term is fully over.
func (t *Term) HasEnded(now time.Time) bool {
	return now.After(t.EndDate)
}

// HasStarted reports whether the term has begun.
func (t *Term) HasStarted(now time.Time) bool {
	return !now.Before(t.StartDate)
}

// TermFilter defines filters supported by list endpoints.
type TermFilter struct {
	Name      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
