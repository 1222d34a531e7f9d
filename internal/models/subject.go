package models

import "time"

// Subject is a named grade category. Subjects are seeded at setup and never
// mutated afterwards.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
