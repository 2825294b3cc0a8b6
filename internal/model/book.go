package model

import "time"

// Book is the bibliographic record that copies belong to.
type Book struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	ISBN      string    `json:"isbn,omitempty" db:"isbn"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Joined fields (not always populated).
	AvailableCopies int `json:"available_copies" db:"available_copies"`
	TotalCopies     int `json:"total_copies" db:"total_copies"`
}
