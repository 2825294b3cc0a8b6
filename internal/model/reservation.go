package model

import "time"

// ReservationStatus is the state of a reservation.
type ReservationStatus string

// Reservation statuses. Active is the only state that can change.
const (
	ReservationActive    ReservationStatus = "active"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationCanceled  ReservationStatus = "canceled"
)

// Reservation records a borrower's intent to get a copy of a book.
type Reservation struct {
	ID          int64             `json:"id" db:"id"`
	UserID      string            `json:"user_id" db:"user_id"`
	BookID      int64             `json:"book_id" db:"book_id"`
	ReservedAt  time.Time         `json:"reserved_at" db:"reserved_at"`
	Status      ReservationStatus `json:"status" db:"status"`
	FulfilledAt *time.Time        `json:"fulfilled_at,omitempty" db:"fulfilled_at"`
	CanceledAt  *time.Time        `json:"canceled_at,omitempty" db:"canceled_at"`
}

// CartItem is a book a user has put in their cart.
type CartItem struct {
	UserID  string    `json:"user_id" db:"user_id"`
	BookID  int64     `json:"book_id" db:"book_id"`
	AddedAt time.Time `json:"added_at" db:"added_at"`

	// Joined fields (not always populated).
	Title string `json:"title,omitempty" db:"title"`
}
