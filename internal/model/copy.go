package model

import "time"

// CopyStatus is the circulation state of a physical copy.
type CopyStatus string

// Copy statuses.
const (
	CopyAvailable   CopyStatus = "available"
	CopyCheckedOut  CopyStatus = "checked_out"
	CopyReserved    CopyStatus = "reserved"
	CopyLost        CopyStatus = "lost"
	CopyMaintenance CopyStatus = "maintenance"
)

// Valid reports whether s is a known copy status.
func (s CopyStatus) Valid() bool {
	switch s {
	case CopyAvailable, CopyCheckedOut, CopyReserved, CopyLost, CopyMaintenance:
		return true
	}
	return false
}

// Copy is one physical instance of a book.
type Copy struct {
	ID         int64      `json:"id" db:"id"`
	BookID     int64      `json:"book_id" db:"book_id"`
	CopyNumber int        `json:"copy_number" db:"copy_number"`
	Status     CopyStatus `json:"status" db:"status"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}
