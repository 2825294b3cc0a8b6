package model

import "time"

// Loan is one borrow episode of a copy. A nil ReturnedAt means the loan is
// still open.
type Loan struct {
	ID           string     `json:"id" db:"id"`
	CopyID       int64      `json:"copy_id" db:"copy_id"`
	BookID       int64      `json:"book_id" db:"book_id"`
	UserID       string     `json:"user_id" db:"user_id"`
	BorrowedAt   time.Time  `json:"borrowed_at" db:"borrowed_at"`
	DueAt        time.Time  `json:"due_at" db:"due_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	RenewalCount int        `json:"renewal_count" db:"renewal_count"`

	// Joined fields (not always populated).
	Title string `json:"title,omitempty" db:"title"`
}

// Open reports whether the loan has not been returned yet.
func (l *Loan) Open() bool {
	return l.ReturnedAt == nil
}

// Notification is a due-soon or overdue reminder derived from an open loan.
type Notification struct {
	LoanID    string    `json:"loan_id"`
	BookID    int64     `json:"book_id"`
	CopyID    int64     `json:"copy_id"`
	Title     string    `json:"title,omitempty"`
	DueAt     time.Time `json:"due_at"`
	Overdue   bool      `json:"overdue"`
	DaysDelta int       `json:"days_delta"`
}
