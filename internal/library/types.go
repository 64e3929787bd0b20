package library

import (
	"errors"
	"time"
)

// Book is a catalog entry with a copy count.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Copies    int       `json:"copies"`
	Available int       `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}

// Loan records one borrowed copy. ReturnedAt is nil while the loan is open.
type Loan struct {
	ID         string     `json:"id"`
	BookID     string     `json:"book_id"`
	UserID     string     `json:"user_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// Open reports whether the loan has not been returned yet.
func (l *Loan) Open() bool { return l.ReturnedAt == nil }

var (
	ErrNotFound     = errors.New("library: not found")
	ErrNoCopies     = errors.New("library: no copies available")
	ErrLoanClosed   = errors.New("library: loan already returned")
	ErrNotBorrower  = errors.New("library: loan belongs to another user")
	ErrInvalidInput = errors.New("library: invalid input")
)

// LoanPeriod is how long a borrowed copy may be kept.
const LoanPeriod = 14 * 24 * time.Hour
