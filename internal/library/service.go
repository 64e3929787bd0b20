package library

import "context"

// Service defines catalog and loan operations.
type Service interface {
	AddBook(ctx context.Context, title, author string, copies int) (Book, error)
	GetBook(ctx context.Context, id string) (Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	// Borrow takes one available copy of the book for the user.
	Borrow(ctx context.Context, bookID, userID string) (Loan, error)
	// Return closes the loan and puts the copy back. Admins may return any
	// loan; regular users only their own (enforced by the caller passing
	// userID == "" for admins).
	Return(ctx context.Context, loanID, userID string) (Loan, error)
	// ListLoans returns loans for one user, or all loans when userID is "".
	ListLoans(ctx context.Context, userID string) ([]Loan, error)
}
