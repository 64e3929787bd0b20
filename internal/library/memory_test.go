package library

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBorrowAndReturn(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewInMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	book, err := svc.AddBook(ctx, "Pale Fire", "Nabokov", 2)
	if err != nil {
		t.Fatalf("AddBook: %v", err)
	}

	loan, err := svc.Borrow(ctx, book.ID, "user-1")
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	if got, want := loan.DueAt, now.Add(LoanPeriod); !got.Equal(want) {
		t.Fatalf("due = %v, want %v", got, want)
	}
	got, err := svc.GetBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.Available != 1 {
		t.Fatalf("available = %d, want 1", got.Available)
	}

	returned, err := svc.Return(ctx, loan.ID, "user-1")
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if returned.Open() {
		t.Fatal("loan should be closed after return")
	}
	got, _ = svc.GetBook(ctx, book.ID)
	if got.Available != 2 {
		t.Fatalf("available after return = %d, want 2", got.Available)
	}

	if _, err := svc.Return(ctx, loan.ID, "user-1"); !errors.Is(err, ErrLoanClosed) {
		t.Fatalf("double return = %v, want ErrLoanClosed", err)
	}
}

func TestBorrowExhaustsCopies(t *testing.T) {
	svc := NewInMemory()
	ctx := context.Background()

	book, err := svc.AddBook(ctx, "Dune", "Herbert", 1)
	if err != nil {
		t.Fatalf("AddBook: %v", err)
	}
	if _, err := svc.Borrow(ctx, book.ID, "user-1"); err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	if _, err := svc.Borrow(ctx, book.ID, "user-2"); !errors.Is(err, ErrNoCopies) {
		t.Fatalf("Borrow of exhausted book = %v, want ErrNoCopies", err)
	}
}

func TestReturnEnforcesBorrower(t *testing.T) {
	svc := NewInMemory()
	ctx := context.Background()

	book, _ := svc.AddBook(ctx, "Dune", "Herbert", 1)
	loan, err := svc.Borrow(ctx, book.ID, "user-1")
	if err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	if _, err := svc.Return(ctx, loan.ID, "user-2"); !errors.Is(err, ErrNotBorrower) {
		t.Fatalf("foreign return = %v, want ErrNotBorrower", err)
	}
	// Empty user id is the administrative override.
	if _, err := svc.Return(ctx, loan.ID, ""); err != nil {
		t.Fatalf("admin return: %v", err)
	}
}

func TestListLoansFiltersByUser(t *testing.T) {
	svc := NewInMemory()
	ctx := context.Background()

	book, _ := svc.AddBook(ctx, "Dune", "Herbert", 3)
	_, _ = svc.Borrow(ctx, book.ID, "user-1")
	_, _ = svc.Borrow(ctx, book.ID, "user-2")

	mine, err := svc.ListLoans(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListLoans: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("user-1 loans = %d, want 1", len(mine))
	}
	all, err := svc.ListLoans(ctx, "")
	if err != nil {
		t.Fatalf("ListLoans all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all loans = %d, want 2", len(all))
	}
}
