package library

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"librix.org/internal/ids"
)

// InMemory implements Service with in-process concurrency safety. Used by
// tests and local development; production uses the Postgres store.
type InMemory struct {
	mu    sync.RWMutex
	books map[string]*Book
	loans map[string]*Loan
	now   func() time.Time
}

// NewInMemory creates an empty catalog.
func NewInMemory() *InMemory {
	return &InMemory{
		books: make(map[string]*Book),
		loans: make(map[string]*Loan),
		now:   time.Now,
	}
}

// WithClock overrides the time source. Test helper; not safe after first use.
func (s *InMemory) WithClock(fn func() time.Time) *InMemory {
	if fn != nil {
		s.now = fn
	}
	return s
}

func (s *InMemory) AddBook(ctx context.Context, title, author string, copies int) (Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" {
		return Book{}, ErrInvalidInput
	}
	if copies < 1 {
		return Book{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	book := &Book{
		ID:        ids.New(),
		Title:     title,
		Author:    author,
		Copies:    copies,
		Available: copies,
		CreatedAt: s.now().UTC(),
	}
	s.books[book.ID] = book
	return *book, nil
}

func (s *InMemory) GetBook(ctx context.Context, id string) (Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return *book, nil
}

func (s *InMemory) ListBooks(ctx context.Context) ([]Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) Borrow(ctx context.Context, bookID, userID string) (Loan, error) {
	if bookID == "" || userID == "" {
		return Loan{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return Loan{}, ErrNotFound
	}
	// Invariant: available never drops below zero.
	if book.Available == 0 {
		return Loan{}, ErrNoCopies
	}
	book.Available--

	now := s.now().UTC()
	loan := &Loan{
		ID:         ids.New(),
		BookID:     bookID,
		UserID:     userID,
		BorrowedAt: now,
		DueAt:      now.Add(LoanPeriod),
	}
	s.loans[loan.ID] = loan
	return *loan, nil
}

func (s *InMemory) Return(ctx context.Context, loanID, userID string) (Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]
	if !ok {
		return Loan{}, ErrNotFound
	}
	if userID != "" && loan.UserID != userID {
		return Loan{}, ErrNotBorrower
	}
	if !loan.Open() {
		return Loan{}, ErrLoanClosed
	}
	now := s.now().UTC()
	loan.ReturnedAt = &now
	if book, ok := s.books[loan.BookID]; ok && book.Available < book.Copies {
		book.Available++
	}
	return *loan, nil
}

func (s *InMemory) ListLoans(ctx context.Context, userID string) ([]Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Loan
	for _, l := range s.loans {
		if userID != "" && l.UserID != userID {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
