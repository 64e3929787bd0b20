package library

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"librix.org/internal/ids"
)

var _ Service = (*PGService)(nil)

// PGService implements Service on PostgreSQL. The copies-available invariant
// is enforced with a conditional decrement so concurrent borrows of the last
// copy cannot both succeed.
type PGService struct {
	db  *sql.DB
	now func() time.Time
}

func NewPGService(db *sql.DB) *PGService {
	return &PGService{db: db, now: time.Now}
}

func (s *PGService) AddBook(ctx context.Context, title, author string, copies int) (Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" || author == "" || copies < 1 {
		return Book{}, ErrInvalidInput
	}
	book := Book{
		ID:        ids.New(),
		Title:     title,
		Author:    author,
		Copies:    copies,
		Available: copies,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`insert into books(id, title, author, copies, available, created_at) values($1,$2,$3,$4,$5,$6)`,
		book.ID, book.Title, book.Author, book.Copies, book.Available, book.CreatedAt,
	)
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

func (s *PGService) GetBook(ctx context.Context, id string) (Book, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, title, author, copies, available, created_at from books where id=$1`, id)
	var b Book
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Copies, &b.Available, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (s *PGService) ListBooks(ctx context.Context) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, title, author, copies, available, created_at from books order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Copies, &b.Available, &b.CreatedAt); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *PGService) Borrow(ctx context.Context, bookID, userID string) (Loan, error) {
	if bookID == "" || userID == "" {
		return Loan{}, ErrInvalidInput
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Loan{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`update books set available = available - 1 where id=$1 and available > 0`, bookID)
	if err != nil {
		return Loan{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Loan{}, err
	}
	if n == 0 {
		// Either the book does not exist or no copy is left.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`select exists(select 1 from books where id=$1)`, bookID).Scan(&exists); err != nil {
			return Loan{}, err
		}
		if !exists {
			return Loan{}, ErrNotFound
		}
		return Loan{}, ErrNoCopies
	}

	now := s.now().UTC()
	loan := Loan{
		ID:         ids.New(),
		BookID:     bookID,
		UserID:     userID,
		BorrowedAt: now,
		DueAt:      now.Add(LoanPeriod),
	}
	if _, err := tx.ExecContext(ctx,
		`insert into loans(id, book_id, user_id, borrowed_at, due_at) values($1,$2,$3,$4,$5)`,
		loan.ID, loan.BookID, loan.UserID, loan.BorrowedAt, loan.DueAt,
	); err != nil {
		return Loan{}, err
	}
	if err := tx.Commit(); err != nil {
		return Loan{}, err
	}
	return loan, nil
}

func (s *PGService) Return(ctx context.Context, loanID, userID string) (Loan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Loan{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`select id, book_id, user_id, borrowed_at, due_at, returned_at from loans where id=$1 for update`, loanID)
	var (
		loan     Loan
		returned sql.NullTime
	)
	if err := row.Scan(&loan.ID, &loan.BookID, &loan.UserID, &loan.BorrowedAt, &loan.DueAt, &returned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Loan{}, ErrNotFound
		}
		return Loan{}, err
	}
	if returned.Valid {
		loan.ReturnedAt = &returned.Time
	}
	if userID != "" && loan.UserID != userID {
		return Loan{}, ErrNotBorrower
	}
	if !loan.Open() {
		return Loan{}, ErrLoanClosed
	}

	now := s.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`update loans set returned_at=$2 where id=$1`, loan.ID, now); err != nil {
		return Loan{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`update books set available = available + 1 where id=$1 and available < copies`, loan.BookID); err != nil {
		return Loan{}, err
	}
	if err := tx.Commit(); err != nil {
		return Loan{}, err
	}
	loan.ReturnedAt = &now
	return loan, nil
}

func (s *PGService) ListLoans(ctx context.Context, userID string) ([]Loan, error) {
	query := `select id, book_id, user_id, borrowed_at, due_at, returned_at from loans order by borrowed_at asc`
	args := []any{}
	if userID != "" {
		query = `select id, book_id, user_id, borrowed_at, due_at, returned_at from loans where user_id=$1 order by borrowed_at asc`
		args = append(args, userID)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []Loan
	for rows.Next() {
		var (
			l        Loan
			returned sql.NullTime
		)
		if err := rows.Scan(&l.ID, &l.BookID, &l.UserID, &l.BorrowedAt, &l.DueAt, &returned); err != nil {
			return nil, err
		}
		if returned.Valid {
			l.ReturnedAt = &returned.Time
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}
