package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGReplaceDeletesThenInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tok := &RefreshToken{
		ID:        "01TOK",
		UserID:    "01USER",
		Value:     "value-1",
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("delete from refresh_tokens where user_id").
		WithArgs(tok.UserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into refresh_tokens").
		WithArgs(tok.ID, tok.UserID, tok.Value, tok.ExpiresAt, tok.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewPGStore(db).RefreshTokens(context.Background())
	if err := store.Replace(context.Background(), tok); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGFindByValueNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, user_id, value, expires_at, created_at from refresh_tokens").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "value", "expires_at", "created_at"}))

	store := NewPGStore(db).RefreshTokens(context.Background())
	if _, err := store.FindByValue(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindByValue = %v, want ErrNotFound", err)
	}
}

func TestPGCreateUserDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	store := NewPGStore(db).Users(context.Background())
	u := &User{ID: "01USER", Email: "a@x.com", Role: RoleUser, Enabled: true, RegisteredAt: time.Now()}
	if err := store.Create(context.Background(), u); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("Create = %v, want ErrDuplicateUser", err)
	}
}

func TestPGDeleteExpiredCountsRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	before := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("delete from refresh_tokens where expires_at").
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 3))

	store := NewPGStore(db).RefreshTokens(context.Background())
	n, err := store.DeleteExpired(context.Background(), before)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted = %d, want 3", n)
	}
}
