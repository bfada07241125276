package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/subgate/internal/transport"
)

func newMockJournal(t *testing.T) (*ContactJournal, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewContactJournal(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRecordInsertsSubmission(t *testing.T) {
	j, mock := newMockJournal(t)

	submitted := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO contact_submissions").
		WithArgs(int64(42), "ivan", "Иван", "Петров", "+79001234567", "delivered", submitted).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := j.Record(context.Background(), transport.Contact{
		UserID:      42,
		Username:    "ivan",
		FirstName:   "Иван",
		LastName:    "Петров",
		PhoneNumber: "+79001234567",
		SubmittedAt: submitted,
	}, "delivered")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRecordWrapsDatabaseError(t *testing.T) {
	j, mock := newMockJournal(t)

	mock.ExpectExec("INSERT INTO contact_submissions").
		WillReturnError(errors.New("connection refused"))

	err := j.Record(context.Background(), transport.Contact{UserID: 42}, "failed")
	if err == nil {
		t.Fatal("expected an error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
