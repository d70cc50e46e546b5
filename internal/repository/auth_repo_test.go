package repository

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOperatorCreate_ReturnsID(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewOperatorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO operators (username, password_hash) VALUES (?, ?)")).
		WithArgs("alex", "bcrypt-hash").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Create("alex", "bcrypt-hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 7 {
		t.Fatalf("id = %d, want 7", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestOperatorCreate_DBError(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewOperatorRepository(db)

	mock.ExpectExec("INSERT INTO operators").
		WillReturnError(errors.New("UNIQUE constraint failed"))

	if _, err := repo.Create("alex", "h"); err == nil || !strings.Contains(err.Error(), "UNIQUE") {
		t.Fatalf("expected constraint error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestOperatorGetByUsername(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewOperatorRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash"}).
		AddRow(3, "alex", "bcrypt-hash")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash FROM operators WHERE username = ?")).
		WithArgs("alex").
		WillReturnRows(rows)

	op, err := repo.GetByUsername("alex")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if op == nil || op.ID != 3 || op.Username != "alex" || op.PasswordHash != "bcrypt-hash" {
		t.Fatalf("operator = %+v", op)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestOperatorGetByUsername_NotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewOperatorRepository(db)

	mock.ExpectQuery("SELECT id, username, password_hash FROM operators").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}))

	op, err := repo.GetByUsername("ghost")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if op != nil {
		t.Fatalf("expected nil for missing operator, got %+v", op)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
