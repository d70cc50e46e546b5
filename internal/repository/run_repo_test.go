package repository

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/d5h-foss/hwtest"
)

func TestRunSave_Upsert(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewRunSQLite(db)

	started := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	updated := started.Add(time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO run_status")).
		WithArgs(1, "run-42", hwtest.RunStateRunning, 0, "", started, updated).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(testCtx(t), hwtest.RunStatus{
		ID:        1,
		RunID:     "run-42",
		State:     hwtest.RunStateRunning,
		StartedAt: started,
		UpdatedAt: updated,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestRunSave_NullStartedAtWhenZero(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewRunSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO run_status")).
		WithArgs(1, "", hwtest.RunStateIdle, 0, "", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(testCtx(t), hwtest.RunStatus{ID: 1, State: hwtest.RunStateIdle})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestRunLoad_Found(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewRunSQLite(db)

	started := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	updated := started.Add(2 * time.Minute)

	rows := sqlmock.NewRows([]string{"id", "run_id", "state", "fails", "error", "started_at", "updated_at"}).
		AddRow(1, "run-42", string(hwtest.RunStateFailed), 3, "sampler gave up", started, updated)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, run_id, state, fails, error, started_at, updated_at")).
		WithArgs(1).
		WillReturnRows(rows)

	s, err := repo.Load(testCtx(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ID != 1 || s.RunID != "run-42" || s.State != hwtest.RunStateFailed || s.Fails != 3 {
		t.Fatalf("unexpected status: %+v", s)
	}
	if !s.StartedAt.Equal(started) || !s.UpdatedAt.Equal(updated) {
		t.Fatalf("timestamps wrong: %+v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestRunLoad_NoRowsMeansNeverRan(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewRunSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, run_id, state, fails, error, started_at, updated_at")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "state", "fails", "error", "started_at", "updated_at"}))

	s, err := repo.Load(testCtx(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ID != 0 {
		t.Fatalf("expected zero status, got %+v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestRunLoad_QueryError(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	repo := NewRunSQLite(db)

	mock.ExpectQuery("SELECT id, run_id").
		WillReturnError(errors.New("disk I/O error"))

	if _, err := repo.Load(testCtx(t)); err == nil || !strings.Contains(err.Error(), "disk I/O") {
		t.Fatalf("expected query error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
