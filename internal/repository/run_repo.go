package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/d5h-foss/hwtest"
)

type RunSQLite struct {
	db *sql.DB
}

func NewRunSQLite(db *sql.DB) *RunSQLite {
	return &RunSQLite{db: db}
}

const (
	runStatusRowID = 1

	insertOrUpdateRunSQL = `
		INSERT INTO run_status (id, run_id, state, fails, error, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id=excluded.run_id,
			state=excluded.state,
			fails=excluded.fails,
			error=excluded.error,
			started_at=excluded.started_at,
			updated_at=excluded.updated_at
	`

	selectRunSQL = `
		SELECT id, run_id, state, fails, error, started_at, updated_at
		FROM run_status WHERE id=?
	`
)

// Save upserts the run_status row (id always 1).
func (r *RunSQLite) Save(ctx context.Context, status hwtest.RunStatus) error {
	tsUTC := status.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	var startedAt any
	if !status.StartedAt.IsZero() {
		startedAt = status.StartedAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, insertOrUpdateRunSQL,
		runStatusRowID,
		status.RunID,
		status.State,
		status.Fails,
		status.Error,
		startedAt,
		tsUTC,
	)
	return err
}

// Load fetches the single run_status row. A zero-ID result means no run
// has ever been recorded.
func (r *RunSQLite) Load(ctx context.Context) (hwtest.RunStatus, error) {
	row := r.db.QueryRowContext(ctx, selectRunSQL, runStatusRowID)

	var s hwtest.RunStatus
	var startedAt sql.NullTime
	if err := row.Scan(
		&s.ID,
		&s.RunID,
		&s.State,
		&s.Fails,
		&s.Error,
		&startedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return hwtest.RunStatus{}, nil // never ran
		}
		return hwtest.RunStatus{}, err
	}

	if startedAt.Valid {
		s.StartedAt = startedAt.Time.UTC()
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
