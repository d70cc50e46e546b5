package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/d5h-foss/hwtest"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*hwtest.Operator, error)
}

// RunRepo persists the single run-status row.
type RunRepo interface {
	Save(ctx context.Context, s hwtest.RunStatus) error
	Load(ctx context.Context) (hwtest.RunStatus, error)
}

// EventRepo is the append-only store behind the persistent log backend.
type EventRepo interface {
	Append(ctx context.Context, e hwtest.EventRecord) error
	List(ctx context.Context, from, to time.Time, typ string) ([]hwtest.EventRecord, error)
}

type Repository struct {
	RunRepo   RunRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		RunRepo:   NewRunSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewOperatorRepository(db),
	}
}
