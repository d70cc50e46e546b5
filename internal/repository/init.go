package repository

import (
	"database/sql"

	"github.com/d5h-foss/hwtest/internal/repository/db"
)

// InitDB opens the SQLite database and ensures the schema exists.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}
