package db

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	dbInstance *sql.DB
	dbOnce     sync.Once
	dbErr      error
)

// schema holds one row per spec run of a completed session
const schema = `
CREATE TABLE IF NOT EXISTS spec_runs (
	project            VARCHAR NOT NULL,
	session_id         VARCHAR NOT NULL,
	session_start      BIGINT  NOT NULL,
	session_end        BIGINT  NOT NULL,
	file               VARCHAR NOT NULL,
	estimated_duration BIGINT  NOT NULL,
	assigned_to        VARCHAR,
	start              BIGINT  NOT NULL,
	"end"              BIGINT  NOT NULL,
	passed             BOOLEAN NOT NULL
)`

// GetDB returns a singleton in-memory DuckDB connection
func GetDB() (*sql.DB, error) {
	dbOnce.Do(func() {
		dbInstance, dbErr = Open("")
	})
	return dbInstance, dbErr
}

// Open opens a DuckDB database at dsn ("" is in-memory) and creates the
// spec_runs table.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	// an in-memory database lives on a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create spec_runs table: %w", err)
	}

	return db, nil
}
