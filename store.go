package sht30logger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store appends records to a SQLite table. It never reads them back beyond
// a row count.
type Store struct {
	db     *sql.DB
	insert *sql.Stmt
}

// OpenStore opens or creates the database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session TEXT NOT NULL,
			seq INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			raw_temp REAL,
			raw_hum REAL,
			ema_temp REAL,
			ema_hum REAL,
			sma_temp REAL,
			sma_hum REAL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create table: %w", err)
	}

	insert, err := db.Prepare(`
		INSERT INTO readings (
			session,
			seq,
			timestamp,
			raw_temp,
			raw_hum,
			ema_temp,
			ema_hum,
			sma_temp,
			sma_hum
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to prepare insert: %w", err)
	}

	return &Store{db: db, insert: insert}, nil
}

// WriteRecord implements Sink.
func (s *Store) WriteRecord(r Record) error {
	f := r.Filtered
	_, err := s.insert.Exec(
		r.Session,
		int64(r.Seq),
		r.Time.Format(time.RFC3339Nano),
		f.RawTemp,
		f.RawHum,
		f.EMATemp,
		f.EMAHum,
		f.SMATemp,
		f.SMAHum,
	)
	if err != nil {
		return fmt.Errorf("store: insert failed: %w", err)
	}
	return nil
}

// Count returns the number of rows stored.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	s.insert.Close()
	return s.db.Close()
}
