package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// InsertObservations inserts a batch of status observations in a single
// transaction: the whole batch commits or none of it does.
func (db *DB) InsertObservations(ctx context.Context, obs []Observation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO store_status (store_id, timestamp_utc, status)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.StoreID, o.Timestamp, o.Status); err != nil {
			return fmt.Errorf("failed to insert observation for %s: %w", o.StoreID, err)
		}
	}

	return tx.Commit()
}

// InsertBusinessHours inserts a batch of weekly schedule rows in a single
// transaction.
func (db *DB) InsertBusinessHours(ctx context.Context, rows []BusinessHours) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO store_hours (store_id, day_of_week, start_time_local, end_time_local)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.StoreID, r.DayOfWeek, r.StartLocal, r.EndLocal); err != nil {
			return fmt.Errorf("failed to insert hours for %s: %w", r.StoreID, err)
		}
	}

	return tx.Commit()
}

// UpsertTimezones inserts or updates store timezone mappings in a single
// transaction.
func (db *DB) UpsertTimezones(ctx context.Context, rows []Timezone) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO store_timezone (store_id, timezone_str)
		VALUES ($1, $2)
		ON CONFLICT (store_id) DO UPDATE SET timezone_str = EXCLUDED.timezone_str
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.StoreID, r.TimezoneStr); err != nil {
			return fmt.Errorf("failed to upsert timezone for %s: %w", r.StoreID, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads all three datasets inside one repeatable-read
// read-only transaction and returns them as an immutable in-memory view.
func (db *DB) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	snap := &Snapshot{
		Observations: make(map[string][]Observation),
		Hours:        make(map[string][]BusinessHours),
		Timezones:    make(map[string]string),
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT store_id, timestamp_utc, status
		FROM store_status
		ORDER BY store_id, timestamp_utc
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.StoreID, &o.Timestamp, &o.Status); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Timestamp = o.Timestamp.UTC()
		snap.Observations[o.StoreID] = append(snap.Observations[o.StoreID], o)
		if o.Timestamp.After(snap.ReferenceInstant) {
			snap.ReferenceInstant = o.Timestamp
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}
	rows.Close()

	rows, err = tx.QueryContext(ctx, `
		SELECT store_id, day_of_week,
		       to_char(start_time_local, 'HH24:MI:SS'),
		       to_char(end_time_local, 'HH24:MI:SS')
		FROM store_hours
		ORDER BY store_id, day_of_week, start_time_local
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query business hours: %w", err)
	}
	for rows.Next() {
		var h BusinessHours
		if err := rows.Scan(&h.StoreID, &h.DayOfWeek, &h.StartLocal, &h.EndLocal); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan business hours: %w", err)
		}
		snap.Hours[h.StoreID] = append(snap.Hours[h.StoreID], h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read business hours: %w", err)
	}
	rows.Close()

	rows, err = tx.QueryContext(ctx, `SELECT store_id, timezone_str FROM store_timezone`)
	if err != nil {
		return nil, fmt.Errorf("failed to query timezones: %w", err)
	}
	for rows.Next() {
		var t Timezone
		if err := rows.Scan(&t.StoreID, &t.TimezoneStr); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan timezone: %w", err)
		}
		snap.Timezones[t.StoreID] = t.TimezoneStr
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read timezones: %w", err)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}

	for storeID := range snap.Observations {
		snap.StoreIDs = append(snap.StoreIDs, storeID)
	}
	sort.Strings(snap.StoreIDs)

	return snap, nil
}
