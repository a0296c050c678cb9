package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/irfndi/astro-snapshot-go/internal/cache"
	"github.com/irfndi/astro-snapshot-go/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// SnapshotRecord describes a stored snapshot without its payload.
type SnapshotRecord struct {
	Date       string            `json:"date" db:"snapshot_date"`
	Mode       models.ZodiacMode `json:"zodiac_mode" db:"zodiac_mode"`
	ComputedAt time.Time         `json:"computed_at" db:"computed_at"`
	UpdatedAt  time.Time         `json:"updated_at" db:"updated_at"`
}

const createSnapshotsTable = `
	CREATE TABLE IF NOT EXISTS transit_snapshots (
		snapshot_date DATE NOT NULL,
		zodiac_mode   VARCHAR(16) NOT NULL,
		payload       JSONB NOT NULL,
		computed_at   TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (snapshot_date, zodiac_mode)
	)
`

// SnapshotRepository is the PostgreSQL persistent snapshot tier.
type SnapshotRepository struct {
	pool DatabasePool
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(pool DatabasePool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

func (r *SnapshotRepository) Name() string {
	return "postgres"
}

// EnsureSchema creates the snapshot table if it does not exist.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("failed to create transit_snapshots table: %w", err)
	}
	return nil
}

// Get loads the snapshot for key. A missing row yields cache.ErrSnapshotNotFound.
func (r *SnapshotRepository) Get(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, error) {
	date, err := time.Parse(models.DateLayout, key.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot date %q: %w", key.Date, err)
	}

	query := `
		SELECT payload
		FROM transit_snapshots
		WHERE snapshot_date = $1 AND zodiac_mode = $2
	`

	var payload []byte
	err = r.pool.QueryRow(ctx, query, date, string(key.Mode)).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cache.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return &snapshot, nil
}

// Put upserts the snapshot for key.
func (r *SnapshotRepository) Put(ctx context.Context, key models.SnapshotKey, snapshot *models.Snapshot) error {
	date, err := time.Parse(models.DateLayout, key.Date)
	if err != nil {
		return fmt.Errorf("invalid snapshot date %q: %w", key.Date, err)
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", key, err)
	}

	query := `
		INSERT INTO transit_snapshots (snapshot_date, zodiac_mode, payload, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (snapshot_date, zodiac_mode)
		DO UPDATE SET
			payload = EXCLUDED.payload,
			computed_at = EXCLUDED.computed_at,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.pool.Exec(ctx, query, date, string(key.Mode), payload, snapshot.ComputedAt); err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", key, err)
	}
	return nil
}

// ListRange returns the stored snapshots for mode with dates in [from, to],
// ordered by date.
func (r *SnapshotRepository) ListRange(ctx context.Context, from, to time.Time, mode models.ZodiacMode) ([]SnapshotRecord, error) {
	query := `
		SELECT snapshot_date, zodiac_mode, computed_at, updated_at
		FROM transit_snapshots
		WHERE snapshot_date BETWEEN $1 AND $2 AND zodiac_mode = $3
		ORDER BY snapshot_date
	`

	rows, err := r.pool.Query(ctx, query, from, to, string(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	records := []SnapshotRecord{}
	for rows.Next() {
		var (
			date    time.Time
			modeStr string
			record  SnapshotRecord
		)
		if err := rows.Scan(&date, &modeStr, &record.ComputedAt, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot record: %w", err)
		}
		record.Date = date.Format(models.DateLayout)
		record.Mode = models.ZodiacMode(modeStr)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot records: %w", err)
	}
	return records, nil
}
