package collector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	ensureExtensionSQL = "CREATE EXTENSION IF NOT EXISTS swarm64da"
	statsSQL           = "SELECT * FROM swarm64da.get_fpga_stats()"
	deviceCountSQL     = "SELECT COUNT(*) FROM swarm64da.get_fpga_stats()"

	// deviceIDColumn is the optional identifier column in the stats view.
	deviceIDColumn = "fpga_id"

	// defaultDeviceID is assumed when the view has no identifier column.
	defaultDeviceID = "0"
)

// StatsRow is one device row from the stats view: the reported device
// identifier plus every numeric column by name.
type StatsRow struct {
	FPGAID string
	Values map[string]float64
}

// StatsDB is the database boundary of the collector. The production
// implementation talks to PostgreSQL via pgx; tests substitute a stub.
type StatsDB interface {
	// EnsureExtension issues the idempotent extension-creation statement.
	EnsureExtension(ctx context.Context) error

	// DeviceCount returns the number of rows the stats view reports.
	DeviceCount(ctx context.Context) (int, error)

	// Stats retrieves the current stats view contents.
	Stats(ctx context.Context) ([]StatsRow, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

type pgStatsDB struct {
	conn *pgx.Conn
}

// OpenPG establishes a PostgreSQL connection for the stats view.
func OpenPG(ctx context.Context, dsn string) (StatsDB, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &pgStatsDB{conn: conn}, nil
}

func (db *pgStatsDB) EnsureExtension(ctx context.Context) error {
	if _, err := db.conn.Exec(ctx, ensureExtensionSQL); err != nil {
		return fmt.Errorf("failed to ensure extension: %w", err)
	}
	return nil
}

func (db *pgStatsDB) DeviceCount(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRow(ctx, deviceCountSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return count, nil
}

func (db *pgStatsDB) Stats(ctx context.Context) ([]StatsRow, error) {
	rows, err := db.conn.Query(ctx, statsSQL)
	if err != nil {
		return nil, fmt.Errorf("stats query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	var out []StatsRow
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read stats row: %w", err)
		}

		row := StatsRow{
			FPGAID: defaultDeviceID,
			Values: make(map[string]float64, len(columns)),
		}
		for i, col := range columns {
			if col == deviceIDColumn {
				row.FPGAID = fmt.Sprintf("%v", vals[i])
				continue
			}
			if f, ok := toFloat(vals[i]); ok {
				row.Values[col] = f
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats query failed: %w", err)
	}

	return out, nil
}

func (db *pgStatsDB) Close(ctx context.Context) error {
	return db.conn.Close(ctx)
}

// toFloat converts the driver value for a numeric column. Non-numeric
// columns are skipped by the caller.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case int16:
		return float64(val), true
	case int:
		return float64(val), true
	case uint64:
		return float64(val), true
	case interface{ Float64Value() (pgtype.Float8, error) }:
		f8, err := val.Float64Value()
		if err != nil || !f8.Valid {
			return 0, false
		}
		return f8.Float64, true
	default:
		return 0, false
	}
}
