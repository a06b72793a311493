package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/gateway"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
)

// Journal persists a diagnostic line for every gateway call. It implements
// gateway.Observer; the gateway ignores its failures.
type Journal struct {
	db *sql.DB
}

// RouteStats aggregates journaled calls for one method and route.
type RouteStats struct {
	Method       string
	Route        string
	Calls        int
	Failures     int
	Unreachable  int
	AvgLatencyMS float64
}

func NewJournal(dbPath string) (*Journal, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 2000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	j := &Journal{db: db}
	if err := j.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Call journal initialized", zap.String("path", dbPath))
	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS gateway_calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		method TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		route TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		error TEXT,
		latency_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_calls_created ON gateway_calls(created_at);
	CREATE INDEX IF NOT EXISTS idx_calls_route ON gateway_calls(method, route);
	`

	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (j *Journal) ObserveCall(ctx context.Context, record gateway.CallRecord) error {
	query := `
		INSERT INTO gateway_calls (request_id, method, endpoint, route, status_code, outcome, error, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.ExecContext(
		context.WithoutCancel(ctx),
		query,
		record.RequestID,
		record.Method,
		record.Endpoint,
		record.Route,
		record.StatusCode,
		record.Outcome,
		nullString(record.Error),
		record.Duration.Milliseconds(),
		record.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to journal call: %w", err)
	}
	return nil
}

// RecentCalls returns up to limit calls, newest first.
func (j *Journal) RecentCalls(ctx context.Context, limit int) ([]gateway.CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT request_id, method, endpoint, route, status_code, outcome, error, latency_ms, created_at
		FROM gateway_calls
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls: %w", err)
	}
	defer rows.Close()

	var out []gateway.CallRecord
	for rows.Next() {
		var r gateway.CallRecord
		var errText sql.NullString
		var latencyMS, createdAt int64

		if err := rows.Scan(&r.RequestID, &r.Method, &r.Endpoint, &r.Route, &r.StatusCode, &r.Outcome, &errText, &latencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Error = errText.String
		r.Duration = time.Duration(latencyMS) * time.Millisecond
		r.At = time.UnixMilli(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates calls made at or after since, per method and route.
func (j *Journal) Stats(ctx context.Context, since time.Time) ([]RouteStats, error) {
	query := `
		SELECT method, route, COUNT(*),
			SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END),
			AVG(latency_ms)
		FROM gateway_calls
		WHERE created_at >= ?
		GROUP BY method, route
		ORDER BY COUNT(*) DESC, route
	`

	rows, err := j.db.QueryContext(ctx, query, gateway.OutcomeFailed, gateway.OutcomeUnreachable, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate calls: %w", err)
	}
	defer rows.Close()

	var out []RouteStats
	for rows.Next() {
		var s RouteStats
		if err := rows.Scan(&s.Method, &s.Route, &s.Calls, &s.Failures, &s.Unreachable, &s.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Prune deletes calls older than before and reports how many went.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM gateway_calls WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune calls: %w", err)
	}
	n, _ := res.RowsAffected()

	logger.Debug("Call journal pruned", zap.Int64("deleted", n))
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
