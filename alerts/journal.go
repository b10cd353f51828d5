package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
	_ "modernc.org/sqlite"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS alerts (
	alert_id     TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	alert_type   TEXT NOT NULL,
	shard_file   TEXT,
	payload_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);
`

// Journal persists alerts to a SQLite database so the record of
// violations and remediations survives process restarts.
type Journal struct {
	db  *sql.DB
	log *slog.Logger
}

// NewJournal opens or creates the journal database at dbPath and runs
// migrations.
func NewJournal(dbPath string, log *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal pragma: %w", err)
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal migrate: %w", err)
	}

	return &Journal{db: db, log: log}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Deliver implements interfaces.AlertSink by inserting the alert row.
func (j *Journal) Deliver(ctx context.Context, alert interfaces.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO alerts (alert_id, created_at, alert_type, shard_file, payload_json)
		 VALUES (?, ?, ?, ?, ?)`,
		alert.ID,
		alert.Time.Format(time.RFC3339Nano),
		string(alert.Kind),
		alert.Shard,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	j.log.Debug("Journaled alert",
		slog.String("alert_id", alert.ID),
		slog.String("alert_type", string(alert.Kind)))

	return nil
}

// Recent returns the most recent alerts, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]interfaces.Alert, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT payload_json FROM alerts
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var result []interfaces.Alert
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}

		var alert interfaces.Alert
		if err := json.Unmarshal([]byte(payload), &alert); err != nil {
			return nil, fmt.Errorf("unmarshal alert: %w", err)
		}
		result = append(result, alert)
	}

	return result, rows.Err()
}

// CountByKind returns how many journaled alerts exist per alert kind.
func (j *Journal) CountByKind(ctx context.Context) (map[interfaces.AlertKind]int, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT alert_type, COUNT(*) FROM alerts GROUP BY alert_type`)
	if err != nil {
		return nil, fmt.Errorf("count alerts: %w", err)
	}
	defer rows.Close()

	counts := make(map[interfaces.AlertKind]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[interfaces.AlertKind(kind)] = count
	}

	return counts, rows.Err()
}
