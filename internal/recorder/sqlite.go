package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pawsense/feeder-monitor/internal/logic"
)

// SQLiteRecorder persists eating history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboard readers don't block the poll loop's writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS eating_events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id    TEXT NOT NULL,
			start_ts     INTEGER NOT NULL,
			end_ts       INTEGER NOT NULL,
			start_weight INTEGER,
			end_weight   INTEGER,
			amount       INTEGER,
			duration     INTEGER,
			max_weight   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_device_ts ON eating_events(device_id, start_ts)`,

		`CREATE TABLE IF NOT EXISTS daily_summaries (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id    TEXT NOT NULL,
			date         TEXT NOT NULL,
			total_amount INTEGER,
			meal_count   INTEGER,
			avg_meal     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_device_date ON daily_summaries(device_id, date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordEvent(deviceID string, ev logic.EatingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO eating_events
		(device_id, start_ts, end_ts, start_weight, end_weight, amount, duration, max_weight)
		VALUES (?,?,?,?,?,?,?,?)`,
		deviceID, ev.StartTime.Unix(), ev.EndTime.Unix(),
		ev.StartWeight, ev.EndWeight, ev.Amount, ev.Duration, ev.MaxWeight,
	)
	return err
}

func (r *SQLiteRecorder) RecordDailySummary(sum DailySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO daily_summaries
		(device_id, date, total_amount, meal_count, avg_meal)
		VALUES (?,?,?,?,?)`,
		sum.DeviceID, sum.Date, sum.TotalAmount, sum.MealCount, sum.AvgMealSize,
	)
	return err
}

func (r *SQLiteRecorder) EventsSince(deviceID string, since time.Time) ([]logic.EatingEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT start_ts, end_ts, start_weight, end_weight, amount, duration, max_weight
		FROM eating_events WHERE device_id = ? AND start_ts >= ? ORDER BY start_ts`,
		deviceID, since.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []logic.EatingEvent
	for rows.Next() {
		var startTS, endTS int64
		var ev logic.EatingEvent
		if err := rows.Scan(&startTS, &endTS, &ev.StartWeight, &ev.EndWeight, &ev.Amount, &ev.Duration, &ev.MaxWeight); err != nil {
			return nil, err
		}
		ev.StartTime = time.Unix(startTS, 0).UTC()
		ev.EndTime = time.Unix(endTS, 0).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
