package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

// SQLite stores the journal in a local database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) WriteEvent(ctx context.Context, e Event) error {
	data, err := marshalMap(e.Data)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO events (id, timestamp, level, message, data)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, formatTime(e.Timestamp), string(e.Level), e.Message, data,
	)
	return err
}

func (j *SQLite) WriteTrade(ctx context.Context, t Trade) error {
	extra, err := marshalMap(t.Extra)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO trades (id, timestamp, strategy, profit, extra)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, formatTime(t.Timestamp), string(t.Strategy), t.Profit, extra,
	)
	return err
}

func (j *SQLite) RecentEvents(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, timestamp, level, message, data FROM (
			SELECT rowid, id, timestamp, level, message, data
			FROM events ORDER BY rowid DESC LIMIT ?
		) ORDER BY rowid ASC`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e           Event
			ts, lv, raw string
		)
		if err := rows.Scan(&e.ID, &ts, &lv, &e.Message, &raw); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		e.Level = logger.LogLevel(lv)
		if e.Data, err = unmarshalMap(raw); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLite) Trades(ctx context.Context) ([]Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, timestamp, strategy, profit, extra
		FROM trades ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		var (
			t             Trade
			ts, name, raw string
		)
		if err := rows.Scan(&t.ID, &ts, &name, &t.Profit, &raw); err != nil {
			return nil, err
		}
		if t.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		t.Strategy = strategy.Name(name)
		if t.Extra, err = unmarshalMap(raw); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func marshalMap(m map[string]interface{}) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode journal data: %w", err)
	}
	return string(b), nil
}

func unmarshalMap(s string) (map[string]interface{}, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decode journal data: %w", err)
	}
	return m, nil
}
