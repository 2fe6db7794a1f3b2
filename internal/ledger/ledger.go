package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Backend    string
	Seed       int64
	TrainRows  int
	TestRows   int
	Artifact   string
	Endpoint   string
	TN         int
	FP         int
	FN         int
	TP         int
	Accuracy   float64
}

type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	backend     TEXT NOT NULL,
	seed        INTEGER NOT NULL,
	train_rows  INTEGER NOT NULL,
	test_rows   INTEGER NOT NULL,
	artifact    TEXT NOT NULL,
	endpoint    TEXT NOT NULL,
	tn          INTEGER NOT NULL,
	fp          INTEGER NOT NULL,
	fn          INTEGER NOT NULL,
	tp          INTEGER NOT NULL,
	accuracy    REAL NOT NULL
);`

func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Record(ctx context.Context, r Run) (int64, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (started_at, finished_at, backend, seed, train_rows, test_rows,
			artifact, endpoint, tn, fp, fn, tp, accuracy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.Backend, r.Seed, r.TrainRows, r.TestRows,
		r.Artifact, r.Endpoint, r.TN, r.FP, r.FN, r.TP, r.Accuracy,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit runs, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, backend, seed, train_rows, test_rows,
			artifact, endpoint, tn, fp, fn, tp, accuracy
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Backend, &r.Seed, &r.TrainRows, &r.TestRows,
			&r.Artifact, &r.Endpoint, &r.TN, &r.FP, &r.FN, &r.TP, &r.Accuracy); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *Ledger) Close() error { return l.db.Close() }
