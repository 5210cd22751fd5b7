package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/zappabad/liquidbook/internal/logger"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// SQLiteRecorder persists entries to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log logger.Interface
}

// NewSQLiteRecorder opens (or creates) the database at path and runs
// migrations. The parent directory is created when missing.
func NewSQLiteRecorder(path string, log logger.Interface) (*SQLiteRecorder, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; WAL lets the API read while the terminal writes
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.WithFields(logger.NewField("component", "journal"))}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r.log.Info("journal opened", logger.NewField("path", path))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at    INTEGER NOT NULL,
			account       TEXT,
			side          TEXT NOT NULL,
			kind          TEXT NOT NULL,
			tick          INTEGER NOT NULL,
			price         REAL,
			volume        TEXT NOT NULL,
			status        TEXT NOT NULL,
			tx_hash       TEXT,
			order_index   TEXT,
			executed_tick INTEGER,
			remaining     TEXT,
			error         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Record stores e and returns its id. A zero CreatedAt is set to now.
func (r *SQLiteRecorder) Record(ctx context.Context, e Entry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO orders
		(created_at, account, side, kind, tick, price, volume,
		 status, tx_hash, order_index, executed_tick, remaining, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CreatedAt.UnixMilli(), e.Account, e.Side.String(), e.Kind.String(), int64(e.Tick), e.Price,
		e.Volume.String(), e.Status, e.TxHash, e.OrderIndex, int64(e.ExecutedTick), e.Remaining, e.Error)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert order id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, created_at, account, side, kind, tick, price, volume,
		status, tx_hash, order_index, executed_tick, remaining, error
		FROM orders ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e            Entry
			createdAt    int64
			side, kind   string
			tick, execTk int64
			volume       string
		)
		if err := rows.Scan(&e.ID, &createdAt, &e.Account, &side, &kind, &tick, &e.Price, &volume,
			&e.Status, &e.TxHash, &e.OrderIndex, &execTk, &e.Remaining, &e.Error); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdAt)
		e.Side = core.SideOf(side == core.SideBuy.String())
		e.Kind = core.OrderKindLimit
		if kind == core.OrderKindMarket.String() {
			e.Kind = core.OrderKindMarket
		}
		e.Tick, e.ExecutedTick = core.Tick(tick), core.Tick(execTk)
		if e.Volume, err = decimal.NewFromString(volume); err != nil {
			r.log.Warn("bad volume in journal", logger.NewField("id", e.ID), logger.NewField("volume", volume))
			e.Volume = decimal.Zero
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
