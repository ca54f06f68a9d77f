package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	pkgch "TradePilot/pkg/clickhouse"
	"TradePilot/pkg/logger"
)

// dialect holds the statements that differ between backends.
type dialect struct {
	name        string
	schema      []string
	insertOrder string
}

var clickhouseDialect = dialect{
	name: "clickhouse",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS orders (
			order_id        String,
			symbol          LowCardinality(String),
			action          LowCardinality(String),
			order_type      LowCardinality(String),
			quantity        Float64,
			price           Nullable(Float64),
			stop_price      Nullable(Float64),
			status          LowCardinality(String),
			filled_quantity Float64,
			filled_price    Float64,
			dry_run         UInt8,
			note            String,
			created_at      DateTime64(3, 'UTC'),
			updated_at      DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY order_id`,
		`CREATE TABLE IF NOT EXISTS trades (
			symbol      LowCardinality(String),
			quantity    Float64,
			entry_price Float64,
			exit_price  Float64,
			entry_time  DateTime64(3, 'UTC'),
			exit_time   DateTime64(3, 'UTC'),
			pnl         Float64,
			pnl_pct     Float64,
			reason      String
		) ENGINE = MergeTree
		ORDER BY (symbol, exit_time)`,
	},
	// ReplacingMergeTree keeps the row with the latest updated_at
	insertOrder: `INSERT INTO orders (order_id, symbol, action, order_type, quantity, price, stop_price,
		status, filled_quantity, filled_price, dry_run, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS orders (
			order_id        TEXT PRIMARY KEY,
			symbol          TEXT NOT NULL,
			action          TEXT NOT NULL,
			order_type      TEXT NOT NULL,
			quantity        REAL NOT NULL,
			price           REAL,
			stop_price      REAL,
			status          TEXT NOT NULL,
			filled_quantity REAL NOT NULL,
			filled_price    REAL NOT NULL,
			dry_run         INTEGER NOT NULL,
			note            TEXT NOT NULL,
			created_at      TIMESTAMP NOT NULL,
			updated_at      TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT NOT NULL,
			quantity    REAL NOT NULL,
			entry_price REAL NOT NULL,
			exit_price  REAL NOT NULL,
			entry_time  TIMESTAMP NOT NULL,
			exit_time   TIMESTAMP NOT NULL,
			pnl         REAL NOT NULL,
			pnl_pct     REAL NOT NULL,
			reason      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol_exit ON trades (symbol, exit_time)`,
	},
	insertOrder: `INSERT INTO orders (order_id, symbol, action, order_type, quantity, price, stop_price,
		status, filled_quantity, filled_price, dry_run, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			status          = excluded.status,
			filled_quantity = excluded.filled_quantity,
			filled_price    = excluded.filled_price,
			updated_at      = excluded.updated_at`,
}

const insertTrade = `INSERT INTO trades (symbol, quantity, entry_price, exit_price, entry_time, exit_time, pnl, pnl_pct, reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLJournal is a TradeJournal over database/sql. The ClickHouse and SQLite
// backends differ only in DDL and order upserts.
type SQLJournal struct {
	db      *sql.DB
	dialect dialect
	close   func() error
	logger  *logger.Logger
}

// NewClickHouseJournal creates the journal tables in ClickHouse. The client
// stays owned by the caller.
func NewClickHouseJournal(ctx context.Context, ch *pkgch.Client, lgr *logger.Logger) (*SQLJournal, error) {
	if err := ch.InitSchema(ctx, clickhouseDialect.schema); err != nil {
		return nil, fmt.Errorf("clickhouse journal: %w", err)
	}
	return &SQLJournal{
		db:      ch.DB(),
		dialect: clickhouseDialect,
		close:   func() error { return nil },
		logger:  lgr.Component("journal"),
	}, nil
}

// NewSQLiteJournal opens (or creates) the journal database at path.
func NewSQLiteJournal(ctx context.Context, path string, lgr *logger.Logger) (*SQLJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite journal: open %q: %w", path, err)
	}
	// sqlite is single-writer; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range sqliteDialect.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite journal: apply schema: %w", err)
		}
	}
	return &SQLJournal{
		db:      db,
		dialect: sqliteDialect,
		close:   db.Close,
		logger:  lgr.Component("journal"),
	}, nil
}

func (j *SQLJournal) RecordOrder(ctx context.Context, o models.Order) error {
	dry := 0
	if o.DryRun {
		dry = 1
	}
	_, err := j.db.ExecContext(ctx, j.dialect.insertOrder,
		o.ID, o.Symbol, string(o.Action), string(o.Type), o.Quantity, o.Price, o.StopPrice,
		string(o.Status), o.FilledQuantity, o.FilledPrice, dry, o.Note,
		o.CreatedAt.UTC(), o.UpdatedAt.UTC(),
	)
	if err != nil {
		j.logger.Error("record order failed",
			logger.String("backend", j.dialect.name),
			logger.String("order_id", o.ID),
			logger.Error(err),
		)
		return fmt.Errorf("record order %s: %w", o.ID, err)
	}
	return nil
}

func (j *SQLJournal) RecordTrade(ctx context.Context, t models.TradeRecord) error {
	_, err := j.db.ExecContext(ctx, insertTrade,
		t.Symbol, t.Quantity, t.EntryPrice, t.ExitPrice,
		t.EntryTime.UTC(), t.ExitTime.UTC(), t.PnL, t.PnLPct, t.Reason,
	)
	if err != nil {
		j.logger.Error("record trade failed",
			logger.String("backend", j.dialect.name),
			logger.String("symbol", t.Symbol),
			logger.Error(err),
		)
		return fmt.Errorf("record trade %s: %w", t.Symbol, err)
	}
	return nil
}

// RecentTrades returns up to limit closed trades, newest first. An empty
// symbol matches every symbol.
func (j *SQLJournal) RecentTrades(ctx context.Context, symbol string, limit int) ([]models.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT symbol, quantity, entry_price, exit_price, entry_time, exit_time, pnl, pnl_pct, reason
		FROM trades WHERE (? = '' OR symbol = ?) ORDER BY exit_time DESC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, q, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("recent trades: %w", err)
	}
	defer rows.Close()

	var out []models.TradeRecord
	for rows.Next() {
		var t models.TradeRecord
		var entry, exit time.Time
		if err := rows.Scan(&t.Symbol, &t.Quantity, &t.EntryPrice, &t.ExitPrice, &entry, &exit, &t.PnL, &t.PnLPct, &t.Reason); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.EntryTime, t.ExitTime = entry.UTC(), exit.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLJournal) Health(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

func (j *SQLJournal) Close() error {
	return j.close()
}

// NopJournal discards everything; used when journal.backend is none.
type NopJournal struct{}

func (NopJournal) RecordOrder(context.Context, models.Order) error       { return nil }
func (NopJournal) RecordTrade(context.Context, models.TradeRecord) error { return nil }
func (NopJournal) RecentTrades(context.Context, string, int) ([]models.TradeRecord, error) {
	return nil, nil
}
func (NopJournal) Close() error { return nil }

var (
	_ drepo.TradeJournal = (*SQLJournal)(nil)
	_ drepo.TradeJournal = NopJournal{}
)
