package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/domain/repository"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS signals (
    id               TEXT PRIMARY KEY,
    ts               INTEGER NOT NULL,
    asset            TEXT NOT NULL,
    direction        TEXT NOT NULL,
    confidence       REAL NOT NULL,
    position_size    TEXT NOT NULL,
    predicted_reward REAL NOT NULL,
    risk_ratio       REAL NOT NULL,
    model_version    TEXT NOT NULL,
    model_type       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(ts DESC);

CREATE TABLE IF NOT EXISTS backtests (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    ts              INTEGER NOT NULL,
    asset           TEXT NOT NULL,
    initial_balance REAL NOT NULL,
    final_balance   REAL NOT NULL,
    total_trades    INTEGER NOT NULL,
    win_rate        REAL NOT NULL,
    profit_factor   REAL NOT NULL,
    sharpe_ratio    REAL NOT NULL,
    max_drawdown    REAL NOT NULL,
    expectancy      REAL NOT NULL,
    total_pnl       REAL NOT NULL
);
`

// SQLiteJournal is the append-only on-disk record of dispatched signals
// and completed backtests. It doubles as a dispatcher sink.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens (or creates) the journal database at path.
// Use ":memory:" for an ephemeral journal.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// modernc sqlite is single-writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(journalSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordSignal(ctx context.Context, sig models.Signal) error {
	const q = `INSERT OR REPLACE INTO signals
        (id, ts, asset, direction, confidence, position_size, predicted_reward, risk_ratio, model_version, model_type)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, q,
		sig.ID,
		sig.Timestamp.Unix(),
		sig.Asset,
		string(sig.Direction),
		sig.Confidence,
		string(sig.PositionSize),
		sig.PredictedReward,
		sig.RiskRatio,
		sig.ModelVersion,
		sig.ModelType,
	)
	if err != nil {
		return fmt.Errorf("journal signal: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) RecordBacktest(ctx context.Context, res models.BacktestResult) error {
	const q = `INSERT INTO backtests
        (ts, asset, initial_balance, final_balance, total_trades, win_rate, profit_factor, sharpe_ratio, max_drawdown, expectancy, total_pnl)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, q,
		time.Now().Unix(),
		res.Asset,
		res.InitialBalance,
		res.FinalBalance,
		res.Metrics.TotalTrades,
		res.Metrics.WinRate,
		res.Metrics.ProfitFactor,
		res.Metrics.SharpeRatio,
		res.Metrics.MaxDrawdown,
		res.Metrics.Expectancy,
		res.Metrics.TotalPnL,
	)
	if err != nil {
		return fmt.Errorf("journal backtest: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) RecentSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, ts, asset, direction, confidence, position_size, predicted_reward, risk_ratio, model_version, model_type
        FROM signals ORDER BY ts DESC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.Signal, 0, limit)
	for rows.Next() {
		var sig models.Signal
		var ts int64
		var dir, size string
		if err := rows.Scan(&sig.ID, &ts, &sig.Asset, &dir, &sig.Confidence, &size,
			&sig.PredictedReward, &sig.RiskRatio, &sig.ModelVersion, &sig.ModelType); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Timestamp = time.Unix(ts, 0).UTC()
		sig.Direction = models.Direction(dir)
		sig.PositionSize = models.PositionSize(size)
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error { return j.db.Close() }

// Name and Deliver let the journal act as a dispatcher sink.
func (j *SQLiteJournal) Name() string { return "journal" }

func (j *SQLiteJournal) Deliver(ctx context.Context, sig models.Signal) error {
	return j.RecordSignal(ctx, sig)
}

var (
	_ repository.Journal    = (*SQLiteJournal)(nil)
	_ repository.SignalSink = (*SQLiteJournal)(nil)
)
