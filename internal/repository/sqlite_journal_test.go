package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantPulse/internal/domain/models"
)

func openTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func journalSignal(id string, ts time.Time) models.Signal {
	return models.Signal{
		ID:              id,
		Timestamp:       ts,
		Asset:           "EURUSD",
		Direction:       models.DirectionBuy,
		Confidence:      71.5,
		PositionSize:    models.SizeMedium,
		PredictedReward: 0.004,
		RiskRatio:       1.8,
		ModelVersion:    "v2.1.0",
		ModelType:       "ensemble",
	}
}

func TestJournalSignalRoundTrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordSignal(ctx, journalSignal("a", base)))
	require.NoError(t, j.RecordSignal(ctx, journalSignal("b", base.Add(time.Minute))))

	got, err := j.RecentSignals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// newest first
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, models.DirectionBuy, got[0].Direction)
	assert.Equal(t, models.SizeMedium, got[0].PositionSize)
	assert.Equal(t, 71.5, got[0].Confidence)
	assert.Equal(t, base.Add(time.Minute), got[0].Timestamp)
}

func TestJournalSignalIdempotentOnID(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordSignal(ctx, journalSignal("a", ts)))
	require.NoError(t, j.RecordSignal(ctx, journalSignal("a", ts)))

	got, err := j.RecentSignals(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestJournalRecentLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		sig := journalSignal(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, j.RecordSignal(ctx, sig))
	}

	got, err := j.RecentSignals(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestJournalBacktest(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	res := models.BacktestResult{
		Asset:          "EURUSD",
		InitialBalance: 10000,
		FinalBalance:   10123.45,
		Metrics: models.PerformanceMetrics{
			TotalTrades: 7,
			WinRate:     57.14,
			TotalPnL:    123.45,
		},
	}
	require.NoError(t, j.RecordBacktest(ctx, res))

	var count int
	require.NoError(t, j.db.QueryRow("SELECT COUNT(*) FROM backtests").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestJournalAsSink(t *testing.T) {
	j := openTestJournal(t)
	assert.Equal(t, "journal", j.Name())
	require.NoError(t, j.Deliver(context.Background(), journalSignal("a", time.Now().UTC())))
}
