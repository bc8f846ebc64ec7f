package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	internalrepo "QuantPulse/internal/repository"
	"QuantPulse/internal/service/feed"
	"QuantPulse/internal/services/predictors"
	"QuantPulse/internal/usecase"
	applogger "QuantPulse/pkg/logger"
	"QuantPulse/pkg/metrics"

	"github.com/olekukonko/tablewriter"
)

func main() {
	asset := flag.String("asset", "EURUSD", "asset to backtest")
	bars := flag.Int("bars", 2000, "number of synthetic 1-minute bars")
	balance := flag.Float64("balance", 10000, "initial balance")
	startPrice := flag.Float64("start-price", 1.1, "synthetic walk start price")
	seed := flag.Int64("seed", 42, "synthetic walk seed (0 = time-based)")
	signalEvery := flag.Int("signal-every", 15, "generate a signal every N bars")
	journalPath := flag.String("journal", "", "optional SQLite journal path")
	flag.Parse()

	if *bars < usecase.MinBars {
		log.Fatalf("need at least %d bars, got %d", usecase.MinBars, *bars)
	}

	l, err := applogger.New(&applogger.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	var journal *internalrepo.SQLiteJournal
	if *journalPath != "" {
		journal, err = internalrepo.NewSQLiteJournal(*journalPath)
		if err != nil {
			log.Fatalf("journal: %v", err)
		}
		defer journal.Close()
	}

	rec := metrics.New()
	gen := usecase.NewSignalGenerator(
		nil, // bars are passed in directly, no storage read
		predictors.NewTrend(),
		predictors.NewMomentum(),
		predictors.NewAgent(),
		rec,
		l,
	)

	var runner *usecase.BacktestRunner
	if journal != nil {
		runner = usecase.NewBacktestRunner(nil, gen, journal, rec, l)
	} else {
		runner = usecase.NewBacktestRunner(nil, gen, nil, rec, l)
	}

	history := feed.GenerateHistory(*asset, *bars, *startPrice, *seed, time.Now().UTC())

	res, err := runner.RunOnBars(context.Background(), history, usecase.RunParams{
		Asset:          *asset,
		InitialBalance: *balance,
		SignalEvery:    *signalEvery,
	})
	if err != nil {
		log.Fatalf("backtest: %v", err)
	}

	fmt.Printf("backtest %s: %d bars, %d trades\n\n", *asset, *bars, len(res.Trades))

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Time", "Dir", "Conf", "Size", "Entry", "Exit", "PnL", "Win")
	for _, t := range res.Trades {
		win := ""
		if t.IsWin {
			win = "x"
		}
		table.Append(
			t.EntryTime.Format("01-02 15:04"),
			string(t.Signal.Direction),
			fmt.Sprintf("%.1f", t.Signal.Confidence),
			fmt.Sprintf("%.2f", t.Size),
			fmt.Sprintf("%.5f", t.EntryPrice),
			fmt.Sprintf("%.5f", t.ExitPrice),
			fmt.Sprintf("%+.4f", t.PnL),
			win,
		)
	}
	table.Render()

	m := res.Metrics
	fmt.Printf("\nbalance    %.2f -> %.2f (pnl %+.2f)\n", res.InitialBalance, res.FinalBalance, m.TotalPnL)
	fmt.Printf("trades     %d  win rate %.1f%%\n", m.TotalTrades, m.WinRate)
	fmt.Printf("avg win    %.4f  avg loss %.4f  profit factor %.2f\n", m.AvgWin, m.AvgLoss, m.ProfitFactor)
	fmt.Printf("sharpe     %.3f  max drawdown %.2f%%  expectancy %.4f\n", m.SharpeRatio, m.MaxDrawdown, m.Expectancy)
}
