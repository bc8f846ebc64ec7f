package models

import "time"

// TradeStatus is the lifecycle state of a simulated trade.
type TradeStatus string

const (
	TradeOpen      TradeStatus = "open"
	TradeClosed    TradeStatus = "closed"
	TradeCancelled TradeStatus = "cancelled"
)

// Trade is one simulated position taken by the backtest engine. Exit
// fields and PnL are only meaningful once Status is TradeClosed.
type Trade struct {
	ID         string      `json:"id"`
	Signal     Signal      `json:"signal"`
	EntryPrice float64     `json:"entryPrice"`
	EntryTime  time.Time   `json:"entryTime"`
	ExitPrice  float64     `json:"exitPrice,omitempty"`
	ExitTime   time.Time   `json:"exitTime,omitempty"`
	Size       float64     `json:"size"`
	PnL        float64     `json:"pnl"`
	IsWin      bool        `json:"isWin"`
	Status     TradeStatus `json:"status"`
}

// EquityPoint is one sample of the account balance over time.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// PerformanceMetrics summarizes a set of closed trades and the equity
// curve they produced. Every field is finite; degenerate inputs pin the
// affected ratio to 0.
type PerformanceMetrics struct {
	Accuracy     float64 `json:"accuracy"`
	TotalTrades  int     `json:"totalTrades"`
	WinRate      float64 `json:"winRate"`
	AvgWin       float64 `json:"avgWin"`
	AvgLoss      float64 `json:"avgLoss"`
	ProfitFactor float64 `json:"profitFactor"`
	SharpeRatio  float64 `json:"sharpeRatio"`
	MaxDrawdown  float64 `json:"maxDrawdown"`
	Expectancy   float64 `json:"expectancy"`
	TotalPnL     float64 `json:"totalPnl"`
}

// BacktestResult bundles everything a completed run produced.
type BacktestResult struct {
	Asset          string             `json:"asset"`
	InitialBalance float64            `json:"initialBalance"`
	FinalBalance   float64            `json:"finalBalance"`
	Trades         []Trade            `json:"trades"`
	Equity         []EquityPoint      `json:"equity"`
	Metrics        PerformanceMetrics `json:"metrics"`
}
