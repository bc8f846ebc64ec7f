package models

// SignalRequest asks for an on-demand signal from the latest N bars.
type SignalRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
	Bars  int    `query:"bars" json:"bars" default:"200" validate:"gte=50,lte=5000"`
}

// RecentSignalsRequest pages through recently dispatched signals.
type RecentSignalsRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

// BarsRequest reads stored bars for an asset and time range.
// From/To accept RFC3339 or unix seconds; empty means open-ended.
type BarsRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}

// BacktestRequest runs a backtest over stored bars.
type BacktestRequest struct {
	Asset          string  `json:"asset" validate:"required"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	InitialBalance float64 `json:"initialBalance" default:"10000" validate:"gt=0"`
	SignalEvery    int     `json:"signalEvery" default:"15" validate:"gte=1,lte=500"`
}
