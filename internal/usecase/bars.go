package usecase

import (
	"context"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
)

// BarsUseCase provides business logic for retrieving stored bars.
type BarsUseCase struct {
	reader domrepo.BarReader
}

func NewBarsUseCase(reader domrepo.BarReader) *BarsUseCase {
	return &BarsUseCase{reader: reader}
}

type GetBarsParams struct {
	Asset string
	From  time.Time
	To    time.Time
	Limit int
}

type GetBarsResult struct {
	Asset string
	From  time.Time
	To    time.Time
	Count int
	Bars  []models.Bar
}

func (uc *BarsUseCase) GetBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	if p.Asset == "" {
		return nil, fmt.Errorf("asset required")
	}
	if !p.To.IsZero() && p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 500
	}
	if p.Limit > 10000 {
		p.Limit = 10000
	}

	bars, err := uc.reader.GetBars(ctx, p.Asset, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}

	return &GetBarsResult{
		Asset: p.Asset,
		From:  p.From,
		To:    p.To,
		Count: len(bars),
		Bars:  bars,
	}, nil
}
