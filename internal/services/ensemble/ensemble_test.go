package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"QuantPulse/internal/domain/models"
)

func out(dir models.Direction, conf float64) models.PredictorOutput {
	return models.PredictorOutput{Direction: dir, Confidence: conf}
}

func TestMajorityVote(t *testing.T) {
	buy, sell, hold := models.DirectionBuy, models.DirectionSell, models.DirectionHold

	cases := []struct {
		name    string
		a, b, c models.Direction
		want    models.Direction
	}{
		{"unanimous buy", buy, buy, buy, buy},
		{"two buys", buy, buy, hold, buy},
		{"two sells", sell, hold, sell, sell},
		{"three-way split", buy, sell, hold, hold},
		{"all hold", hold, hold, hold, hold},
		{"buy vs sell vs sell", buy, sell, sell, sell},
		{"lone buy carries", buy, hold, hold, buy},
		{"lone sell carries", hold, sell, hold, sell},
		{"buy sell tie", buy, sell, hold, hold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Combine(out(tc.a, 70), out(tc.b, 70), out(tc.c, 70))
			assert.Equal(t, tc.want, d.Direction)
		})
	}
}

func TestConfidenceIgnoresAgent(t *testing.T) {
	d := Combine(out(models.DirectionBuy, 80), out(models.DirectionBuy, 60), out(models.DirectionBuy, 5))
	assert.Equal(t, 70.0, d.Confidence)
}

func TestConfidenceClamp(t *testing.T) {
	d := Combine(out(models.DirectionHold, 10), out(models.DirectionHold, 10), out(models.DirectionHold, 0))
	assert.Equal(t, 55.0, d.Confidence)

	d = Combine(out(models.DirectionBuy, 100), out(models.DirectionBuy, 100), out(models.DirectionBuy, 0))
	assert.Equal(t, 95.0, d.Confidence)
}

func TestSizeStaircaseBoundaries(t *testing.T) {
	cases := []struct {
		conf float64
		want models.PositionSize
	}{
		{55, models.SizeNone},
		{59.9, models.SizeNone},
		{60, models.SizeLow},
		{69.9, models.SizeLow},
		{70, models.SizeMedium},
		{79.9, models.SizeMedium},
		{80, models.SizeHigh},
		{95, models.SizeHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SizeForConfidence(tc.conf), "conf=%v", tc.conf)
	}
}

func TestSizeHintNeverOverrides(t *testing.T) {
	agent := models.PredictorOutput{
		Direction:  models.DirectionBuy,
		Confidence: 99,
		SizeHint:   models.SizeHigh,
	}
	// mean confidence 62.5 lands in the low tier whatever the agent hints
	d := Combine(out(models.DirectionBuy, 65), out(models.DirectionBuy, 60), agent)
	assert.Equal(t, models.SizeLow, d.PositionSize)
}
