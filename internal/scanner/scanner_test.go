package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

func newTestScanner() *Scanner {
	return New(Config{
		MinSpreadPercent: 5,
		MinLiquidity:     1000,
		TwoSidedSpread:   10,
		PositionSizeUSD:  100,
	})
}

func makeMarket(id string, yes, no, liquidity float64) domain.Market {
	return domain.Market{
		ID:        id,
		Question:  "Will " + id + " resolve yes?",
		Liquidity: liquidity,
		YesPrice:  yes,
		NoPrice:   no,
		YesToken:  id + "-yes",
		NoToken:   id + "-no",
	}
}

func TestScan_FiltersAndRanks(t *testing.T) {
	markets := []domain.Market{
		makeMarket("narrow", 49, 49, 5000),  // 2% spread, below gate
		makeMarket("wide", 42, 43, 5000),    // 15% spread
		makeMarket("mid", 45, 48, 5000),     // 7% spread
		makeMarket("illiquid", 40, 40, 100), // 20% spread but thin
	}

	opps := newTestScanner().Scan(markets)

	require.Len(t, opps, 2)
	assert.Equal(t, "wide", opps[0].Market.ID)
	assert.Equal(t, "mid", opps[1].Market.ID)
	assert.InDelta(t, 15, opps[0].SpreadPercent, 1e-9)
	assert.InDelta(t, 7, opps[1].SpreadPercent, 1e-9)
}

func TestScan_TiesPreserveInputOrder(t *testing.T) {
	markets := []domain.Market{
		makeMarket("first", 45, 48, 5000),
		makeMarket("second", 46, 47, 5000),
		makeMarket("third", 44, 49, 5000),
	}

	opps := newTestScanner().Scan(markets)

	require.Len(t, opps, 3)
	assert.Equal(t, "first", opps[0].Market.ID)
	assert.Equal(t, "second", opps[1].Market.ID)
	assert.Equal(t, "third", opps[2].Market.ID)
}

func TestScan_RecommendedSide(t *testing.T) {
	tests := []struct {
		name   string
		market domain.Market
		want   domain.Side
	}{
		{"wide spread buys both", makeMarket("a", 42, 43, 5000), domain.SideBoth},
		{"narrow spread buys cheaper no", makeMarket("b", 50, 43, 5000), domain.SideNo},
		{"narrow spread buys cheaper yes", makeMarket("c", 43, 50, 5000), domain.SideYes},
		{"equal prices default to yes", makeMarket("d", 46.5, 46.5, 5000), domain.SideYes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opps := newTestScanner().Scan([]domain.Market{tt.market})
			require.Len(t, opps, 1)
			assert.Equal(t, tt.want, opps[0].RecommendedSide)
		})
	}
}

func TestScan_ExpectedProfit(t *testing.T) {
	// 10% spread: $100 buys a pair costing 0.90 per settled dollar, so the
	// position returns 100/0.9 and nets ~11.11.
	opps := newTestScanner().Scan([]domain.Market{makeMarket("m", 45, 45, 5000)})

	require.Len(t, opps, 1)
	assert.InDelta(t, 11.11, opps[0].ExpectedProfit, 0.01)
}

func TestScan_ExactThresholdIncluded(t *testing.T) {
	opps := newTestScanner().Scan([]domain.Market{makeMarket("edge", 47, 48, 1000)})

	require.Len(t, opps, 1)
	assert.InDelta(t, 5, opps[0].SpreadPercent, 1e-9)
}

func TestScan_Empty(t *testing.T) {
	assert.Empty(t, newTestScanner().Scan(nil))
}
