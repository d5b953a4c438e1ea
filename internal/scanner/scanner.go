// Package scanner computes the mispricing metric over a market batch and
// ranks actionable candidates. It is a pure transform: no network, no
// mutable state.
package scanner

import (
	"sort"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// Config holds the scanner thresholds.
type Config struct {
	MinSpreadPercent float64
	MinLiquidity     float64
	TwoSidedSpread   float64 // spread at which both legs are profitable
	PositionSizeUSD  float64 // used for the expected-profit estimate
}

// Scanner filters and ranks markets by spread.
type Scanner struct {
	cfg Config
}

// New creates a Scanner with the given thresholds.
func New(cfg Config) *Scanner {
	return &Scanner{cfg: cfg}
}

// Scan returns the opportunities found in markets, ordered descending by
// spread. Markets below the spread or liquidity gate are excluded. Ties on
// equal spread preserve input order, which is the provider's own volume
// ranking.
func (s *Scanner) Scan(markets []domain.Market) []domain.ArbitrageOpportunity {
	now := time.Now().UTC()

	opps := make([]domain.ArbitrageOpportunity, 0, len(markets))
	for _, m := range markets {
		spread := m.Spread()
		if spread < s.cfg.MinSpreadPercent || m.Liquidity < s.cfg.MinLiquidity {
			continue
		}
		opps = append(opps, domain.ArbitrageOpportunity{
			Market:          m,
			SpreadPercent:   spread,
			ExpectedProfit:  s.expectedProfit(spread),
			RecommendedSide: s.recommendSide(m, spread),
			DetectedAt:      now,
		})
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].SpreadPercent > opps[j].SpreadPercent
	})
	return opps
}

// recommendSide picks BOTH when the spread clears the two-sided threshold
// (buying both outcomes locks in the spread), otherwise the cheaper outcome.
func (s *Scanner) recommendSide(m domain.Market, spread float64) domain.Side {
	if spread >= s.cfg.TwoSidedSpread {
		return domain.SideBoth
	}
	return m.CheaperSide()
}

// expectedProfit estimates USD profit on the configured position size. For a
// spread of x percent, a dollar buying the pair returns 1/(1-x/100) at
// settlement; the estimate is the net gain on PositionSizeUSD.
func (s *Scanner) expectedProfit(spread float64) float64 {
	cost := 1 - spread/100
	if cost <= 0 {
		return s.cfg.PositionSizeUSD
	}
	return s.cfg.PositionSizeUSD * (1/cost - 1)
}
