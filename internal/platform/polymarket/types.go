package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from JSON number or numeric string; the Gamma API
// sends volume and liquidity as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(n)
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Category      string    `json:"category"`
	Active        flexBool  `json:"active"`
	Closed        bool      `json:"closed"`
	OutcomePrices string    `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.45\",\"0.48\"]"
	ClobTokenIDs  string    `json:"clobTokenIds"`  // JSON-encoded: e.g. "[\"123\",\"456\"]"
	Volume24h     flexFloat `json:"volume24hr"`
	Liquidity     flexFloat `json:"liquidity"`
	EndDateISO    string    `json:"endDate"`
}

// Tradable reports whether the market is open for trading. The API marks
// dead markets either with closed=true or active=false.
func (m *APIMarket) Tradable() bool {
	return !m.Closed && bool(m.Active)
}

// ToDomainMarket converts an APIMarket to a domain.Market. Outcome prices
// arrive as probabilities in [0,1] and are scaled x100 into the canonical
// 0-100 model; a missing category defaults to "general".
func (m *APIMarket) ToDomainMarket() domain.Market {
	out := domain.Market{
		ID:        m.ID,
		Question:  m.Question,
		Category:  strings.ToLower(strings.TrimSpace(m.Category)),
		Volume24h: float64(m.Volume24h),
		Liquidity: float64(m.Liquidity),
		FetchedAt: time.Now().UTC(),
	}
	if out.Category == "" {
		out.Category = "general"
	}

	if prices := decodeStringArray(m.OutcomePrices); len(prices) >= 2 {
		if p, err := strconv.ParseFloat(prices[0], 64); err == nil {
			out.YesPrice = p * 100
		}
		if p, err := strconv.ParseFloat(prices[1], 64); err == nil {
			out.NoPrice = p * 100
		}
	}
	if tokens := decodeStringArray(m.ClobTokenIDs); len(tokens) >= 2 {
		out.YesToken = tokens[0]
		out.NoToken = tokens[1]
	}
	if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
		out.EndDate = t
	}
	return out
}

// decodeStringArray parses the Gamma API's JSON-encoded-string-array fields
// ("[\"a\",\"b\"]"). Returns nil on malformed input.
func decodeStringArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success    bool   `json:"success"`
	ErrorMsg   string `json:"errorMsg,omitempty"`
	OrderID    string `json:"orderID,omitempty"`
	Status     string `json:"status,omitempty"`
	MakingAmt  string `json:"makingAmount,omitempty"`
	TakingAmt  string `json:"takingAmount,omitempty"`
	AvgPrice   string `json:"avgPrice,omitempty"`
	TransactID string `json:"transactID,omitempty"`
}

// ToDomainOrderResult converts the API response to a domain.OrderResult.
// The venue reports "matched" for immediately-filled orders and "live" for
// resting ones; anything else maps to SUBMITTED until the status checker
// resolves it.
func (r *APIOrderResult) ToDomainOrderResult() domain.OrderResult {
	out := domain.OrderResult{
		Success:      r.Success,
		SubmissionID: r.OrderID,
		Message:      r.ErrorMsg,
	}
	switch strings.ToLower(r.Status) {
	case "matched":
		out.Status = domain.TradeFilled
	case "live", "delayed":
		out.Status = domain.TradeSubmitted
	default:
		if r.Success {
			out.Status = domain.TradeSubmitted
		} else {
			out.Status = domain.TradeFailed
		}
	}
	if f, err := strconv.ParseFloat(r.MakingAmt, 64); err == nil {
		out.FillAmount = f
	}
	if f, err := strconv.ParseFloat(r.AvgPrice, 64); err == nil {
		// Venue prices are 0-1 probabilities; scale to the canonical model.
		out.AvgFillPrice = f * 100
	}
	return out
}

// WSCommand is a subscription command sent over the CLOB WebSocket.
type WSCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Assets  []string `json:"assets_ids"`
}

// WSPriceChange is an incremental price update from the market channel.
type WSPriceChange struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Timestamp string `json:"timestamp"`
}
