package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"enclave-sdk/internal/models"
)

// PriceWire is one quote from GET /api/prices or a price_update push.
// Price and change arrive as JSON numbers from the REST endpoint and as
// strings on the push channel.
type PriceWire struct {
	AssetID   string          `json:"asset_id"`
	Symbol    string          `json:"symbol,omitempty"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change_24h"`
	Date      FlexTime        `json:"date"`
	Timestamp FlexTime        `json:"timestamp"`
}

// PricesResponse is the body of GET /api/prices?symbols=.
type PricesResponse struct {
	Prices    []PriceWire `json:"prices"`
	Timestamp int64       `json:"timestamp"`
}

// ToPrice maps a quote. Asset ids are normalized to lower-case 0x hex.
func ToPrice(w PriceWire) models.Price {
	id := strings.ToLower(strings.TrimSpace(w.AssetID))
	if id != "" && !strings.HasPrefix(id, "0x") {
		id = "0x" + id
	}
	at := w.Date.Time
	if at.IsZero() {
		at = w.Timestamp.Time
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return models.Price{
		AssetID:   id,
		Symbol:    w.Symbol,
		Price:     w.Price.String(),
		Change24h: w.Change24h.String(),
		UpdatedAt: at,
	}
}
