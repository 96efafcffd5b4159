package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pair-analytics/src/models"
)

// restTrade is one element of GET /api/v3/trades.
type restTrade struct {
	ID           int64  `json:"id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	Time         int64  `json:"time"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

// tradeEvent is the payload of a <symbol>@trade stream. Keys differing only
// in case ("e"/"E", "m"/"M") each need a field or decoding folds them.
type tradeEvent struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Qty          string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
	Ignore       bool   `json:"M"`
}

// streamEnvelope wraps every message on a combined stream.
type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// -----------------------------------------------------------------------------

func newTick(symbol, price, qty string, tradeMs int64) (models.MTick, error) {
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return models.MTick{}, fmt.Errorf("bad price %q: %w", price, err)
	}
	q, err := strconv.ParseFloat(qty, 64)
	if err != nil {
		return models.MTick{}, fmt.Errorf("bad quantity %q: %w", qty, err)
	}
	if p <= 0 || q < 0 {
		return models.MTick{}, fmt.Errorf("invalid trade price=%f qty=%f", p, q)
	}
	return models.MTick{
		Symbol:    strings.ToUpper(symbol),
		Timestamp: time.UnixMilli(tradeMs).UTC(),
		Price:     p,
		Quantity:  q,
	}, nil
}

// ParseRESTTrades decodes a trades response and keeps those newer than
// lastID, oldest first. It returns the highest trade id seen.
func ParseRESTTrades(symbol string, data []byte, lastID int64) ([]models.MTick, int64, error) {
	var trades []restTrade
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, lastID, fmt.Errorf("json unmarshal failed: %w", err)
	}

	maxID := lastID
	ticks := make([]models.MTick, 0, len(trades))
	for _, tr := range trades {
		if tr.ID <= lastID {
			continue
		}
		if tr.ID > maxID {
			maxID = tr.ID
		}
		tick, err := newTick(symbol, tr.Price, tr.Qty, tr.Time)
		if err != nil {
			continue
		}
		ticks = append(ticks, tick)
	}
	return ticks, maxID, nil
}

// ParseStreamMessage decodes one combined-stream trade message. Non-trade
// events return ok=false.
func ParseStreamMessage(data []byte) (models.MTick, bool, error) {
	var env streamEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.MTick{}, false, fmt.Errorf("json unmarshal failed: %w", err)
	}
	payload := []byte(env.Data)
	if len(payload) == 0 {
		payload = data
	}

	var ev tradeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return models.MTick{}, false, fmt.Errorf("json unmarshal failed: %w", err)
	}
	if ev.EventType != "trade" {
		return models.MTick{}, false, nil
	}

	tick, err := newTick(ev.Symbol, ev.Price, ev.Qty, ev.TradeTime)
	if err != nil {
		return models.MTick{}, false, err
	}
	return tick, true, nil
}

// StreamNames builds the combined stream list for symbols.
func StreamNames(symbols []string) string {
	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		names = append(names, strings.ToLower(s)+"@trade")
	}
	return strings.Join(names, "/")
}
