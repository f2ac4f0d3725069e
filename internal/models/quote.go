package models

import "time"

// Quote is the latest price snapshot for a symbol. It is replaced
// wholesale on every refresh, never partially mutated.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	PrevClose float64   `json:"prevClose"`
	Timestamp time.Time `json:"timestamp"`
}

// Change returns the absolute change versus the previous close.
func (q Quote) Change() float64 {
	if q.PrevClose == 0 {
		return 0
	}
	return q.Price - q.PrevClose
}

// ChangePercent returns the percent change versus the previous close.
func (q Quote) ChangePercent() float64 {
	if q.PrevClose == 0 {
		return 0
	}
	return (q.Price - q.PrevClose) / q.PrevClose * 100
}

// PricePoint is one sample in a history series.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// HistorySeries is a time-ordered series of closing prices for one
// symbol over one chart period. Points are strictly ascending by
// timestamp and the length is bounded by MaxHistoryPoints.
type HistorySeries struct {
	Symbol    string       `json:"symbol"`
	Period    ChartPeriod  `json:"period"`
	Points    []PricePoint `json:"points"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

// MaxHistoryPoints caps the stored series length per symbol to bound
// memory and render cost. Longer upstream responses keep the tail.
const MaxHistoryPoints = 500

// Closes returns just the price values, in order.
func (h HistorySeries) Closes() []float64 {
	out := make([]float64, len(h.Points))
	for i, p := range h.Points {
		out[i] = p.Price
	}
	return out
}
