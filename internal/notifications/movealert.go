package notifications

import (
	"fmt"
	"math"
	"sync"

	"tickerpane/internal/models"
)

// MoveAlerter sends one webhook message per symbol when its daily
// change crosses the configured percent threshold, and re-arms once
// the move falls back under it.
type MoveAlerter struct {
	sender    *Sender
	threshold float64

	mu      sync.Mutex
	alerted map[string]bool
}

func NewMoveAlerter(sender *Sender, thresholdPercent float64) *MoveAlerter {
	return &MoveAlerter{
		sender:    sender,
		threshold: thresholdPercent,
		alerted:   make(map[string]bool),
	}
}

// Enabled reports whether alerting is configured at all.
func (m *MoveAlerter) Enabled() bool {
	return m != nil && m.threshold > 0
}

// CheckQuotes inspects one cycle's quotes. Intended as the scheduler's
// per-cycle hook.
func (m *MoveAlerter) CheckQuotes(quotes []models.Quote) {
	if !m.Enabled() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, q := range quotes {
		pct := q.ChangePercent()
		over := math.Abs(pct) >= m.threshold

		switch {
		case over && !m.alerted[q.Symbol]:
			m.alerted[q.Symbol] = true
			direction := "up"
			if pct < 0 {
				direction = "down"
			}
			m.sender.Send(fmt.Sprintf("%s %s %.2f%% on the day (%.2f)",
				q.Symbol, direction, math.Abs(pct), q.Price))
		case !over && m.alerted[q.Symbol]:
			delete(m.alerted, q.Symbol)
		}
	}
}
