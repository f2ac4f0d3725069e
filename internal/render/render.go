package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tickerpane/internal/pricecache"
)

// SparkPoints is the fixed sparkline resolution. Longer series are
// downsampled to this many points before normalization.
const SparkPoints = 40

// Row states.
const (
	StateLoading = "loading" // symbol never fetched
	StateOK      = "ok"
	StateStale   = "stale" // last fetch failed, old data shown
)

// Color classes. Zero change counts as gain, not loss.
const (
	ColorGain = "gain"
	ColorLoss = "loss"
)

// Sparkline is a normalized mini-chart: points in [0,1], oldest first,
// plus the previous close as a reference level on the same scale
// (-1 when no previous close is known).
type Sparkline struct {
	Points         []float64
	PrevCloseLevel float64
}

// Row is one display line of the popup, fully derived. The UI shell
// renders rows without touching domain state.
type Row struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	State      string    `json:"state"`
	Price      float64   `json:"price"`
	Change     float64   `json:"change"`
	ChangePct  float64   `json:"changePct"`
	Color      string    `json:"color"`
	ColorHex   string    `json:"colorHex"`
	PriceText  string    `json:"priceText"`
	ChangeText string    `json:"changeText"`
	Spark      Sparkline `json:"-"`
}

var printer = message.NewPrinter(language.English)

// themeColors maps a theme name to gain/loss hex values. Unknown
// themes fall back to dark.
var themeColors = map[string][2]string{
	"dark":  {"#4CAF50", "#F44336"},
	"light": {"#2E7D32", "#C62828"},
}

// BuildRows derives the display rows for the watchlist, in order.
// It is a pure function of its inputs: the same snapshot, symbol order
// and theme always produce identical rows.
func BuildRows(snapshot map[string]pricecache.Entry, symbols []string, theme string) []Row {
	hex, ok := themeColors[theme]
	if !ok {
		hex = themeColors["dark"]
	}

	rows := make([]Row, 0, len(symbols))
	for _, sym := range symbols {
		entry, cached := snapshot[sym]
		if !cached || entry.Quote == nil {
			rows = append(rows, Row{
				Symbol:    sym,
				State:     StateLoading,
				PriceText: "--",
			})
			continue
		}

		q := entry.Quote
		state := StateOK
		if entry.Failed {
			state = StateStale
		}

		change := q.Change()
		color, colorHex := ColorGain, hex[0]
		if change < 0 {
			color, colorHex = ColorLoss, hex[1]
		}

		row := Row{
			Symbol:     sym,
			Name:       truncateName(q.Name),
			State:      state,
			Price:      q.Price,
			Change:     change,
			ChangePct:  q.ChangePercent(),
			Color:      color,
			ColorHex:   colorHex,
			PriceText:  printer.Sprintf("%.2f", q.Price),
			ChangeText: changeText(change, q.ChangePercent()),
		}
		if entry.History != nil && len(entry.History.Points) >= 2 {
			row.Spark = buildSparkline(entry.History.Closes(), q.PrevClose)
		}
		rows = append(rows, row)
	}
	return rows
}

func changeText(change, pct float64) string {
	sign := ""
	if change >= 0 {
		sign = "+"
	}
	return printer.Sprintf("%s%.2f (%s%.2f%%)", sign, change, sign, pct)
}

func truncateName(name string) string {
	r := []rune(name)
	if len(r) > 25 {
		return string(r[:22]) + "..."
	}
	return name
}

// buildSparkline downsamples closes to at most SparkPoints bucket
// means and normalizes them to [0,1]. The previous close participates
// in the value range (as in the chart it is drawn as a reference
// line), so the series and the marker share one scale.
func buildSparkline(closes []float64, prevClose float64) Sparkline {
	pts := downsample(closes, SparkPoints)

	min, max := pts[0], pts[0]
	for _, v := range pts {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if prevClose > 0 {
		if prevClose < min {
			min = prevClose
		}
		if prevClose > max {
			max = prevClose
		}
	}

	span := max - min
	out := Sparkline{Points: make([]float64, len(pts)), PrevCloseLevel: -1}
	if span == 0 {
		for i := range out.Points {
			out.Points[i] = 0.5
		}
		if prevClose > 0 {
			out.PrevCloseLevel = 0.5
		}
		return out
	}

	for i, v := range pts {
		out.Points[i] = (v - min) / span
	}
	if prevClose > 0 {
		out.PrevCloseLevel = (prevClose - min) / span
	}
	return out
}

// downsample reduces a series to at most n points by averaging equal
// buckets. Series already short enough pass through unchanged.
func downsample(in []float64, n int) []float64 {
	if len(in) <= n {
		return append([]float64(nil), in...)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := i * len(in) / n
		hi := (i + 1) * len(in) / n
		sum := 0.0
		for _, v := range in[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
