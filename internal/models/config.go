package models

// Config is the persisted user configuration. Field names and defaults
// mirror the on-disk JSON document; unknown fields in the file are
// ignored, missing fields are filled from DefaultConfig.
type Config struct {
	Watchlist       []string    `json:"watchlist"`
	RefreshInterval int         `json:"refresh_interval"` // seconds
	ChartPeriod     ChartPeriod `json:"chart_period"`
	PopupPosition   [2]int      `json:"popup_position"`
	PopupSize       [2]int      `json:"popup_size"`
	Theme           string      `json:"theme"`
}

// DefaultConfig returns the documented defaults: the four major
// indices, 1 minute refresh, 1 month chart, dark theme.
func DefaultConfig() Config {
	return Config{
		Watchlist:       []string{"^DJI", "^IXIC", "^GSPC", "^NYA"},
		RefreshInterval: 60,
		ChartPeriod:     Period1Mo,
		PopupPosition:   [2]int{100, 100},
		PopupSize:       [2]int{320, 400},
		Theme:           "dark",
	}
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing the watchlist slice.
func (c Config) Clone() Config {
	out := c
	out.Watchlist = append([]string(nil), c.Watchlist...)
	return out
}
