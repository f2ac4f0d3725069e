package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tickerpane/internal/models"
	"tickerpane/internal/pricecache"
	"tickerpane/internal/render"
	"tickerpane/internal/scheduler"
	"tickerpane/internal/watchlist"
)

// Styles.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	settingsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	symbolStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	nameStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	gainStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	staleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	selectedBG    = lipgloss.Color("236")
)

var sparkGlyphs = []rune("▁▂▃▄▅▆▇█")

// CycleMsg is delivered when the scheduler completes a refresh cycle.
type CycleMsg scheduler.CycleResult

// FocusMsg is injected by the control server when a second launch asks
// the running instance to come forward.
type FocusMsg struct{}

// Model is the popup shell. It owns only presentation state; all
// domain state lives in the manager, cache, and scheduler, and every
// user command is forwarded to them.
type Model struct {
	mgr   *watchlist.Manager
	cache *pricecache.Cache
	sched *scheduler.Scheduler
	theme string

	rows       []render.Row
	selected   int
	input      textinput.Model
	adding     bool
	width      int
	height     int
	lastUpdate time.Time
	status     string
}

func NewModel(mgr *watchlist.Manager, cache *pricecache.Cache, sched *scheduler.Scheduler) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter symbol (e.g. AAPL)"
	ti.CharLimit = 12
	ti.Width = 24

	return Model{
		mgr:   mgr,
		cache: cache,
		sched: sched,
		theme: mgr.Config().Theme,
		input: ti,
		rows:  render.BuildRows(cache.Snapshot(), mgr.Symbols(), mgr.Config().Theme),
	}
}

func waitForCycle(ch <-chan scheduler.CycleResult) tea.Cmd {
	return func() tea.Msg {
		return CycleMsg(<-ch)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForCycle(m.sched.Updates())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case CycleMsg:
		m.lastUpdate = msg.CompletedAt
		m.rebuild()
		return m, waitForCycle(m.sched.Updates())

	case FocusMsg:
		m.status = "focus requested by another launch"
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Persist the popup size the way the desktop shell persists
		// window geometry; position has no terminal equivalent.
		pos := m.mgr.Config().PopupPosition
		m.mgr.SetWindowGeometry(pos, [2]int{msg.Width, msg.Height})
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		sym := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.SetValue("")
		m.input.Blur()
		if sym != "" {
			if m.mgr.AddSymbol(sym) {
				m.sched.RefreshNow()
				m.status = ""
			} else {
				m.status = "already on watchlist"
			}
			m.rebuild()
		}
		return m, nil
	case "esc":
		m.adding = false
		m.input.SetValue("")
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "a":
		m.adding = true
		m.input.Focus()
		return m, textinput.Blink

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
		return m, nil

	case "K", "shift+up":
		if sym := m.selectedSymbol(); sym != "" && m.mgr.MoveSymbol(sym, -1) {
			m.selected--
			m.rebuild()
		}
		return m, nil

	case "J", "shift+down":
		if sym := m.selectedSymbol(); sym != "" && m.mgr.MoveSymbol(sym, 1) {
			m.selected++
			m.rebuild()
		}
		return m, nil

	case "x", "d", "delete":
		if sym := m.selectedSymbol(); sym != "" {
			m.mgr.RemoveSymbol(sym)
			m.cache.Drop(sym)
			m.rebuild()
			m.sched.RefreshNow()
		}
		return m, nil

	case "i":
		next := nextInterval(m.mgr.Interval())
		if err := m.mgr.SetInterval(next); err == nil {
			m.status = "refresh every " + models.IntervalLabel(next)
		}
		return m, nil

	case "p":
		next := nextPeriod(m.mgr.ChartPeriod())
		if err := m.mgr.SetChartPeriod(next); err == nil {
			m.status = "chart period " + next.Label()
			m.sched.RefreshNow()
		}
		return m, nil

	case "r":
		m.sched.RefreshNow()
		m.status = "refreshing..."
		return m, nil
	}

	return m, nil
}

func (m *Model) rebuild() {
	m.rows = render.BuildRows(m.cache.Snapshot(), m.mgr.Symbols(), m.theme)
	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) selectedSymbol() string {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return ""
	}
	return m.rows[m.selected].Symbol
}

func nextInterval(cur int) int {
	for i, v := range models.RefreshIntervals {
		if v == cur {
			return models.RefreshIntervals[(i+1)%len(models.RefreshIntervals)]
		}
	}
	return models.RefreshIntervals[0]
}

func nextPeriod(cur models.ChartPeriod) models.ChartPeriod {
	for i, p := range models.ChartPeriods {
		if p == cur {
			return models.ChartPeriods[(i+1)%len(models.ChartPeriods)]
		}
	}
	return models.ChartPeriods[0]
}

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 48
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(padOrTrunc(" Stock Ticker", width)))
	b.WriteString("\n")

	settings := fmt.Sprintf(" Refresh: %s   Chart: %s",
		models.IntervalLabel(m.mgr.Interval()), m.mgr.ChartPeriod().Label())
	b.WriteString(settingsStyle.Render(padOrTrunc(settings, width)))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("  watchlist is empty, press a to add a symbol"))
		b.WriteString("\n")
	}

	for i, row := range m.rows {
		b.WriteString(m.renderRow(row, i == m.selected, width))
	}

	if m.adding {
		b.WriteString("\n  Add: " + m.input.View() + "\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(dimStyle.Render("  " + m.status))
		b.WriteString("\n")
	}

	updated := "--:--:--"
	if !m.lastUpdate.IsZero() {
		updated = m.lastUpdate.Format("15:04:05")
	}
	footer := fmt.Sprintf(" a add  x remove  K/J move  i interval  p period  r refresh  q quit  │  updated %s", updated)
	b.WriteString(footerStyle.Render(padOrTrunc(footer, width)))

	return b.String()
}

func (m Model) renderRow(row render.Row, selected bool, width int) string {
	sym := symbolStyle
	if selected {
		sym = sym.Background(selectedBG)
	}

	var b strings.Builder

	switch row.State {
	case render.StateLoading:
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			sym.Render(fmt.Sprintf("%-8s", row.Symbol)),
			dimStyle.Render("loading...")))
		return b.String()
	}

	changeStyle := gainStyle
	if row.Color == render.ColorLoss {
		changeStyle = lossStyle
	}

	marker := ""
	if row.State == render.StateStale {
		marker = "  " + staleStyle.Render("[stale]")
	}

	b.WriteString(fmt.Sprintf("  %s  %s  %s  %s%s\n",
		sym.Render(fmt.Sprintf("%-8s", row.Symbol)),
		nameStyle.Render(fmt.Sprintf("%-25s", row.Name)),
		priceStyle.Render(fmt.Sprintf("%12s", row.PriceText)),
		changeStyle.Render(row.ChangeText),
		marker))

	if len(row.Spark.Points) > 0 {
		b.WriteString("            " + sparkline(row.Spark, changeStyle) + "\n")
	}

	return b.String()
}

// sparkline renders the normalized points as block glyphs. Columns at
// or above the previous-close level take the row's gain/loss color,
// columns below it stay dim.
func sparkline(s render.Sparkline, lineStyle lipgloss.Style) string {
	var b strings.Builder
	for _, v := range s.Points {
		idx := int(v*float64(len(sparkGlyphs)-1) + 0.5)
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkGlyphs) {
			idx = len(sparkGlyphs) - 1
		}
		glyph := string(sparkGlyphs[idx])
		if s.PrevCloseLevel >= 0 && v < s.PrevCloseLevel {
			b.WriteString(dimStyle.Render(glyph))
		} else {
			b.WriteString(lineStyle.Render(glyph))
		}
	}
	return b.String()
}

// padOrTrunc fits a line to the given display width. Widths are
// terminal cells, not bytes, so multibyte glyphs pad correctly.
func padOrTrunc(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s + strings.Repeat(" ", width-lipgloss.Width(s))
	}

	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if w+rw > width {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String() + strings.Repeat(" ", width-w)
}
