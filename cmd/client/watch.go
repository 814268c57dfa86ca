// Package main – watch subcommand: live view of one datatype rendered with bubbletea + lipgloss.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/i-melnichenko/riak-wire/internal/command"
	"github.com/i-melnichenko/riak-wire/internal/datatype"
	"github.com/i-melnichenko/riak-wire/internal/operation"
	clustergrpc "github.com/i-melnichenko/riak-wire/internal/transport/grpc/cluster"
)

const defaultWatchInterval = time.Second

// ---- Bubbletea messages -----------------------------------------------------

type tickMsg time.Time

type snapshotMsg struct {
	view    datatypeView
	err     error
	latency time.Duration
	ts      time.Time
}

// ---- Lipgloss styles --------------------------------------------------------

type uiStyles struct {
	dotOK       lipgloss.Style
	dotErr      lipgloss.Style
	dotWaiting  lipgloss.Style
	dotSelected lipgloss.Style
	path        lipgloss.Style
	kindCounter lipgloss.Style
	kindSet     lipgloss.Style
	kindReg     lipgloss.Style
	kindFlag    lipgloss.Style
	kindMap     lipgloss.Style
	value       lipgloss.Style
	tableHeader lipgloss.Style
	appHeader   lipgloss.Style
	tsStyle     lipgloss.Style
	footer      lipgloss.Style
	divider     lipgloss.Style
	alertsHdr   lipgloss.Style
	errorKind   lipgloss.Style
	sumDim      lipgloss.Style
	sumSize     lipgloss.Style
	sumErrors   lipgloss.Style
	ctxLabel    lipgloss.Style
	ctxValue    lipgloss.Style
}

var styles = buildStyles()

func buildStyles() uiStyles {
	// "1"=red  "2"=green  "3"=yellow  "4"=blue  "5"=magenta  "6"=cyan
	// "7"=white  "8"=bright-black
	return uiStyles{
		dotOK:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		dotErr:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		dotWaiting:  lipgloss.NewStyle().Faint(true),
		dotSelected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		path:        lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		kindCounter: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		kindSet:     lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		kindReg:     lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		kindFlag:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		kindMap:     lipgloss.NewStyle().Faint(true),
		value:       lipgloss.NewStyle(),
		tableHeader: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")).Background(lipgloss.Color("8")),
		appHeader:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		tsStyle:     lipgloss.NewStyle().Faint(true),
		footer:      lipgloss.NewStyle().Faint(true),
		divider:     lipgloss.NewStyle().Faint(true),
		alertsHdr:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		errorKind:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		sumDim:      lipgloss.NewStyle().Faint(true),
		sumSize:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		sumErrors:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		ctxLabel:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		ctxValue:    lipgloss.NewStyle().Faint(true),
	}
}

// ---- Rendering --------------------------------------------------------------

func renderKindCell(k datatype.Kind, width int) string {
	padded := fmt.Sprintf("%-*s", width, shorten(k.String(), width))
	switch k {
	case datatype.KindCounter:
		return styles.kindCounter.Render(padded)
	case datatype.KindSet:
		return styles.kindSet.Render(padded)
	case datatype.KindRegister:
		return styles.kindReg.Render(padded)
	case datatype.KindFlag:
		return styles.kindFlag.Render(padded)
	default:
		return styles.kindMap.Render(padded)
	}
}

// makeTableRow builds the single-line string for one datatype row.
func makeTableRow(r viewRow, pathWidth, valueWidth int, selected bool) string {
	marker := "  "
	if selected {
		marker = styles.dotSelected.Render("▶") + " "
	}
	return marker +
		styles.path.Render(fmt.Sprintf("%-*s", pathWidth, shorten(r.path, pathWidth))) +
		" " + renderKindCell(r.kind, 8) +
		" " + styles.value.Render(shorten(r.value, valueWidth))
}

func renderHeader(pathWidth, contentWidth int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-2s", "")
	fmt.Fprintf(&b, "%-*s", pathWidth, headerLabel("PATH", pathWidth))
	fmt.Fprintf(&b, " %-8s", "TYPE")
	fmt.Fprintf(&b, " %s", "VALUE")
	return styles.tableHeader.Width(contentWidth).MaxWidth(contentWidth).Render(b.String())
}

// renderSummary returns the "● [12 size] [3 rows] ..." line.
func renderSummary(m watchModel) string {
	dot := styles.dotWaiting.Render("·")
	switch {
	case m.err != nil:
		dot = styles.dotErr.Render("●")
	case m.hasView:
		dot = styles.dotOK.Render("●")
	}
	bracket := func(st lipgloss.Style, label string, v string) string {
		d := styles.sumDim
		return d.Render("[") + st.Render(v) + d.Render(" "+label+"]")
	}
	return dot + " " + strings.Join([]string{
		bracket(styles.sumSize, sizeLabel(m.kind), fmt.Sprintf("%d", m.view.size)),
		bracket(lipgloss.NewStyle(), "rows", fmt.Sprintf("%d", len(m.view.rows))),
		bracket(lipgloss.NewStyle(), "polls", fmt.Sprintf("%d", m.polls)),
		bracket(styles.sumErrors, "errors", fmt.Sprintf("%d", m.errCount)),
		bracket(lipgloss.NewStyle(), "latency", m.latency.Round(time.Microsecond).String()),
	}, " ")
}

func sizeLabel(k datatype.Kind) string {
	if k == datatype.KindCounter {
		return "value"
	}
	return "entries"
}

// ---- Bubbletea model --------------------------------------------------------

type fetchFunc func(ctx context.Context) (datatypeView, error)

// sizeSink receives the watched size after every successful poll.
type sizeSink interface {
	SetWatchedSize(location, datatype string, size int64)
}

type watchModel struct {
	loc      command.Location
	kind     datatype.Kind
	fetch    fetchFunc
	sink     sizeSink
	timeout  time.Duration
	interval time.Duration

	view     datatypeView
	hasView  bool
	err      error
	errCount int
	polls    int
	latency  time.Duration
	ts       time.Time

	width     int
	height    int
	cursor    int
	scrollOff int
}

func newWatchModel(loc command.Location, kind datatype.Kind, fetch fetchFunc, sink sizeSink, timeout, interval time.Duration) watchModel {
	return watchModel{
		loc:      loc,
		kind:     kind,
		fetch:    fetch,
		sink:     sink,
		timeout:  timeout,
		interval: interval,
		width:    100,
		height:   30,
	}
}

func (m watchModel) Init() tea.Cmd {
	// snapshotMsg schedules the next tick, so exactly one poll is in flight.
	return m.pollCmd()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case tickMsg:
		return m, m.pollCmd()

	case snapshotMsg:
		m.polls++
		m.ts = msg.ts
		m.latency = msg.latency
		m.err = msg.err
		if msg.err != nil {
			m.errCount++
		} else {
			m.view = msg.view
			m.hasView = true
			if m.sink != nil {
				m.sink.SetWatchedSize(m.loc.String(), m.kind.String(), msg.view.size)
			}
		}
		m.cursor = clampInt(m.cursor, 0, maxInt(0, len(m.view.rows)-1))
		m.clampScroll()
		tickFn := func(t time.Time) tea.Msg { return tickMsg(t) }
		return m, tea.Tick(m.interval, tickFn)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			m.moveCursor(-1)
		case "down", "j":
			m.moveCursor(1)
		}
	}
	return m, nil
}

func (m watchModel) View() string {
	contentWidth := m.width - 2
	if contentWidth <= 0 {
		contentWidth = 80
	}
	pathWidth := m.pathWidth(contentWidth)
	valueWidth := maxInt(8, contentWidth-pathWidth-12)

	var b strings.Builder

	b.WriteString("  ")
	b.WriteString(styles.appHeader.Render(fmt.Sprintf("Watch %s %s", m.kind, m.loc)))
	b.WriteString("  ")
	if !m.ts.IsZero() {
		b.WriteString(styles.tsStyle.Render(m.ts.Format(time.RFC3339)))
	}
	b.WriteString("\n")

	b.WriteString(renderSummary(m))
	b.WriteString("\n\n")

	b.WriteString(renderHeader(pathWidth, contentWidth))
	b.WriteString("\n")

	start := m.scrollOff
	end := minInt(start+m.visibleRowCount(), len(m.view.rows))
	for i := start; i < end; i++ {
		b.WriteString(makeTableRow(m.view.rows[i], pathWidth, valueWidth, i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(styles.ctxLabel.Render("context:"))
	b.WriteString(" ")
	ctxText := "-"
	if len(m.view.context) > 0 {
		ctxText = hex.EncodeToString(m.view.context)
	}
	b.WriteString(styles.ctxValue.Render(shorten(ctxText, maxInt(10, contentWidth-12))))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.divider.Render(strings.Repeat("-", contentWidth)))
		b.WriteString("\n")
		b.WriteString(styles.alertsHdr.Render("Last error"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s %s",
			styles.dotErr.Render("●"),
			styles.errorKind.Render(errorKind(m.err)),
			shorten(oneLineErr(m.err), maxInt(20, contentWidth-16)),
		))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(styles.footer.Render("↑/↓ scroll · q to exit"))

	// Pad to terminal height so a shorter frame overwrites stale lines.
	out := b.String()
	if m.height > 0 {
		lines := strings.Split(out, "\n")
		for len(lines) < m.height {
			lines = append(lines, "")
		}
		return strings.Join(lines, "\n")
	}
	return out
}

// ---- Model helpers ----------------------------------------------------------

func (m watchModel) pathWidth(contentWidth int) int {
	longest := len("PATH")
	for _, r := range m.view.rows {
		longest = maxInt(longest, len(r.path))
	}
	return clampInt(longest, 4, maxInt(4, contentWidth/2))
}

func (m *watchModel) moveCursor(delta int) {
	if len(m.view.rows) == 0 {
		return
	}
	m.cursor = clampInt(m.cursor+delta, 0, len(m.view.rows)-1)
	m.clampScroll()
}

func (m *watchModel) clampScroll() {
	visRows := m.visibleRowCount()
	if m.cursor < m.scrollOff {
		m.scrollOff = m.cursor
	} else if m.cursor >= m.scrollOff+visRows {
		m.scrollOff = m.cursor - visRows + 1
	}
	if m.scrollOff < 0 {
		m.scrollOff = 0
	}
}

func (m watchModel) visibleRowCount() int {
	// title, summary, blank, header, blank, context, blank, footer, plus the
	// three-line error section.
	return maxInt(2, m.height-11)
}

func (m watchModel) pollCmd() tea.Cmd {
	fetch := m.fetch
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		v, err := fetch(ctx)
		return snapshotMsg{view: v, err: err, latency: time.Since(start), ts: time.Now()}
	}
}

func cmdWatch(cl *clustergrpc.ClusterClient, kind datatype.Kind, loc command.Location, ff *fetchFlags, inst instruments, sink sizeSink, timeout, interval time.Duration) error {
	fetch := func(ctx context.Context) (datatypeView, error) {
		return fetchView(ctx, cl, kind, loc, ff.opts, inst)
	}
	p := tea.NewProgram(newWatchModel(loc, kind, fetch, sink, timeout, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// ---- Pure helpers -----------------------------------------------------------

func errorKind(err error) string {
	var mismatch *datatype.TypeMismatchError
	var serverErr *operation.ServerError
	switch {
	case isNotFound(err):
		return "NOT_FOUND"
	case errors.As(err, &mismatch):
		return "TYPE_MISMATCH"
	case errors.As(err, &serverErr):
		return "SERVER"
	case errors.Is(err, clustergrpc.ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return "CANCELED"
	default:
		return "ERROR"
	}
}

func shorten(s string, n int) string {
	if n <= 0 {
		return s
	}
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func headerLabel(label string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(label) <= width {
		return label
	}
	return label[:width]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
