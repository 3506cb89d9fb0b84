package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/olliecrow/rec_availability_monitor/internal/availability"
	"github.com/olliecrow/rec_availability_monitor/internal/report"
)

// FetchFunc runs one pass of the availability pipeline. A non-nil report is
// shown even when err is set.
type FetchFunc func(context.Context) (*availability.Report, error)

type Options struct {
	Title     string
	Interval  time.Duration
	Timeout   time.Duration
	NoColor   bool
	AltScreen bool
	Fetch     FetchFunc
}

type Model struct {
	title    string
	interval time.Duration
	timeout  time.Duration
	fetch    FetchFunc

	width  int
	height int

	now time.Time

	fetching          bool
	fetches           int
	lastAttemptAt     time.Time
	lastSuccessAt     time.Time
	lastFetchDuration time.Duration
	lastError         string
	nextFetchAt       time.Time

	report *availability.Report
	styles styles
}

type styles struct {
	title   lipgloss.Style
	dim     lipgloss.Style
	panel   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
	accent  lipgloss.Style
	error   lipgloss.Style
	mono    lipgloss.Style
	loading lipgloss.Style
}

type pollTickMsg struct {
	at time.Time
}

type clockTickMsg struct {
	at time.Time
}

type fetchResultMsg struct {
	at       time.Time
	duration time.Duration
	report   *availability.Report
	err      error
}

const (
	defaultInterval = 5 * time.Minute
	defaultTimeout  = 2 * time.Minute
	defaultTitle    = "rec availability"
)

func NewModel(opts Options) Model {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	fetch := opts.Fetch
	if fetch == nil {
		fetch = func(context.Context) (*availability.Report, error) {
			return nil, errors.New("missing fetch function")
		}
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = defaultTitle
	}
	now := time.Now().UTC()

	return Model{
		title:       title,
		interval:    interval,
		timeout:     timeout,
		fetch:       fetch,
		now:         now,
		fetching:    true,
		nextFetchAt: now.Add(interval),
		styles:      defaultStyles(opts.NoColor),
	}
}

func defaultStyles(noColor bool) styles {
	basePanel := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if noColor {
		return styles{
			title:   lipgloss.NewStyle().Bold(true),
			dim:     lipgloss.NewStyle(),
			panel:   basePanel,
			label:   lipgloss.NewStyle().Bold(true),
			value:   lipgloss.NewStyle(),
			ok:      lipgloss.NewStyle().Bold(true),
			warn:    lipgloss.NewStyle().Bold(true),
			bad:     lipgloss.NewStyle().Bold(true),
			accent:  lipgloss.NewStyle().Bold(true),
			error:   lipgloss.NewStyle().Bold(true),
			mono:    lipgloss.NewStyle(),
			loading: lipgloss.NewStyle(),
		}
	}
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("28")).Padding(0, 1),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		panel:   basePanel.BorderForeground(lipgloss.Color("65")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("109")),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		ok:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		warn:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		bad:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		accent:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		mono:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		loading: lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchCmd(m.fetch, m.timeout), pollCmd(m.interval), clockCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		switch v.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			if !m.fetching {
				m.fetching = true
				return m, fetchCmd(m.fetch, m.timeout)
			}
		}
	case tea.WindowSizeMsg:
		m.width = v.Width
		m.height = v.Height
	case pollTickMsg:
		m.nextFetchAt = v.at.UTC().Add(m.interval)
		cmds := []tea.Cmd{pollCmd(m.interval)}
		if !m.fetching {
			m.fetching = true
			cmds = append(cmds, fetchCmd(m.fetch, m.timeout))
		}
		return m, tea.Batch(cmds...)
	case clockTickMsg:
		m.now = v.at.UTC()
		return m, clockCmd()
	case fetchResultMsg:
		m.fetching = false
		m.fetches++
		m.lastAttemptAt = v.at.UTC()
		m.lastFetchDuration = v.duration
		// A report may arrive with an error, e.g. when only the notify hook failed.
		if v.report != nil {
			m.lastSuccessAt = v.at.UTC()
			m.report = v.report
		}
		m.lastError = ""
		if v.err != nil {
			m.lastError = v.err.Error()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "initializing..."
	}

	header := m.renderHeader()
	body := m.renderBody()
	exitHint := m.styles.dim.Render("r to refresh, q or Ctrl+C to exit")

	top := lipgloss.JoinVertical(lipgloss.Left, header, body, "")
	combined := pinFooterToBottom(top, exitHint, m.height)
	return clipToViewport(combined, m.width, m.height)
}

func (m Model) renderHeader() string {
	title := m.styles.title.Render(" " + m.title + " ")

	stateText := "idle"
	stateStyle := m.styles.dim
	if m.fetching {
		stateText = "refreshing"
		stateStyle = m.styles.loading
	} else if m.lastError != "" {
		stateText = "error"
		stateStyle = m.styles.bad
	} else if m.report != nil && m.report.HasAvailability() {
		stateText = "available"
		stateStyle = m.styles.ok
	} else if m.report != nil {
		stateText = "none"
		stateStyle = m.styles.warn
	}

	left := title + "  " + m.styles.label.Render("state: ") + stateStyle.Render(stateText)
	if !m.nextFetchAt.IsZero() {
		refreshText := "[next refresh in " + humanDuration(m.nextFetchAt.Sub(m.now)) + "]"
		left += " " + m.styles.dim.Render(refreshText)
	}
	right := m.styles.dim.Render("utc " + m.now.Format("2006-01-02 15:04:05"))
	return joinWithPaddingKeepRight(left, right, m.width)
}

func (m Model) renderBody() string {
	contentWidth := max(20, m.width-4)
	if m.report == nil {
		if m.lastError != "" {
			msg := m.styles.error.Render("last error: " + m.lastError)
			return m.styles.panel.Width(contentWidth).Render(msg)
		}
		return m.styles.panel.Width(contentWidth).Render(m.styles.loading.Render("checking availability..."))
	}

	statusPanel := m.styles.panel.Width(contentWidth).Render(strings.Join(m.renderStatusLines(contentWidth-4), "\n"))
	statusHeight := lipgloss.Height(statusPanel)
	panelVerticalOverhead := verticalOverhead(m.styles.panel)
	rows := summaryRowsForLayout(m.height, statusHeight, panelVerticalOverhead)

	var summaryBlock string
	if contentWidth >= 94 {
		panelOverhead := horizontalOverhead(m.styles.panel)
		panelWidth, spacerWidth := splitEqualPanelContentWidths(contentWidth, panelOverhead)
		left := m.renderPanel(m.renderSummaryLines(rows), panelWidth)
		right := m.renderPanel(m.renderDetailLines(rows), panelWidth)
		summaryBlock = lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", spacerWidth), right)
	} else {
		lines := append(m.renderSummaryLines(0), m.renderDetailLines(0)...)
		summaryBlock = m.renderPanel(fitRows(lines, rows, m.styles.warn), contentWidth)
	}
	return lipgloss.JoinVertical(lipgloss.Left, summaryBlock, statusPanel)
}

func (m Model) renderPanel(lines []string, width int) string {
	textWidth := width - m.styles.panel.GetHorizontalPadding()
	for i := range lines {
		lines[i] = ansi.Truncate(lines[i], max(4, textWidth), "...")
	}
	return m.styles.panel.Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

// renderSummaryLines returns the headline and one line per identifier, fitted
// to rows when rows > 0.
func (m Model) renderSummaryLines(rows int) []string {
	headlineStyle := m.styles.warn
	if m.report.HasAvailability() {
		headlineStyle = m.styles.ok
	}
	lines := []string{headlineStyle.Render(report.Headline(*m.report))}
	for _, s := range m.report.Summaries {
		line := report.SummaryLine(s, report.PlainStyles())
		switch {
		case s.Error != "":
			lines = append(lines, m.styles.error.Render(line))
		case s.HasAvailability():
			lines = append(lines, m.styles.ok.Render(line))
		default:
			lines = append(lines, m.styles.dim.Render(line))
		}
	}
	if rows > 0 {
		return fitRows(lines, rows, m.styles.warn)
	}
	return lines
}

// renderDetailLines lists matches grouped per identifier.
func (m Model) renderDetailLines(rows int) []string {
	lines := []string{m.styles.accent.Render("matches")}
	for _, s := range m.report.Summaries {
		details := report.DetailLines(s)
		if len(details) == 0 {
			continue
		}
		name := s.Name
		if name == "" {
			name = s.ID
		}
		lines = append(lines, m.styles.label.Render(name+":"))
		for _, d := range details {
			lines = append(lines, m.styles.mono.Render(d))
		}
	}
	if len(lines) == 1 {
		lines = append(lines, m.styles.dim.Render("none"))
	}
	if rows > 0 {
		return fitRows(lines, rows, m.styles.warn)
	}
	return lines
}

func (m Model) renderStatusLines(maxWidth int) []string {
	window := fmt.Sprintf("%s to %s", m.report.Window.Start, m.report.Window.End)
	lastSuccess := "never"
	if !m.lastSuccessAt.IsZero() {
		lastSuccess = m.lastSuccessAt.Format("2006-01-02 15:04:05") + " (" + humanDuration(m.lastFetchDuration) + ")"
	}
	failed := 0
	for _, s := range m.report.Summaries {
		if s.Error != "" {
			failed++
		}
	}

	lines := []string{
		m.styles.label.Render("window: ") + m.styles.value.Render(window),
		m.styles.label.Render("last success: ") + m.styles.value.Render(lastSuccess) +
			m.styles.dim.Render(fmt.Sprintf(" [%d fetch(es)]", m.fetches)),
	}
	switch {
	case m.lastError != "":
		lines = append(lines, m.styles.error.Render("error [last fetch]: "+m.lastError))
	case failed > 0:
		lines = append(lines, m.styles.warn.Render(fmt.Sprintf("warning [identifiers]: %d of %d failed", failed, len(m.report.Summaries))))
	default:
		lines = append(lines, m.styles.ok.Render("status [identifiers]: ok"))
	}
	for i := range lines {
		lines[i] = ansi.Truncate(lines[i], max(8, maxWidth), "...")
	}
	return lines
}

// fitRows trims lines to rows, replacing the tail with a hidden-count marker.
func fitRows(lines []string, rows int, style lipgloss.Style) []string {
	if rows < 1 {
		rows = 1
	}
	if len(lines) <= rows {
		return lines
	}
	if rows == 1 {
		return []string{style.Render(fmt.Sprintf("+%d hidden", len(lines)))}
	}
	out := append([]string{}, lines[:rows-1]...)
	return append(out, style.Render(fmt.Sprintf("+%d more", len(lines)-(rows-1))))
}

func summaryRowsForLayout(viewportHeight, statusPanelHeight, panelVerticalOverhead int) int {
	bodyTargetHeight := max(1, viewportHeight-3) // header + spacer + exit hint
	rows := bodyTargetHeight - statusPanelHeight - panelVerticalOverhead
	if rows < 1 {
		return 1
	}
	return rows
}

func pollCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return pollTickMsg{at: t}
	})
}

func clockCmd() tea.Cmd {
	return tea.Tick(1*time.Second, func(t time.Time) tea.Msg {
		return clockTickMsg{at: t}
	})
}

func fetchCmd(fetch FetchFunc, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		r, err := fetch(ctx)
		return fetchResultMsg{
			at:       time.Now(),
			duration: time.Since(start),
			report:   r,
			err:      err,
		}
	}
}

func Run(opts Options) error {
	model := NewModel(opts)
	progOpts := []tea.ProgramOption{}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	prog := tea.NewProgram(model, progOpts...)
	_, err := prog.Run()
	return err
}
