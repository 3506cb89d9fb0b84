package tui

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olliecrow/rec_availability_monitor/internal/availability"
)

func TestViewFitsViewportAcrossSizes(t *testing.T) {
	sizes := []struct {
		width  int
		height int
	}{
		{60, 18},
		{80, 22},
		{100, 26},
		{140, 34},
	}

	for _, s := range sizes {
		t.Run(strconv.Itoa(s.width)+"x"+strconv.Itoa(s.height), func(t *testing.T) {
			m := seededModel()
			m.width = s.width
			m.height = s.height
			out := m.View()
			lines := strings.Split(out, "\n")
			if len(lines) != s.height {
				t.Fatalf("expected %d lines, got %d", s.height, len(lines))
			}
			for i, line := range lines {
				if lipgloss.Width(line) > s.width {
					t.Fatalf("line %d exceeded width: got %d max %d", i+1, lipgloss.Width(line), s.width)
				}
			}
		})
	}
}

func TestViewRendersSummariesAndMatches(t *testing.T) {
	m := seededModel()
	m.width = 140
	m.height = 30
	out := m.View()
	if !strings.Contains(out, "there are campsites available from 2026-06-01 to 2026-06-30!!!") {
		t.Fatalf("expected headline in output:\n%s", out)
	}
	if !strings.Contains(out, "Upper Pines (232447): 1 site(s) available out of 40 site(s)") {
		t.Fatalf("expected summary line in output:\n%s", out)
	}
	if !strings.Contains(out, "2026-06-05 -> 2026-06-07") {
		t.Fatalf("expected stay range in output:\n%s", out)
	}
	if !strings.Contains(out, "fetch failed") {
		t.Fatalf("expected errored identifier in output:\n%s", out)
	}
	if !strings.Contains(out, "warning [identifiers]: 1 of 3 failed") {
		t.Fatalf("expected failed identifier status line:\n%s", out)
	}
}

func TestNarrowViewStillRendersHeadline(t *testing.T) {
	m := seededModel()
	m.width = 60
	m.height = 20
	out := m.View()
	if !strings.Contains(out, "there are campsites") {
		t.Fatalf("expected headline in narrow output:\n%s", out)
	}
	if !strings.Contains(out, "window: 2026-06-01 to 2026-06-30") {
		t.Fatalf("expected window line in narrow output:\n%s", out)
	}
}

func TestShortViewportHidesOverflowRows(t *testing.T) {
	m := seededModel()
	m.width = 60
	m.height = 14
	out := m.View()
	if !strings.Contains(out, "more") {
		t.Fatalf("expected overflow marker in short viewport:\n%s", out)
	}
}

func TestFitRows(t *testing.T) {
	style := lipgloss.NewStyle()
	lines := []string{"a", "b", "c", "d"}

	if got := fitRows(lines, 10, style); len(got) != 4 {
		t.Fatalf("expected lines untouched, got %v", got)
	}
	got := fitRows(lines, 3, style)
	if len(got) != 3 || got[2] != "+2 more" {
		t.Fatalf("unexpected fitted rows: %v", got)
	}
	got = fitRows(lines, 0, style)
	if len(got) != 1 || got[0] != "+4 hidden" {
		t.Fatalf("unexpected single-row fit: %v", got)
	}
}

func TestHeaderStateReflectsReport(t *testing.T) {
	m := seededModel()
	m.width = 120
	if header := m.renderHeader(); !strings.Contains(header, "state: available") {
		t.Fatalf("expected available state, got: %q", header)
	}

	m.report = &availability.Report{Kind: availability.KindPermit, Window: m.report.Window}
	if header := m.renderHeader(); !strings.Contains(header, "state: none") {
		t.Fatalf("expected none state, got: %q", header)
	}

	m.lastError = "boom"
	if header := m.renderHeader(); !strings.Contains(header, "state: error") {
		t.Fatalf("expected error state, got: %q", header)
	}

	m.fetching = true
	if header := m.renderHeader(); !strings.Contains(header, "state: refreshing") {
		t.Fatalf("expected refreshing state, got: %q", header)
	}
}

func TestFetchResultKeepsLastReportOnError(t *testing.T) {
	m := seededModel()
	m.fetching = true
	previous := m.report

	updated, _ := m.Update(fetchResultMsg{at: m.now, duration: time.Second, err: errors.New("upstream down")})
	got := updated.(Model)
	if got.fetching {
		t.Fatalf("expected fetching cleared")
	}
	if got.report != previous {
		t.Fatalf("expected previous report kept on error")
	}
	if got.lastError != "upstream down" {
		t.Fatalf("expected last error recorded, got %q", got.lastError)
	}

	fresh := &availability.Report{Kind: availability.KindCampground, Window: previous.Window}
	updated, _ = got.Update(fetchResultMsg{at: m.now, report: fresh})
	got = updated.(Model)
	if got.report != fresh || got.lastError != "" || got.fetches != 3 {
		t.Fatalf("expected fresh report and cleared error, got fetches=%d err=%q", got.fetches, got.lastError)
	}
}

func TestFetchResultWithReportAndErrorShowsBoth(t *testing.T) {
	m := seededModel()
	m.width = 120
	m.height = 30
	fresh := &availability.Report{Kind: availability.KindCampground, Window: m.report.Window}

	updated, _ := m.Update(fetchResultMsg{at: m.now, report: fresh, err: errors.New("notify command failed: exit status 1")})
	got := updated.(Model)
	if got.report != fresh {
		t.Fatalf("expected report replaced")
	}
	out := got.View()
	if !strings.Contains(out, "error [last fetch]: notify command failed") {
		t.Fatalf("expected notify error in status panel:\n%s", out)
	}
}

func TestPollTickSkipsFetchWhileInFlight(t *testing.T) {
	m := seededModel()
	m.fetching = true
	updated, cmd := m.Update(pollTickMsg{at: m.now})
	got := updated.(Model)
	if cmd == nil {
		t.Fatalf("expected next poll to be scheduled")
	}
	if !got.nextFetchAt.Equal(m.now.Add(m.interval)) {
		t.Fatalf("expected next fetch rescheduled, got %v", got.nextFetchAt)
	}
}

func TestRefreshKeyStartsFetch(t *testing.T) {
	m := seededModel()
	updated, cmd := m.Update(keyMsg("r"))
	if !updated.(Model).fetching || cmd == nil {
		t.Fatalf("expected manual refresh to start a fetch")
	}
}

func TestLoadingAndErrorBeforeFirstReport(t *testing.T) {
	m := seededModel()
	m.report = nil
	m.width = 80
	m.height = 20
	if out := m.View(); !strings.Contains(out, "checking availability...") {
		t.Fatalf("expected loading text:\n%s", out)
	}
	m.lastError = "dial tcp: refused"
	if out := m.View(); !strings.Contains(out, "last error: dial tcp: refused") {
		t.Fatalf("expected error text:\n%s", out)
	}
}

func TestWideLayoutPanelsAlignWidths(t *testing.T) {
	widths := []int{98, 99, 100, 101, 120, 121, 140}
	heights := []int{18, 24, 32}

	for _, w := range widths {
		for _, h := range heights {
			m := seededModel()
			m.width = w
			m.height = h
			body := m.renderBody()

			lines := strings.Split(body, "\n")
			topLine := ""
			statusTop := ""
			for _, line := range lines {
				if strings.Count(line, "╭") >= 2 && topLine == "" {
					topLine = line
					continue
				}
				if strings.Count(line, "╭") == 1 {
					statusTop = line
				}
			}
			if topLine == "" || statusTop == "" {
				t.Fatalf("expected top and status panel border lines for %dx%d", w, h)
			}
			topWidth := lipgloss.Width(topLine)
			statusWidth := lipgloss.Width(statusTop)
			if topWidth != statusWidth {
				t.Fatalf("expected aligned widths for %dx%d, got top=%d status=%d", w, h, topWidth, statusWidth)
			}

			topRunes := []rune(topLine)
			firstRight := nthRuneIndex(topRunes, '╮', 1)
			secondLeft := nthRuneIndex(topRunes, '╭', 2)
			if firstRight < 0 || secondLeft < 0 || secondLeft <= firstRight {
				t.Fatalf("expected two top panels for %dx%d", w, h)
			}
			gapStart := firstRight + 1
			gapEnd := secondLeft - 1
			dividerCenter := (float64(gapStart) + float64(gapEnd)) / 2.0
			fullCenter := float64(topWidth-1) / 2.0
			if math.Abs(dividerCenter-fullCenter) > 0.5 {
				t.Fatalf("expected centered divider for %dx%d, divider=%.1f full=%.1f", w, h, dividerCenter, fullCenter)
			}
		}
	}
}

func TestHeaderIncludesRefreshBracketOnTopLine(t *testing.T) {
	m := seededModel()
	m.width = 100
	header := m.renderHeader()
	lines := strings.Split(header, "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single-line header")
	}
	if !strings.Contains(lines[0], "[next refresh in 13s]") {
		t.Fatalf("expected bracketed refresh countdown on header line, got: %q", lines[0])
	}
	if lipgloss.Width(lines[0]) > m.width {
		t.Fatalf("header line exceeded width")
	}
}

func TestHeaderRetainsUTCTimestampAtNarrowWidth(t *testing.T) {
	m := seededModel()
	m.width = 58
	header := m.renderHeader()
	if !strings.Contains(header, "utc 2026-06-01 15:00:00") {
		t.Fatalf("expected narrow header to retain utc timestamp, got: %q", header)
	}
	if lipgloss.Width(header) > m.width {
		t.Fatalf("header line exceeded width")
	}
}

func TestViewShowsExitHintAtBottom(t *testing.T) {
	m := seededModel()
	m.width = 120
	m.height = 30
	out := m.View()
	lines := strings.Split(out, "\n")
	if len(lines) != m.height {
		t.Fatalf("expected %d lines, got %d", m.height, len(lines))
	}
	if !strings.Contains(lines[len(lines)-1], "Ctrl+C to exit") {
		t.Fatalf("expected exit hint on bottom row, got: %q", lines[len(lines)-1])
	}
}

func TestHumanDuration(t *testing.T) {
	cases := map[time.Duration]string{
		-time.Second:                  "<1s",
		400 * time.Millisecond:        "<1s",
		42 * time.Second:              "42s",
		5*time.Minute + 3*time.Second: "5m3s",
		2*time.Hour + 10*time.Minute:  "2h10m",
		49 * time.Hour:                "2d1h",
	}
	for in, want := range cases {
		if got := humanDuration(in); got != want {
			t.Fatalf("humanDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func nthRuneIndex(runes []rune, target rune, n int) int {
	if n <= 0 {
		return -1
	}
	count := 0
	for i, r := range runes {
		if r == target {
			count++
			if count == n {
				return i
			}
		}
	}
	return -1
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func seededModel() Model {
	now := time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)
	window, _ := availability.NewDateWindow(
		civil.Date{Year: 2026, Month: time.June, Day: 1},
		civil.Date{Year: 2026, Month: time.June, Day: 30},
	)
	m := NewModel(Options{
		Title:    "campsites",
		Interval: 15 * time.Second,
		Timeout:  8 * time.Second,
		NoColor:  true,
		Fetch: func(_ context.Context) (*availability.Report, error) {
			return nil, nil
		},
	})
	m.now = now
	m.fetching = false
	m.fetches = 1
	m.lastAttemptAt = now.Add(-2 * time.Second)
	m.lastSuccessAt = now.Add(-2 * time.Second)
	m.lastFetchDuration = 420 * time.Millisecond
	m.nextFetchAt = now.Add(13 * time.Second)
	m.report = &availability.Report{
		Kind:   availability.KindCampground,
		Window: window,
		Summaries: []availability.Summary{
			{
				ID: "232447", Kind: availability.KindCampground, Name: "Upper Pines",
				TotalSubUnits: 40, AvailableSubUnits: 1,
				Matches: []availability.Match{
					{Date: civil.Date{Year: 2026, Month: time.June, Day: 5}, SubUnit: "10", SubUnitName: "Site 001, Loop A", Remaining: 1, Nights: 2},
					{Date: civil.Date{Year: 2026, Month: time.June, Day: 6}, SubUnit: "10", SubUnitName: "Site 001, Loop A", Remaining: 1, Nights: 2},
				},
			},
			{ID: "232450", Kind: availability.KindCampground, Name: "Lower Pines", TotalSubUnits: 60},
			{ID: "999", Kind: availability.KindCampground, Error: "campground info: HTTP 404"},
		},
		FetchedAt: now.Add(-2 * time.Second),
	}
	return m
}
