package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func joinWithPaddingKeepRight(left, right string, width int) string {
	if width <= 0 {
		return ""
	}
	rightWidth := lipgloss.Width(right)
	if rightWidth >= width {
		return truncateRunes(right, width)
	}
	maxLeftWidth := max(0, width-rightWidth-1)
	left = truncateRunes(left, maxLeftWidth)
	padding := max(1, width-lipgloss.Width(left)-rightWidth)
	return left + strings.Repeat(" ", padding) + right
}

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxRunes, "")
}

// clipToViewport pads or cuts s to exactly width x height cells.
func clipToViewport(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i := range lines {
		lines[i] = truncateRunes(lines[i], width)
		if pad := width - lipgloss.Width(lines[i]); pad > 0 {
			lines[i] += strings.Repeat(" ", pad)
		}
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func pinFooterToBottom(top, footer string, height int) string {
	if height <= 0 {
		return ""
	}
	var footerLines, topLines []string
	if footer != "" {
		footerLines = strings.Split(footer, "\n")
	}
	if top != "" {
		topLines = strings.Split(top, "\n")
	}

	maxTopLines := max(0, height-len(footerLines))
	if len(topLines) > maxTopLines {
		topLines = topLines[:maxTopLines]
	}
	for len(topLines) < maxTopLines {
		topLines = append(topLines, "")
	}

	all := append(topLines, footerLines...)
	return strings.Join(all, "\n")
}

func humanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	switch {
	case d < time.Second:
		return "<1s"
	case d < time.Minute:
		return d.String()
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
	}
}

// splitEqualPanelContentWidths keeps two side-by-side panels plus the spacer
// exactly as wide as a full-width panel.
func splitEqualPanelContentWidths(contentWidth, panelOverhead int) (panelWidth int, spacerWidth int) {
	if contentWidth <= 0 {
		return 0, 0
	}
	usable := contentWidth - panelOverhead
	if usable < 3 {
		return 1, 1
	}
	spacerWidth = 1
	if usable%2 == 0 {
		spacerWidth = 2
	}
	return max(1, (usable-spacerWidth)/2), spacerWidth
}

func horizontalOverhead(style lipgloss.Style) int {
	const probeWidth = 40
	return max(0, lipgloss.Width(style.Width(probeWidth).Render(""))-probeWidth)
}

func verticalOverhead(style lipgloss.Style) int {
	const probeHeight = 20
	return max(0, lipgloss.Height(style.Height(probeHeight).Render(""))-probeHeight)
}
