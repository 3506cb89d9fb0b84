package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/olliecrow/rec_availability_monitor/internal/availability"
)

const (
	GlyphCampgroundAvailable = "🏕"
	GlyphPermitAvailable     = "🚣"
	GlyphNone                = "❌"
	GlyphError               = "⚠️"
)

// Styles colours the text report. The zero value renders plain text.
type Styles struct {
	Headline  lipgloss.Style
	Available lipgloss.Style
	None      lipgloss.Style
	Error     lipgloss.Style
	Detail    lipgloss.Style
	enabled   bool
}

func PlainStyles() Styles {
	return Styles{}
}

func ColorStyles() Styles {
	return Styles{
		Headline:  lipgloss.NewStyle().Bold(true),
		Available: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		None:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		Detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		enabled:   true,
	}
}

func (s Styles) render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}

// Text renders the human-readable report as newline-joined lines without a
// trailing newline.
func Text(r availability.Report, styles Styles) string {
	lines := []string{styles.render(styles.Headline, Headline(r))}
	for _, s := range r.Summaries {
		lines = append(lines, SummaryLine(s, styles))
		for _, detail := range DetailLines(s) {
			lines = append(lines, styles.render(styles.Detail, detail))
		}
	}
	return strings.Join(lines, "\n")
}

// WriteText writes Text followed by a newline.
func WriteText(w io.Writer, r availability.Report, styles Styles) error {
	_, err := fmt.Fprintln(w, Text(r, styles))
	return err
}

func nouns(kind availability.Kind) (plural, unit string) {
	if kind == availability.KindCampground {
		return "campsites", "site(s)"
	}
	return "permits", "division(s)"
}

// Headline is the first line of the text report.
func Headline(r availability.Report) string {
	plural, _ := nouns(r.Kind)
	if r.HasAvailability() {
		return fmt.Sprintf("there are %s available from %s to %s!!!",
			plural, r.Window.Start.String(), r.Window.End.String())
	}
	return fmt.Sprintf("There are no %s available :(", plural)
}

// SummaryLine is the one-line status of a single identifier.
func SummaryLine(s availability.Summary, styles Styles) string {
	label := s.ID
	if s.Name != "" {
		label = fmt.Sprintf("%s (%s)", s.Name, s.ID)
	}
	if s.Error != "" {
		return styles.render(styles.Error, fmt.Sprintf("%s %s: fetch failed: %s", GlyphError, label, s.Error))
	}

	_, unit := nouns(s.Kind)
	glyph := GlyphNone
	style := styles.None
	if s.HasAvailability() {
		glyph = GlyphPermitAvailable
		if s.Kind == availability.KindCampground {
			glyph = GlyphCampgroundAvailable
		}
		style = styles.Available
	}

	var line string
	if s.Kind == availability.KindCampground {
		line = fmt.Sprintf("%s %s: %d %s available out of %d %s",
			glyph, label, s.AvailableSubUnits, unit, s.TotalSubUnits, unit)
	} else {
		line = fmt.Sprintf("%s %s: %d %s with availability out of %d %s",
			glyph, label, s.AvailableSubUnits, unit, s.TotalSubUnits, unit)
	}
	return styles.render(style, line)
}

type matchGroup struct {
	unitID   string
	unitName string
	matches  []availability.Match
}

// groupMatches groups matches by sub-unit in order of first appearance.
func groupMatches(matches []availability.Match) []matchGroup {
	var groups []matchGroup
	index := map[string]int{}
	for _, m := range matches {
		i, ok := index[m.SubUnit]
		if !ok {
			i = len(groups)
			index[m.SubUnit] = i
			groups = append(groups, matchGroup{unitID: m.SubUnit, unitName: m.SubUnitName})
		}
		groups[i].matches = append(groups[i].matches, m)
	}
	return groups
}

// DetailLines is the indented breakdown of a summary's matches.
func DetailLines(s availability.Summary) []string {
	if s.Error != "" || len(s.Matches) == 0 {
		return nil
	}
	groups := groupMatches(s.Matches)
	if s.Kind == availability.KindCampground {
		return campsiteDetailLines(groups)
	}
	return divisionDetailLines(groups, len(groups) > 1 || s.TotalSubUnits > 1)
}

func divisionDetailLines(groups []matchGroup, headers bool) []string {
	var out []string
	indent := "  "
	if headers {
		indent = "    "
	}
	for _, g := range groups {
		if headers {
			name := g.unitName
			if name == "" {
				name = "Division " + g.unitID
			}
			out = append(out, fmt.Sprintf("  * %s (Division %s):", name, g.unitID))
		}
		for _, m := range g.matches {
			remaining := fmt.Sprintf("%d", m.Remaining)
			if m.Capacity > 0 {
				remaining = fmt.Sprintf("%d/%d", m.Remaining, m.Capacity)
			}
			out = append(out, fmt.Sprintf("%s* %s: %s permits remaining", indent, m.Date.String(), remaining))
		}
	}
	return out
}

func campsiteDetailLines(groups []matchGroup) []string {
	var out []string
	for _, g := range groups {
		label := "Site " + g.unitID
		if g.unitName != "" {
			label = fmt.Sprintf("%s [%s]", g.unitName, g.unitID)
		}
		out = append(out, fmt.Sprintf("  * %s is available on the following dates:", label))
		for _, m := range g.matches {
			out = append(out, fmt.Sprintf("    * %s -> %s", m.Date.String(), m.Checkout().String()))
		}
	}
	return out
}
