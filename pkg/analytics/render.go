package analytics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/sudorandom/attack-map/pkg/attack"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	incomingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF3B30"))

	outgoingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5AC8FA"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF9500"))
)

// RelativeTime formats an event time relative to now, e.g. "3 days ago".
func RelativeTime(ev attack.Event, now time.Time) string {
	t, ok := ev.Time()
	if !ok {
		return attack.InvalidDate
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func typeStyle(t attack.Type) lipgloss.Style {
	c := attack.Color(t)
	return cellStyle.Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)))
}

// RenderTable draws the attack table sorted by s. limit caps the rows
// shown; 0 shows all.
func RenderTable(events []attack.Event, s SortState, limit int, now time.Time) string {
	if s.Field == "" {
		s = DefaultSort
	}
	title := titleStyle.Render("Latest Attacks") + " " + mutedStyle.Render(fmt.Sprintf("(%d total)", len(events)))
	if len(events) == 0 {
		return title + "\n" + mutedStyle.Render("No attacks to display")
	}

	sorted := SortTable(events, s)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	columns := []struct {
		field SortField
		name  string
	}{
		{SortType, "Type"},
		{SortOrigin, "Origin"},
		{SortTarget, "Target"},
		{SortProtocol, "Protocol"},
		{SortTime, "Time"},
	}
	headers := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		name := c.name
		if c.field == s.Field {
			if s.Direction == Asc {
				name += " ↑"
			} else {
				name += " ↓"
			}
		}
		headers = append(headers, name)
	}
	headers = append(headers, "Host")

	rows := make([][]string, 0, len(sorted))
	for _, ev := range sorted {
		rows = append(rows, []string{
			string(ev.Type),
			ev.OriginCountry,
			ev.TargetCountry,
			string(ev.Protocol),
			RelativeTime(ev, now),
			ev.Host,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 && row >= 0 && row < len(sorted) {
				return typeStyle(sorted[row].Type)
			}
			return cellStyle
		})
	return title + "\n" + t.Render()
}

func badges(b []Bucket, prefix string) string {
	if len(b) == 0 {
		return mutedStyle.Render("none")
	}
	parts := make([]string, 0, len(b))
	for _, x := range b {
		parts = append(parts, fmt.Sprintf("%s%s: %d", prefix, x.Label, x.Value))
	}
	return strings.Join(parts, "  ")
}

// RenderCountry draws the country detail panel.
func RenderCountry(d CountryDetail) string {
	if d.Name == "" {
		return boxStyle.Render(titleStyle.Render("Country Details") + "\n" +
			mutedStyle.Render("Select a country on the map to view details"))
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(d.Name))
	sb.WriteString(" ")
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("%d attacks", d.Total)))
	sb.WriteString("\n\n")
	sb.WriteString("Incoming " + incomingStyle.Render(strconv.Itoa(d.Incoming)))
	sb.WriteString("    ")
	sb.WriteString("Outgoing " + outgoingStyle.Render(strconv.Itoa(d.Outgoing)))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.UnsetPadding().Render("Attack Types") + "\n" + badges(d.Types, "") + "\n\n")
	sb.WriteString(headerStyle.UnsetPadding().Render("Protocols") + "\n" + badges(d.Protocols, "") + "\n\n")
	sb.WriteString(headerStyle.UnsetPadding().Render("Top Target Ports") + "\n" + badges(d.TopPorts, "Port "))
	return boxStyle.Render(sb.String())
}

// RenderBars draws a horizontal bar chart scaled to width characters.
func RenderBars(title string, b []Bucket, width int) string {
	if width <= 0 {
		width = 40
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	if len(b) == 0 {
		sb.WriteString(mutedStyle.Render("No data"))
		return sb.String()
	}
	labelWidth, maxVal := 0, 0
	for _, x := range b {
		labelWidth = max(labelWidth, lipgloss.Width(x.Label))
		maxVal = max(maxVal, x.Value)
	}
	for i, x := range b {
		n := 0
		if maxVal > 0 {
			n = x.Value * width / maxVal
		}
		if x.Value > 0 && n == 0 {
			n = 1
		}
		pad := strings.Repeat(" ", labelWidth-lipgloss.Width(x.Label))
		sb.WriteString(x.Label + pad + " " + barStyle.Render(strings.Repeat("█", n)) + " " + strconv.Itoa(x.Value))
		if i < len(b)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
