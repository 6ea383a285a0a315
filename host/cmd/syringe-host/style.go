package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	diagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// styleLine colours one controller output line by its kind
func styleLine(line string) string {
	switch {
	case strings.HasPrefix(line, "Error:"):
		return errorStyle.Render(line)
	case strings.HasPrefix(line, "#"), strings.HasPrefix(line, "[TRACE]"):
		return diagStyle.Render(line)
	case line == "ok":
		return okStyle.Render(line)
	case strings.Contains(line, "="):
		return styleFields(line)
	default:
		return line
	}
}

// styleFields highlights the values of a key=value line
func styleFields(line string) string {
	fields := strings.Fields(line)
	for i, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		fields[i] = key + "=" + valueStyle.Render(value)
	}
	return strings.Join(fields, " ")
}

// plainLine is the renderer for machine consumers such as a serial link
func plainLine(line string) string {
	return line
}

// banner frames a short multi-line message
func banner(lines ...string) string {
	return bannerStyle.Render(strings.Join(lines, "\n"))
}
