package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const placeholder = "—"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"}).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"})

	pinStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"})

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"})

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"})

	waitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"})

	cueBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}).
			Padding(0, 2)

	cueNumberStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	cueTextStyle   = lipgloss.NewStyle().Bold(true)
)

// swatches maps common cue colour names to a terminal colour.
var swatches = map[string]lipgloss.Color{
	"red":     "#FF5555",
	"orange":  "#FFAA00",
	"amber":   "#FFBF00",
	"yellow":  "#FFFF55",
	"green":   "#55FF55",
	"cyan":    "#55FFFF",
	"blue":    "#5599FF",
	"purple":  "#AA55FF",
	"magenta": "#FF55FF",
	"pink":    "#FF88CC",
	"white":   "#FFFFFF",
	"grey":    "#888888",
	"gray":    "#888888",
}

func (m Model) View() string {
	var b strings.Builder

	title := Title
	if m.alwaysOnTop {
		title += " " + pinStyle.Render("[pinned]")
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")
	b.WriteString(cueBlock(m.state))
	b.WriteString("\n")

	if m.settings != nil {
		b.WriteString("\n")
		b.WriteString(m.settings.View())
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) statusLine() string {
	status := "Status: " + m.status
	if m.state.Connected {
		status = okStyle.Render(status)
	} else {
		status = waitStyle.Render(status + " (waiting)")
	}

	age := "Last OSC: n/a"
	if d, ok := m.state.SinceLastRx(m.now()); ok {
		age = fmt.Sprintf("Last OSC: %.1fs ago", d.Seconds())
	}

	sep := labelStyle.Render("  │  ")
	return labelStyle.Render("Host:") + " " + m.host + sep + status + sep + labelStyle.Render(age)
}

func cueBlock(s CueState) string {
	number := s.Current.Number
	if number == "" {
		number = placeholder
	}
	text := s.Current.Text
	if text == "" {
		text = placeholder
	}

	color := "Color: " + s.Current.ColorLabel(placeholder)
	if c, ok := swatches[strings.ToLower(strings.TrimSpace(s.Current.Color))]; ok && s.Current.HasColor {
		color += " " + lipgloss.NewStyle().Foreground(c).Render("■")
	}

	lines := []string{
		cueNumberStyle.Render("Cue " + number),
		cueTextStyle.Render(text),
		labelStyle.Render(color),
		labelStyle.Render("Next: " + s.Next),
	}
	return cueBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
