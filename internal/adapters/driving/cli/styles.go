package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

// Colour palette shared by command output.
var (
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
	colourPrimary = lipgloss.Color("#7C3AED")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	labelStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	cleanStyle   = lipgloss.NewStyle().Foreground(colourSuccess)
	dirtyStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colourError)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
)

// statusMarker renders the dirty flag as "● modified" or "✓ saved".
func statusMarker(dirty bool) string {
	if dirty {
		return dirtyStyle.Render("● modified")
	}
	return cleanStyle.Render("✓ saved")
}

// infoLines renders a document summary as label/value lines.
func infoLines(info domain.DocumentInfo) []string {
	readonly := "no"
	if info.Readonly {
		readonly = "yes"
	}
	return []string{
		labelStyle.Render("Status:     ") + statusMarker(info.Dirty),
		labelStyle.Render("Version:    ") + strconv.Itoa(info.Version),
		labelStyle.Render("Encoding:   ") + info.Encoding,
		labelStyle.Render("Line end:   ") + domain.LineEndingName(info.LineEnding),
		labelStyle.Render("Language:   ") + orDefault(info.LanguageID, "-"),
		labelStyle.Render("Readonly:   ") + readonly,
		labelStyle.Render("Checksum:   ") + info.BaseFingerprint.String(),
	}
}
