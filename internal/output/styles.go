package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette — named constants for all ANSI 256 colors used in the CLI.
// These are the single source of truth; never use inline lipgloss.Color literals.
var (
	// ColorCyan is used for identifiable nouns: environments, clusters, resource names.
	ColorCyan = lipgloss.Color("14")

	// ColorGreen is used for the "written" artifact status.
	ColorGreen = lipgloss.Color("82")

	// ColorYellow is used for warnings surfaced alongside output.
	ColorYellow = lipgloss.Color("220")

	// ColorRed is used for failed requests.
	ColorRed = lipgloss.Color("196")

	// ColorDimGray is used for structural chrome.
	ColorDimGray = lipgloss.Color("240")
)

// Semantic styles — map domain concepts to visual presentation.
var (
	// StyleNoun styles identifiable nouns (environments, clusters, resource names).
	StyleNoun = lipgloss.NewStyle().Foreground(ColorCyan)

	// StyleWarning styles non-fatal warning lines.
	StyleWarning = lipgloss.NewStyle().Foreground(ColorYellow)

	// StyleError styles failure lines.
	StyleError = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)

	// StyleSuccess styles completion lines.
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorGreen)

	// StyleDim styles structural chrome (separators, paths, counts).
	StyleDim = lipgloss.NewStyle().Faint(true)
)

// FormatArtifactLine renders one generated artifact with its request context.
//
// Format: a:<environment/cluster-kind[-site]>  <status>
func FormatArtifactLine(path, status string) string {
	line := StyleDim.Render("a:") + StyleNoun.Render(path)
	pad := minArtifactColumnWidth - lipgloss.Width(line)
	if pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	switch status {
	case "written":
		return fmt.Sprintf("%s  %s", line, StyleSuccess.Render(status))
	case "failed":
		return fmt.Sprintf("%s  %s", line, StyleError.Render(status))
	default:
		return fmt.Sprintf("%s  %s", line, status)
	}
}

// FormatWarningLine renders a collected non-fatal warning.
func FormatWarningLine(msg string) string {
	return StyleWarning.Render("  ! ") + msg
}

// minArtifactColumnWidth keeps status words aligned across artifact lines.
const minArtifactColumnWidth = 48
