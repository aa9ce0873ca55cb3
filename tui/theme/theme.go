// Package theme holds the lipgloss styles shared by CLI output, logs and the monitor TUI.
package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const defaultThemeName = "gruvbox"

// Colors encapsulates the palette used by a theme.
type Colors struct {
	Green     lipgloss.TerminalColor
	Yellow    lipgloss.TerminalColor
	Red       lipgloss.TerminalColor
	Cyan      lipgloss.TerminalColor
	Blue      lipgloss.TerminalColor
	Violet    lipgloss.TerminalColor
	LightText lipgloss.TerminalColor
	MutedText lipgloss.TerminalColor
	Border    lipgloss.TerminalColor
}

// Theme holds the pre-configured styles.
type Theme struct {
	Colors Colors

	Header lipgloss.Style
	Title  lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Bold   lipgloss.Style
	Muted  lipgloss.Style
	Accent lipgloss.Style

	Key   lipgloss.Style
	Value lipgloss.Style
	Path  lipgloss.Style
	Code  lipgloss.Style
	Box   lipgloss.Style
}

var themeRegistry = map[string]func() Colors{
	"gruvbox":  newGruvboxColors,
	"terminal": newTerminalColors,
}

// DefaultTheme is the theme selected from LOMBRIDGE_THEME at startup.
var DefaultTheme = initDefaultTheme()

// NewThemeWithName constructs a theme from a specific palette name.
func NewThemeWithName(name string) *Theme {
	return newThemeFromColors(resolveThemeColors(name))
}

// RenderStatus renders text with the appropriate status style.
func RenderStatus(status, text string) string {
	switch status {
	case "success":
		return DefaultTheme.Success.Render(text)
	case "error":
		return DefaultTheme.Error.Render(text)
	case "warning":
		return DefaultTheme.Warning.Render(text)
	case "info":
		return DefaultTheme.Info.Render(text)
	default:
		return text
	}
}

func initDefaultTheme() *Theme {
	// NO_COLOR and dumb terminals get plain output.
	if termenv.EnvNoColor() || os.Getenv("TERM") == "dumb" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	name := os.Getenv("LOMBRIDGE_THEME")
	if name == "" {
		name = defaultThemeName
	}
	return NewThemeWithName(name)
}

func newThemeFromColors(colors Colors) *Theme {
	return &Theme{
		Colors: colors,

		Header: lipgloss.NewStyle().Bold(true).MarginTop(1).MarginBottom(1),
		Title:  lipgloss.NewStyle().Bold(true).Underline(true),

		Success: lipgloss.NewStyle().Foreground(colors.Green).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(colors.Red).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(colors.Yellow).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(colors.Blue),

		Bold:   lipgloss.NewStyle().Bold(true),
		Muted:  lipgloss.NewStyle().Foreground(colors.MutedText),
		Accent: lipgloss.NewStyle().Foreground(colors.Violet),

		Key:   lipgloss.NewStyle().Foreground(colors.MutedText),
		Value: lipgloss.NewStyle().Foreground(colors.Cyan).Bold(true),
		Path:  lipgloss.NewStyle().Foreground(colors.Cyan).Italic(true),
		Code:  lipgloss.NewStyle().Foreground(colors.Violet),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Border).
			Padding(0, 1),
	}
}

func resolveThemeColors(name string) Colors {
	key := strings.ToLower(strings.TrimSpace(name))
	if builder, ok := themeRegistry[key]; ok {
		return builder()
	}
	return themeRegistry[defaultThemeName]()
}

func newGruvboxColors() Colors {
	return Colors{
		Green:     lipgloss.AdaptiveColor{Light: "#79740e", Dark: "#b8bb26"},
		Yellow:    lipgloss.AdaptiveColor{Light: "#b57614", Dark: "#fabd2f"},
		Red:       lipgloss.AdaptiveColor{Light: "#9d0006", Dark: "#fb4934"},
		Cyan:      lipgloss.AdaptiveColor{Light: "#427b58", Dark: "#8ec07c"},
		Blue:      lipgloss.AdaptiveColor{Light: "#076678", Dark: "#83a598"},
		Violet:    lipgloss.AdaptiveColor{Light: "#8f3f71", Dark: "#d3869b"},
		LightText: lipgloss.AdaptiveColor{Light: "#3c3836", Dark: "#ebdbb2"},
		MutedText: lipgloss.AdaptiveColor{Light: "#7c6f64", Dark: "#928374"},
		Border:    lipgloss.AdaptiveColor{Light: "#bdae93", Dark: "#504945"},
	}
}

func newTerminalColors() Colors {
	return Colors{
		Green:     lipgloss.Color("2"),
		Yellow:    lipgloss.Color("3"),
		Red:       lipgloss.Color("1"),
		Cyan:      lipgloss.Color("6"),
		Blue:      lipgloss.Color("4"),
		Violet:    lipgloss.Color("5"),
		LightText: lipgloss.Color("7"),
		MutedText: lipgloss.Color("8"),
		Border:    lipgloss.Color("8"),
	}
}
