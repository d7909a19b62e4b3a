package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the neutral palette the persona accents sit on.
type Theme struct {
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	Warning lipgloss.Color
	Error   lipgloss.Color

	Border lipgloss.Color

	// Glamour style name for the study pages.
	PageStyle string
}

var DarkTheme = Theme{
	TextPrimary:   lipgloss.Color("#F1F5F9"),
	TextSecondary: lipgloss.Color("#94A3B8"),
	TextMuted:     lipgloss.Color("#64748B"),

	Warning: lipgloss.Color("#FBBF24"),
	Error:   lipgloss.Color("#FB7185"),

	Border: lipgloss.Color("#27272A"),

	PageStyle: "dark",
}

var LightTheme = Theme{
	TextPrimary:   lipgloss.Color("#18181B"),
	TextSecondary: lipgloss.Color("#52525B"),
	TextMuted:     lipgloss.Color("#A1A1AA"),

	Warning: lipgloss.Color("#F59E0B"),
	Error:   lipgloss.Color("#EF4444"),

	Border: lipgloss.Color("#E4E4E7"),

	PageStyle: "light",
}

// CurrentTheme holds the active theme (set at runtime based on terminal)
var CurrentTheme = DarkTheme

// InitTheme picks the palette from the terminal background. A non-empty
// override ("dark", "light") wins.
func InitTheme(override string) {
	switch override {
	case "dark":
		CurrentTheme = DarkTheme
	case "light":
		CurrentTheme = LightTheme
	default:
		if lipgloss.HasDarkBackground() {
			CurrentTheme = DarkTheme
		} else {
			CurrentTheme = LightTheme
		}
	}
	rebuild()
}
