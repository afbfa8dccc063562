package tui

// Color constants for the emolyzer chat theme
const (
	// Base Colors
	ColorCardBackground = "#1B1530" // Dark purple
	ColorBorder         = "#3A3F55" // Grey-blue

	// Text Colors
	ColorPrimaryText   = "#E6EAF2" // User input, message text
	ColorSecondaryText = "#B1B8C7" // Timestamps, status line
	ColorPlaceholder   = "#B1B8C7"
	ColorHelpText      = "240" // Dark grey for help text

	// Speakers
	ColorAssistant = "#A78BFA" // Soft violet for the companion
	ColorUser      = "#38BDF8" // Sky blue for the employee

	// Accent Colors (Purple theme)
	ColorAccentMain   = "#7C3AED" // Header, active borders
	ColorAccentBright = "#A78BFA" // Cursor, thinking indicator

	// Shimmer ramp for the thinking indicator, base to peak
	ColorShimmerBase = "#B1B8C7"
	ColorShimmerPeak = "#EAE6FF"

	// State Colors
	ColorError   = "#EF4444" // Validation errors
	ColorSuccess = "#22C55E" // Completed sessions
	ColorWarning = "#F59E0B" // Escalated sessions, unpersisted turns
)
