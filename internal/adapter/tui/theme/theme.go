// Package theme provides the visual design system for the chat TUI.
// All styles use adaptive colors that work on both light and dark terminals.
//
// NO_COLOR (https://no-color.org/) is respected automatically by lipgloss via
// its color profile detection.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// --- Adaptive Color Palette ---

var (
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#60a5fa"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}

	ColorBorder       = lipgloss.AdaptiveColor{Light: "#bdbdbd", Dark: "#616161"}
	ColorBorderActive = lipgloss.AdaptiveColor{Light: "#1565c0", Dark: "#42a5f5"}

	ColorBgAlt     = lipgloss.AdaptiveColor{Light: "#f5f5f5", Dark: "#2d2d2d"}
	ColorFgDim     = lipgloss.AdaptiveColor{Light: "#9e9e9e", Dark: "#757575"}
	ColorHeaderBg  = lipgloss.AdaptiveColor{Light: "#1d4ed8", Dark: "#1e3a8a"}
	ColorHeaderFg  = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#f1f5f9"}
	ColorUserBubFg = lipgloss.AdaptiveColor{Light: "#1e3a8a", Dark: "#bfdbfe"}
)

// --- Symbol variables (set by InitSymbols in symbols.go) ---

var (
	SymbolError    = "✗"
	SymbolInfo     = "●"
	SymbolArrowR   = "→"
	SymbolBullet   = "•"
	SymbolEllipsis = "…"
	SymbolLink     = "↗"
	SymbolUser     = "Vous"
	SymbolBot      = "Assistant"
)

// --- Base styles ---

var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	TextError  = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	TextInfo   = lipgloss.NewStyle().Foreground(ColorInfo)
	TextAccent = lipgloss.NewStyle().Foreground(ColorAccent)
	TextMuted  = lipgloss.NewStyle().Foreground(ColorMuted)
)

// --- Message role styles ---

var (
	UserLabel = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)

	UserText = lipgloss.NewStyle().
			Foreground(ColorUserBubFg)

	BotLabel = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	ErrorLabel = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	Timestamp = lipgloss.NewStyle().
			Foreground(ColorFgDim).
			Faint(true)

	// Link is the visible label of a citation link.
	Link = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Underline(true)
)

// --- Header ---

var (
	HeaderBar = lipgloss.NewStyle().
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Bold(true).
			Padding(0, 1)

	BadgeOnline = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Background(ColorHeaderBg).
			Padding(0, 1)

	BadgeOffline = lipgloss.NewStyle().
			Foreground(ColorError).
			Background(ColorHeaderBg).
			Padding(0, 1)

	BadgePending = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Background(ColorHeaderBg).
			Padding(0, 1)
)

// --- Status bar ---

var (
	StatusBar = lipgloss.NewStyle().
			Foreground(ColorFgDim).
			Background(ColorBgAlt).
			Padding(0, 1)

	StatusKey = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)
)

// --- Input area ---

var (
	InputPrompt = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)

	InputPlaceholder = lipgloss.NewStyle().
				Foreground(ColorFgDim)

	// Notice frames the offline explanation shown in place of the input.
	Notice = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1)
)

// MaxContentWidth is the recommended max width for readable text content.
const MaxContentWidth = 100

// MinHeaderWidth is the minimum terminal width that shows the header subtitle.
const MinHeaderWidth = 60
