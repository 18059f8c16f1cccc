package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarning   = lipgloss.Color("214") // Orange
	colorCritical  = lipgloss.Color("203") // Red
)

// Pane frames. The focused pane gets the primary border color.
var (
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	FocusedPaneStyle = PaneStyle.
				BorderForeground(colorPrimary)
)

// PaneTitle style for the heading line inside each pane.
var PaneTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)

// SelectedItem style for the currently highlighted item.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary)

// NormalItem style for unselected, unread items.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255"))

// ReadItem style for items that have been read.
var ReadItem = lipgloss.NewStyle().
	Foreground(colorSecondary)

// MetaItem style for ages, counts and bylines.
var MetaItem = lipgloss.NewStyle().
	Foreground(colorMuted)

// DetailTitle style for the article headline.
var DetailTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255"))

// LinkStyle for the article URL.
var LinkStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("39")).
	Underline(true)

// Fetch status badges in the detail pane.
var (
	BadgeOK      = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	BadgeBlocked = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	BadgeFailed  = lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
	BadgePending = lipgloss.NewStyle().Foreground(colorSecondary)
)

// Tone colors for the score line.
var (
	ToneCritical  = lipgloss.NewStyle().Foreground(colorCritical)
	ToneFavorable = lipgloss.NewStyle().Foreground(colorSuccess)
	ToneBalanced  = lipgloss.NewStyle().Foreground(colorSecondary)
)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted)

// DebugPanel frames the event overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorHighlight).
	Padding(1, 2)

// DebugHeaderStyle for section headings in the overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
