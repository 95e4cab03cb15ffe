// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/hirechat/internal/ledger"
)

// init matches the lipgloss color profile to the terminal so piped output
// stays free of escape codes.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// LabelStyle is used for left-column labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Light gray

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// DimStyle is used for secondary information and hints.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// CommandStyle marks utterances routed to a navigation command.
	CommandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // Orange
			Bold(true)
)

// Message author styles.
var (
	UserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")). // Blue
			Bold(true)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")). // Bright green
			Bold(true)

	SystemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")). // Purple
			Italic(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderLabel renders a label padded to width columns.
func RenderLabel(label string, width int) string {
	if width <= 0 {
		return LabelStyle.Render(label)
	}
	return LabelStyle.Width(width).Render(label)
}

// RenderSeparator renders a horizontal rule of width columns, 70 when
// width is not positive.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 70
	}
	return SeparatorStyle.Render(strings.Repeat("-", width))
}

// RenderRole renders the author label for a message role.
func RenderRole(role ledger.Role, sender string) string {
	label := sender
	if label == "" {
		label = string(role)
	}
	switch role {
	case ledger.RoleUser:
		return UserStyle.Render(label)
	case ledger.RoleAssistant:
		return AssistantStyle.Render(label)
	default:
		return SystemStyle.Render(label)
	}
}
