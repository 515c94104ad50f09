// Package infra contains infrastructure adapters for the strategy context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/oxarb/flasharb/business/strategy/domain"
)

// Colors
var (
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorDanger  = lipgloss.Color("#EF4444") // Red
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorMuted   = lipgloss.Color("#6B7280") // Gray
)

// Styles
var (
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarning)
	infoStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	idStyle      = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
)

// ConsoleSink writes strategy events to the terminal with severity colors.
type ConsoleSink struct {
	out io.Writer
}

// NewConsoleSink creates a sink writing to stdout.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{out: os.Stdout}
}

// NewConsoleSinkTo creates a sink writing to w.
func NewConsoleSinkTo(w io.Writer) *ConsoleSink {
	return &ConsoleSink{out: w}
}

// Emit renders one event line.
func (s *ConsoleSink) Emit(_ context.Context, event domain.Event) {
	var style lipgloss.Style
	switch event.Severity {
	case domain.SeveritySuccess:
		style = successStyle
	case domain.SeverityError:
		style = errorStyle
	case domain.SeverityWarn:
		style = warnStyle
	default:
		style = infoStyle
	}

	fmt.Fprintf(s.out, "%s %s %s\n",
		infoStyle.Render(event.Time.Format("15:04:05")),
		idStyle.Render("["+event.StrategyID+"]"),
		style.Render(event.Text),
	)
}
