package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"

	"github.com/arthur-debert/confit/pkg/status"
	"github.com/arthur-debert/confit/pkg/validate"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1)

// StateStyle returns the pterm style for a target state
func StateStyle(state status.State) *pterm.Style {
	switch state {
	case status.StateOK:
		return pterm.NewStyle(pterm.FgGreen)
	case status.StateDrift:
		return pterm.NewStyle(pterm.FgYellow)
	case status.StateMissing:
		return pterm.NewStyle(pterm.FgCyan)
	case status.StateStale:
		return pterm.NewStyle(pterm.FgRed)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

func severityStyle(sev validate.Severity) *pterm.Style {
	switch sev {
	case validate.SeverityError:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case validate.SeverityWarn:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgCyan)
	}
}

// Renderer produces the final output strings for commands
type Renderer struct {
	format Format
}

// NewRenderer creates a Renderer for the resolved format
func NewRenderer(format Format) *Renderer {
	return &Renderer{format: format}
}

func (r *Renderer) styled() bool {
	return r.format == FormatTerminal
}

// Header renders the boxed section header
func (r *Renderer) Header(title string) string {
	if !r.styled() {
		return title + "\n" + strings.Repeat("=", len(title))
	}
	return headerStyle.Render(title)
}

// StatusLine renders one target's state
func (r *Renderer) StatusLine(s status.TargetStatus, rel string) string {
	state := fmt.Sprintf("%-8s", string(s.State))
	if r.styled() {
		state = StateStyle(s.State).Sprint(state)
	}
	return fmt.Sprintf("  %s %s", state, rel)
}

// StatusList renders every target line, one per row
func (r *Renderer) StatusList(statuses []status.TargetStatus, rel func(string) string) string {
	var b strings.Builder
	for _, s := range statuses {
		b.WriteString(r.StatusLine(s, rel(s.Target)) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Finding renders one validation finding
func (r *Renderer) Finding(f validate.Finding, rel string) string {
	sev := fmt.Sprintf("%-5s", string(f.Severity))
	if r.styled() {
		sev = severityStyle(f.Severity).Sprint(sev)
	}
	return fmt.Sprintf("  %s %s: %s", sev, rel, f.Message)
}

// Findings renders a full validation report with a summary line
func (r *Renderer) Findings(report *validate.Report, rel func(string) string) string {
	var b strings.Builder
	for _, f := range report.Findings {
		b.WriteString(r.Finding(f, rel(f.Path)) + "\n")
	}
	b.WriteString(fmt.Sprintf("%d error(s), %d warning(s)\n", report.Errors(), report.Warnings()))
	return strings.TrimRight(b.String(), "\n")
}

// Summary renders the apply result line
func (r *Renderer) Summary(applied, failed int, dryRun bool) string {
	if dryRun {
		return fmt.Sprintf("dry run: %d action(s) planned", applied)
	}
	line := fmt.Sprintf("%d target(s) written", applied)
	if failed > 0 {
		suffix := fmt.Sprintf(", %d failed", failed)
		if r.styled() {
			suffix = pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(suffix)
		}
		line += suffix
	}
	return line
}
