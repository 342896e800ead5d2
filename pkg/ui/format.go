// Package ui renders confit's command output: styled status lines and
// report blocks on capable terminals, plain text when piped or when the
// user opts out of color.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Format selects the output rendering mode
type Format int

const (
	// FormatAuto picks terminal or plain based on the output's capabilities
	FormatAuto Format = iota
	// FormatTerminal renders with colors and styling
	FormatTerminal
	// FormatText renders plain text
	FormatText
	// FormatJSON renders machine-readable JSON
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatTerminal:
		return "term"
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat parses a --format flag value
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return FormatAuto, nil
	case "term", "terminal":
		return FormatTerminal, nil
	case "text", "plain":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatAuto, fmt.Errorf("unknown format: %s", s)
	}
}

// DetectFormat resolves FormatAuto against the actual output: NO_COLOR,
// pipes and color-blind terminals all degrade to plain text.
func DetectFormat(output *os.File) Format {
	if os.Getenv("NO_COLOR") != "" {
		return FormatText
	}
	if !isatty.IsTerminal(output.Fd()) && !isatty.IsCygwinTerminal(output.Fd()) {
		return FormatText
	}
	if termenv.ColorProfile() == termenv.Ascii {
		return FormatText
	}
	return FormatTerminal
}

// Resolve turns a requested format into a concrete one for the given output
func Resolve(requested Format, output *os.File) Format {
	if requested == FormatAuto {
		return DetectFormat(output)
	}
	return requested
}
