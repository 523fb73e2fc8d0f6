package ui

import (
	"fmt"
	"os"
	"strings"
)

// ConsoleStyle selects the rendering of a console message.
type ConsoleStyle int

const (
	StyleNormal ConsoleStyle = iota
	StyleError
	StyleWarning
	StyleSuccess
	StyleInfo
)

const ansiReset = "\033[0m"

var styleCodes = map[ConsoleStyle]string{
	StyleError:   "\033[1;31m",
	StyleWarning: "\033[33m",
	StyleSuccess: "\033[32m",
	StyleInfo:    "\033[34m",
}

// Console writes styled operator-facing messages, degrading to plain text
// when stderr is not a terminal or NO_COLOR is set.
type Console struct {
	useColors bool
}

func NewConsole() *Console {
	return &Console{
		useColors: isTerminal() && os.Getenv("NO_COLOR") == "",
	}
}

func isTerminal() bool {
	stat, _ := os.Stderr.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func (c *Console) formatMessage(style ConsoleStyle, message string) string {
	if !c.useColors {
		return message
	}
	code, ok := styleCodes[style]
	if !ok {
		return message
	}
	return code + message + ansiReset
}

func (c *Console) PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s\n", c.formatMessage(StyleError, "Error: "+message))
}

func (c *Console) PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "%s\n", c.formatMessage(StyleWarning, "Warning: "+message))
}

func (c *Console) PrintSuccess(message string) {
	fmt.Printf("%s\n", c.formatMessage(StyleSuccess, message))
}

func (c *Console) PrintInfo(message string) {
	fmt.Printf("%s\n", c.formatMessage(StyleInfo, message))
}

// FormatErrorMessage assembles the multi-line context / cause / suggestion
// block shown for provisioning failures. Empty sections are dropped.
func (c *Console) FormatErrorMessage(context, cause, suggestion string) string {
	var parts []string
	if context != "" {
		parts = append(parts, context)
	}
	if cause != "" {
		parts = append(parts, "Cause: "+cause)
	}
	if suggestion != "" {
		parts = append(parts, "Suggestion: "+suggestion)
	}
	return strings.Join(parts, "\n")
}
