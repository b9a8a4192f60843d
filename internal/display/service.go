package display

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Service renders status lines for the CLI. Colors are applied only when the
// output is an interactive terminal that has not opted out.
type Service struct {
	out            io.Writer
	colorSupported bool

	success *color.Color
	failure *color.Color
	warning *color.Color
	info    *color.Color
}

// NewService creates a display service writing to out. Color support is
// detected from the environment when out is os.Stdout or os.Stderr; any other
// writer gets plain text.
func NewService(out io.Writer) *Service {
	return &Service{
		out:            out,
		colorSupported: detectColorSupport(out),
		success:        color.New(color.FgGreen),
		failure:        color.New(color.FgRed),
		warning:        color.New(color.FgYellow),
		info:           color.New(color.FgCyan),
	}
}

// NewDefaultService creates a display service writing to stdout
func NewDefaultService() *Service {
	return NewService(os.Stdout)
}

// detectColorSupport checks whether the writer is a color-capable terminal
func detectColorSupport(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(file.Fd()) && !isatty.IsCygwinTerminal(file.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return true
}

// IsColorSupported reports whether output lines carry color codes
func (s *Service) IsColorSupported() bool {
	return s.colorSupported
}

// Success prints a green confirmation line
func (s *Service) Success(format string, args ...interface{}) {
	s.printLine(s.success, "✓", format, args...)
}

// Error prints a red failure line
func (s *Service) Error(format string, args ...interface{}) {
	s.printLine(s.failure, "✗", format, args...)
}

// Warn prints a yellow warning line
func (s *Service) Warn(format string, args ...interface{}) {
	s.printLine(s.warning, "!", format, args...)
}

// Info prints a cyan informational line
func (s *Service) Info(format string, args ...interface{}) {
	s.printLine(s.info, "•", format, args...)
}

// Plain prints an uncolored line
func (s *Service) Plain(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *Service) printLine(clr *color.Color, icon, format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	if s.colorSupported {
		fmt.Fprintln(s.out, clr.Sprintf("%s %s", icon, text))
		return
	}
	fmt.Fprintf(s.out, "%s %s\n", icon, text)
}
