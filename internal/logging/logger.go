// Package logging builds the slog loggers shared by grove components.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type settings struct {
	w      io.Writer
	format string
}

// Option adjusts the logger built by New.
type Option func(*settings)

// WithWriter sends records to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		s.w = w
	}
}

// WithFormat selects FormatText (default) or FormatJSON.
func WithFormat(format string) Option {
	return func(s *settings) {
		s.format = format
	}
}

// New creates the process logger. Records go to stderr so stdout stays free
// for command output and the MCP stdio transport. An "error" attribute is
// renamed to "err".
func New(level slog.Level, opts ...Option) *slog.Logger {
	s := settings{w: os.Stderr, format: FormatText}
	for _, opt := range opts {
		opt(&s)
	}

	ho := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if s.format == FormatJSON {
		return slog.New(slog.NewJSONHandler(s.w, ho))
	}
	return slog.New(slog.NewTextHandler(s.w, ho))
}

// ValidateFormat reports whether format is one New understands.
func ValidateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON:
		return nil
	}
	return fmt.Errorf("unknown log format %q", format)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
