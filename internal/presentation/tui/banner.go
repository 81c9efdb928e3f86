package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the grove banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.EnvColorProfile()
	lines := []struct {
		text, color string
	}{
		{"   __ _ _ __ _____   _____ ", "#34d399"},
		{"  / _` | '__/ _ \\ \\ / / _ \\", "#10b981"},
		{" | (_| | | | (_) \\ V /  __/", "#059669"},
		{"  \\__, |_|  \\___/ \\_/ \\___|", "#047857"},
		{"  |___/                    ", "#065f46"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
