package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/grove/pkg/domain"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const defaultWidth = 80

// NewRenderer returns a function that renders markdown using glamour,
// wrapped at width columns.
func NewRenderer(width int) func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return "", fmt.Errorf("init renderer: %w", err)
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// Outline renders the tree as a nested markdown list. Requests show their
// method in code spans.
func Outline(title string, tree []domain.Collection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if len(tree) == 0 {
		sb.WriteString("_No collections._\n")
		return sb.String()
	}
	for i := range tree {
		outline(&sb, &tree[i], 0)
	}
	return sb.String()
}

func outline(sb *strings.Builder, c *domain.Collection, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s- **%s**\n", indent, c.Name)
	for i := range c.Folders {
		outline(sb, &c.Folders[i], depth+1)
	}
	for _, r := range c.Requests {
		fmt.Fprintf(sb, "%s  - `%s` %s\n", indent, r.Method, r.Name)
	}
}

// PrintTree writes the outline of tree to out. Terminals get the glamour
// rendering sized to the window; anything else gets the raw markdown.
func PrintTree(out *os.File, title string, tree []domain.Collection) error {
	md := Outline(title, tree)
	fd := int(out.Fd())
	if !term.IsTerminal(fd) {
		_, err := io.WriteString(out, md)
		return err
	}

	width := defaultWidth
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	rendered, err := NewRenderer(width)(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, rendered)
	return err
}
