package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/grove/pkg/domain"
)

// GraphOverlay marks a selected node on the graph. Its ancestors are
// styled as visited, the node itself as current.
type GraphOverlay struct {
	Selected domain.IndexPath
	// Request is the index of a selected request inside Selected, or -1.
	Request int
}

// GenerateMermaid produces a Mermaid flowchart of the collection tree.
// It applies semantic styling:
// - Root collection: [(Database)]
// - Folder: [Rectangle]
// - Request: [/Parallelogram/] labelled with its method
// Node ids are derived from index paths, so they are only stable until
// the next structural change.
func GenerateMermaid(tree []domain.Collection, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i := range tree {
		writeCollection(&sb, &tree[i], domain.IndexPath{i})
	}

	if overlay != nil && len(overlay.Selected) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		sel := overlay.Selected
		for n := 1; n < len(sel); n++ {
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", collectionID(sel[:n])))
		}
		if overlay.Request >= 0 {
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", collectionID(sel)))
			sb.WriteString(fmt.Sprintf("    class %s current;\n", requestID(sel, overlay.Request)))
		} else {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", collectionID(sel)))
		}
	}

	return sb.String()
}

func writeCollection(sb *strings.Builder, c *domain.Collection, path domain.IndexPath) {
	id := collectionID(path)
	opener, closer := "[", "]"
	if len(path) == 1 {
		opener, closer = "[(", ")]"
	}
	sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, escapeLabel(c.Name), closer))

	for i := range c.Folders {
		child := path.Append(i)
		writeCollection(sb, &c.Folders[i], child)
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", id, collectionID(child)))
	}
	for i, r := range c.Requests {
		rid := requestID(path, i)
		sb.WriteString(fmt.Sprintf("    %s[/\"%s %s\"/]\n", rid, r.Method, escapeLabel(r.Name)))
		sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", id, rid))
	}
}

func collectionID(path domain.IndexPath) string {
	return "c_" + strings.ReplaceAll(path.String(), "/", "_")
}

func requestID(owner domain.IndexPath, idx int) string {
	return fmt.Sprintf("r_%s_%d", strings.ReplaceAll(owner.String(), "/", "_"), idx)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
