// Package report renders a task snapshot as one line per node.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/starford/treesync/internal/models"
)

const (
	// MaxDepth bounds the visit: nodes at this depth or below are dropped.
	MaxDepth = models.MaxDepth
	// TypeWidth is the fixed width of the type column.
	TypeWidth = 8
	// TitleLen caps the rendered title in characters.
	TitleLen = 30
)

// Render writes one line per node of roots down to MaxDepth levels and
// returns the number of lines written.
func Render(w io.Writer, roots []models.TaskNode) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	for _, root := range roots {
		visit(bw, root, 0, &n)
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("write report: %w", err)
	}
	return n, nil
}

func visit(w *bufio.Writer, node models.TaskNode, depth int, n *int) {
	if depth >= MaxDepth {
		return
	}
	w.WriteString(Line(node, depth))
	w.WriteByte('\n')
	*n++
	for _, child := range node.Children {
		visit(w, child, depth+1, n)
	}
}

// Line formats a single node at depth without a trailing newline.
func Line(node models.TaskNode, depth int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&b, "[%-*s] %s - %s | progress=%d%% ",
		TypeWidth, column(string(node.Type)), node.TaskID, truncate(node.Title, TitleLen), node.Progress)
	if depth == 0 {
		fmt.Fprintf(&b, "status=%s ", node.Status)
	}
	fmt.Fprintf(&b, "children=%d", len(node.Children))
	return b.String()
}

func column(t string) string {
	if t == "" {
		return "?"
	}
	return truncate(t, TypeWidth)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
