package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/born-ml/collate/internal/batch"
	"github.com/born-ml/collate/internal/shm"
)

type treeStyle struct {
	key    lipgloss.Style
	tensor lipgloss.Style
	other  lipgloss.Style
}

func plainStyle() treeStyle {
	return treeStyle{key: lipgloss.NewStyle(), tensor: lipgloss.NewStyle(), other: lipgloss.NewStyle()}
}

func colorStyle() treeStyle {
	return treeStyle{
		key:    lipgloss.NewStyle().Bold(true),
		tensor: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		other:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// renderTree prints the structure of v, one node per line.
func renderTree(w io.Writer, v batch.Value) error {
	style := plainStyle()
	if isWriterTerminal(w) {
		style = colorStyle()
	}

	var b strings.Builder
	b.WriteString(style.key.Render("batch"))
	if d := describe(style, v); d != "" {
		b.WriteString("  " + d)
	}
	b.WriteString("\n")
	writeChildren(&b, style, v, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeChildren(b *strings.Builder, style treeStyle, v batch.Value, indent string) {
	var names []string
	var children []batch.Value
	switch n := v.(type) {
	case batch.Map:
		for _, k := range n.Keys() {
			names = append(names, k)
			children = append(children, n[k])
		}
	case batch.List:
		for i, e := range n {
			names = append(names, fmt.Sprint(i))
			children = append(children, e)
		}
	default:
		return
	}

	for i, c := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}
		b.WriteString(indent + branch + style.key.Render(names[i]))
		if d := describe(style, c); d != "" {
			b.WriteString("  " + d)
		}
		b.WriteString("\n")
		writeChildren(b, style, c, indent+next)
	}
}

func describe(style treeStyle, v batch.Value) string {
	switch n := v.(type) {
	case batch.Map:
		return ""
	case batch.List:
		return style.other.Render(fmt.Sprintf("list[%d]", len(n)))
	case batch.Tensor:
		s := n.String()
		if st, ok := n.Array.(*shm.Tensor); ok {
			s += " shared " + st.Descriptor().Path
		}
		return style.tensor.Render(s)
	case batch.Opaque:
		return style.other.Render(fmt.Sprintf("%v", n.V))
	default:
		return ""
	}
}
