// Package report renders sync reports for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/ui/output"
	"go.trai.ch/trove/internal/ui/style"
)

// Renderer writes sync reports to a writer.
type Renderer struct {
	w   io.Writer
	out *termenv.Output
}

// New creates a Renderer for w. Colors are dropped when w is not a terminal.
func New(w io.Writer) *Renderer {
	return &Renderer{w: w, out: output.NewForWriter(w)}
}

// Render writes one line per changed or failed path followed by a summary.
// Unchanged paths are only counted.
func (r *Renderer) Render(report *domain.SyncReport) error {
	var b strings.Builder

	for _, item := range report.Items {
		switch {
		case item.Diagnostic != nil:
			b.WriteString(r.paint(style.Cross, style.Red))
			b.WriteString(" " + item.Path + " ")
			b.WriteString(r.paint(item.Diagnostic.Kind, style.Red))
			b.WriteString(" " + indent(item.Diagnostic.Message) + "\n")
		case item.Result == domain.Changed:
			b.WriteString(r.paint(style.Tilde, style.Amber))
			b.WriteString(" " + item.Path + " " + item.Result.String() + "\n")
		}
	}

	changed, unchanged, failed := report.Counts()
	if len(report.Items) > 0 && changed+failed > 0 {
		b.WriteString("\n")
	}

	summary := fmt.Sprintf("%d changed, %d unchanged, %d failed", changed, unchanged, failed)
	icon, color := style.Check, style.Green
	if failed > 0 {
		icon, color = style.Cross, style.Red
	}
	b.WriteString(r.paint(icon+" "+summary, color) + "\n")

	_, err := io.WriteString(r.w, b.String())
	return err
}

// RenderJSON writes the report as indented JSON.
func (r *Renderer) RenderJSON(report *domain.SyncReport) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (r *Renderer) paint(s string, color lipgloss.Color) string {
	return r.out.String(s).Foreground(termenv.RGBColor(string(color))).String()
}

// indent aligns continuation lines of multi-line messages.
func indent(message string) string {
	return strings.ReplaceAll(strings.TrimRight(message, "\n"), "\n", "\n    ")
}
