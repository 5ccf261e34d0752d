package commands

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// printer writes the shared CLI output format to one writer
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) printer {
	return printer{w: w}
}

// Header prints a boxed title
func (p printer) Header(title string) {
	fmt.Fprintln(p.w)
	p.DoubleSeparator()
	fmt.Fprintf(p.w, "  %s\n", title)
	p.Separator()
}

// Separator prints a visual separator
func (p printer) Separator() {
	fmt.Fprintln(p.w, "───────────────────────────────────────────────────────────")
}

// DoubleSeparator prints a double-line separator
func (p printer) DoubleSeparator() {
	fmt.Fprintln(p.w, "═══════════════════════════════════════════════════════════")
}

// Warning prints a warning message
func (p printer) Warning(message string) {
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "⚠️  %s\n", message)
	fmt.Fprintln(p.w)
}

// Success prints a success message
func (p printer) Success(message string) {
	fmt.Fprintf(p.w, "✅ %s\n", message)
}

// Error prints an error message
func (p printer) Error(message string) {
	fmt.Fprintf(p.w, "❌ %s\n", message)
}

// Info prints an info message
func (p printer) Info(message string) {
	fmt.Fprintf(p.w, "ℹ️  %s\n", message)
}

// KeyValue prints key-value pairs
func (p printer) KeyValue(key string, value string, keyWidth int) {
	fmt.Fprintf(p.w, "   %-*s : %s\n", keyWidth, key, value)
}

// Table prints columns sized to their widest cell.
// Cells after the first are right aligned, which suits numbers.
func (p printer) Table(columns []string, rows [][]string) {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	for _, row := range rows {
		for i, val := range row {
			if n := utf8.RuneCountInString(val); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	p.tableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(p.w, strings.Repeat("─", totalWidth))

	for _, row := range rows {
		p.tableRow(row, widths)
	}
}

func (p printer) tableRow(values []string, widths []int) {
	var b strings.Builder
	for i, val := range values {
		pad := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(val))
		if i == 0 {
			b.WriteString(val + pad)
		} else {
			b.WriteString(pad + val)
		}
		if i < len(values)-1 {
			b.WriteString("  ")
		}
	}
	fmt.Fprintln(p.w, strings.TrimRight(b.String(), " "))
}
