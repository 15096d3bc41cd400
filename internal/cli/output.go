package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.Faint)
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSuccess(w io.Writer, format string, args ...interface{}) {
	successColor.Fprintf(w, format+"\n", args...)
}

func printError(w io.Writer, format string, args ...interface{}) {
	errorColor.Fprintf(w, "error: "+format+"\n", args...)
}

// table prints left-aligned columns sized to their widest cell.
type table struct {
	headers []string
	rows    [][]string
	widths  []int
}

func newTable(headers ...string) *table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &table{headers: headers, widths: widths}
}

func (t *table) addRow(cells ...string) {
	for i, c := range cells {
		if i < len(t.widths) && len(c) > t.widths[i] {
			t.widths[i] = len(c)
		}
	}
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) {
	for i, h := range t.headers {
		headerColor.Fprintf(w, "%-*s  ", t.widths[i], h)
	}
	fmt.Fprintln(w)
	for i := range t.headers {
		fmt.Fprint(w, strings.Repeat("-", t.widths[i]), "  ")
	}
	fmt.Fprintln(w)
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(t.widths) {
				fmt.Fprintf(w, "%-*s  ", t.widths[i], c)
			}
		}
		fmt.Fprintln(w)
	}
}
