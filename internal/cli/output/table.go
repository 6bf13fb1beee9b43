package output

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/yndnr/memkv-go/internal/telemetry/logger"
)

// TableFormatter formats records as an aligned table.
type TableFormatter struct {
	// Wide prints full values instead of a short preview.
	Wide      bool
	NoHeaders bool
}

// Format formats data as a table.
// Supports: *Table, Table, Record, []Record.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case *Table:
		return v.RenderWithOptions(w, f.NoHeaders)
	case Table:
		return v.RenderWithOptions(w, f.NoHeaders)
	case Record:
		return f.recordsTable([]Record{v}).RenderWithOptions(w, f.NoHeaders)
	case []Record:
		return f.recordsTable(v).RenderWithOptions(w, f.NoHeaders)
	default:
		return fmt.Errorf("table output: unsupported type %T", data)
	}
}

func (f *TableFormatter) recordsTable(recs []Record) *Table {
	t := &Table{Headers: []string{"KEY", "METADATA", "LENGTH", "VALUE"}}
	for _, rec := range recs {
		value := rec.Value
		if !f.Wide {
			value = logger.PreviewPayload([]byte(value))
		}
		t.AddRow(rec.Key, strconv.FormatInt(rec.Metadata, 10), strconv.FormatInt(rec.Length, 10), value)
	}
	return t
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table with options.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !noHeaders && len(t.Headers) > 0 {
		writeCells(tw, t.Headers)
	}
	for _, row := range t.Rows {
		writeCells(tw, row)
	}

	return tw.Flush()
}

func writeCells(w io.Writer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			io.WriteString(w, "\t")
		}
		io.WriteString(w, cell)
	}
	io.WriteString(w, "\n")
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// SetHeaders sets the table headers.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}
