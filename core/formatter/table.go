package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/artpar/modstore/core/module"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatModules prints one row per module.
func (f *TableFormatter) FormatModules(w io.Writer, mods []module.Description, opts FormatOptions) error {
	if len(mods) == 0 {
		fmt.Fprintln(w, "No modules registered.")
		return nil
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = moduleColumns
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !opts.NoHeader {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = strings.ToUpper(col)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, d := range mods {
		record := moduleRecord(d)
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = f.formatValue(record[col], opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// FormatState prints a module's state as field/value pairs.
func (f *TableFormatter) FormatState(w io.Writer, name string, state map[string]any, opts FormatOptions) error {
	if state == nil {
		fmt.Fprintf(w, "Module %q not found.\n", name)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !opts.NoHeader {
		fmt.Fprintf(tw, "MODULE\t%s\n", name)
	}
	for _, field := range stateFields(state, opts.Columns) {
		fmt.Fprintf(tw, "%s:\t%s\n", field, f.formatValue(state[field], opts.MaxWidth))
	}

	return tw.Flush()
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "Error: %s\n", err.Error())
	return werr
}

// formatValue renders one cell.
func (f *TableFormatter) formatValue(val any, maxWidth int) string {
	var str string
	switch v := val.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}
		str = v
	case []string:
		if len(v) == 0 {
			return "-"
		}
		str = strings.Join(v, ",")
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case float64:
		if v == float64(int64(v)) {
			str = fmt.Sprintf("%d", int64(v))
		} else {
			str = fmt.Sprintf("%.2f", v)
		}
	case fmt.Stringer:
		str = v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			str = fmt.Sprintf("%v", v)
		} else {
			str = string(b)
		}
	}

	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}
	return str
}

func init() {
	Register(NewTableFormatter())
}
