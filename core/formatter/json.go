package formatter

import (
	"encoding/json"
	"io"

	"github.com/artpar/modstore/core/module"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output"
}

// FormatModules writes {"count": n, "modules": [...]}.
func (f *JSONFormatter) FormatModules(w io.Writer, mods []module.Description, opts FormatOptions) error {
	var data any = mods
	if len(opts.Columns) > 0 {
		records := make([]map[string]any, len(mods))
		for i, d := range mods {
			records[i] = pick(moduleRecord(d), opts.Columns)
		}
		data = records
	}
	if mods == nil {
		data = []module.Description{}
	}

	return f.encode(w, map[string]any{
		"count":   len(mods),
		"modules": data,
	}, opts.Compact)
}

// FormatState writes {"module": name, "data": {...}}.
func (f *JSONFormatter) FormatState(w io.Writer, name string, state map[string]any, opts FormatOptions) error {
	var data any
	if state != nil {
		data = pick(state, opts.Columns)
	}
	return f.encode(w, map[string]any{
		"module": name,
		"data":   data,
	}, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()}, false)
}

func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	Register(NewJSONFormatter())
}
