package formatter

import (
	"io"

	"github.com/artpar/modstore/core/module"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output"
}

// FormatModules formats module descriptions as YAML.
func (f *YAMLFormatter) FormatModules(w io.Writer, mods []module.Description, opts FormatOptions) error {
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
	})
}

// FormatState formats a module's state as YAML.
func (f *YAMLFormatter) FormatState(w io.Writer, name string, state map[string]any, opts FormatOptions) error {
	var data any
	if state != nil {
		data = pick(state, opts.Columns)
	}
	return f.encode(w, map[string]any{
		"module": name,
		"data":   data,
	})
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()})
}

func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register(NewYAMLFormatter())
}
