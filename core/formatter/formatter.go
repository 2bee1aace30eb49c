// Package formatter renders module descriptions and state snapshots for the
// command line and the debug endpoints.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/modstore/core/module"
)

// Formatter renders store data in one output format.
type Formatter interface {
	// Name returns the format name used on the command line ("table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatModules renders a list of module descriptions.
	FormatModules(w io.Writer, mods []module.Description, opts FormatOptions) error

	// FormatState renders the state of one module. A nil state means the
	// module does not exist.
	FormatState(w io.Writer, name string, state map[string]any, opts FormatOptions) error

	// FormatError renders an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures rendering.
type FormatOptions struct {
	// Columns limits the output to these fields (nil = all).
	Columns []string

	// NoHeader drops the header row of tabular output.
	NoHeader bool

	// Compact minimizes whitespace in json output.
	Compact bool

	// MaxWidth truncates long table cells (0 = no limit).
	MaxWidth int
}

// Registry holds the available formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates an empty registry defaulting to "table".
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}
	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter, or nil when none is registered.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.formatters[r.defaultFmt]; ok {
		return f
	}
	for _, name := range r.sortedNames() {
		return r.formatters[name]
	}
	return nil
}

// SetDefault changes the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}
	r.defaultFmt = name
	return nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default registry's default formatter.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns the names in the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// moduleColumns are the fields of a module description, in display order.
var moduleColumns = []string{"name", "type", "state", "references", "getters", "mutators", "actions", "setters", "onload"}

// moduleRecord flattens a description into named columns.
func moduleRecord(d module.Description) map[string]any {
	return map[string]any{
		"name":       d.Name,
		"type":       d.Type,
		"lineage":    d.Lineage,
		"state":      d.State,
		"references": d.References,
		"getters":    d.Getters,
		"mutators":   d.Mutators,
		"actions":    d.Actions,
		"locals":     d.Locals,
		"setters":    d.Setters,
		"onload":     d.Onload,
	}
}

// pick keeps only columns present in record. Empty columns keep everything.
func pick(record map[string]any, columns []string) map[string]any {
	if len(columns) == 0 {
		return record
	}
	out := make(map[string]any, len(columns))
	for _, col := range columns {
		if v, ok := record[col]; ok {
			out[col] = v
		}
	}
	return out
}

// stateFields returns the fields of state to render, sorted unless columns
// fixes the order.
func stateFields(state map[string]any, columns []string) []string {
	if len(columns) > 0 {
		return columns
	}
	fields := make([]string, 0, len(state))
	for k := range state {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}
