// Package output renders acfgen results for the terminal and formats raw app
// info as VDF, JSON or YAML.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

// Formatter writes an app info tree in one textual format.
type Formatter interface {
	Format(w *bytes.Buffer, n *vdf.Node) error
}

// FormatterFactory creates a Formatter.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown format: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted names of all registered formatters.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// VDFFormatter writes the tree in KeyValues text form.
type VDFFormatter struct {
	Options vdf.Options
}

// Format writes n using the configured stringify options.
func (f *VDFFormatter) Format(w *bytes.Buffer, n *vdf.Node) error {
	w.WriteString(vdf.Stringify(n, f.Options))
	return nil
}

// JSONFormatter writes the tree as indented JSON.
type JSONFormatter struct{}

// Format writes n as JSON with keys in document order.
func (f *JSONFormatter) Format(w *bytes.Buffer, n *vdf.Node) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	w.Write(data)
	w.WriteByte('\n')
	return nil
}

// YAMLFormatter writes the tree as YAML.
type YAMLFormatter struct{}

// Format writes n as YAML with keys in document order.
func (f *YAMLFormatter) Format(w *bytes.Buffer, n *vdf.Node) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(n); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return encoder.Close()
}

func init() {
	Register("vdf", func() Formatter { return &VDFFormatter{Options: vdf.DefaultOptions()} })
	Register("json", func() Formatter { return &JSONFormatter{} })
	Register("yaml", func() Formatter { return &YAMLFormatter{} })
}

var (
	_ Formatter = (*VDFFormatter)(nil)
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
)
