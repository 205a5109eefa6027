package bands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Registry maps table names to compiled engines.
// Replacing a table compiles the new engine first and then swaps it in,
// so readers never observe a half-built table.
type Registry struct {
	engines map[string]*Engine
	mu      sync.RWMutex
}

// NewRegistry compiles the given tables into a registry.
func NewRegistry(tables ...Table) (*Registry, error) {
	r := &Registry{engines: make(map[string]*Engine, len(tables))}
	for _, t := range tables {
		if err := r.Put(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefaultRegistry returns a registry holding the built-in tables.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultTables()...)
	if err != nil {
		panic(fmt.Sprintf("built-in band tables failed to compile: %v", err))
	}
	return r
}

// Put compiles t and installs it, replacing any table with the same name.
func (r *Registry) Put(t Table) error {
	en, err := NewEngine(t)
	if err != nil {
		return fmt.Errorf("failed to compile table %s: %w", t.Name, err)
	}

	r.mu.Lock()
	r.engines[t.Name] = en
	r.mu.Unlock()

	return nil
}

// Get returns the engine for a table.
func (r *Registry) Get(name string) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	en, exists := r.engines[name]
	if !exists {
		return nil, fmt.Errorf("band table %s not found", name)
	}
	return en, nil
}

// Names returns the loaded table names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tables returns copies of every loaded table, sorted by name.
func (r *Registry) Tables() []Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]Table, 0, len(r.engines))
	for _, en := range r.engines {
		tables = append(tables, en.Table())
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables
}

// LoadFile reads a JSON array of tables and installs them.
// Either every table in the file is installed or none is.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read band file: %w", err)
	}

	var tables []Table
	if err := json.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("failed to parse band file %s: %w", path, err)
	}

	compiled := make([]*Engine, 0, len(tables))
	for _, t := range tables {
		en, err := NewEngine(t)
		if err != nil {
			return fmt.Errorf("failed to compile table %s: %w", t.Name, err)
		}
		compiled = append(compiled, en)
	}

	r.mu.Lock()
	for _, en := range compiled {
		r.engines[en.Name()] = en
	}
	r.mu.Unlock()

	return nil
}
