package scan

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoAnalyzers is returned when a selection resolves to nothing.
var ErrNoAnalyzers = errors.New("no valid analyzers specified")

// Registry indexes analyzers by lowercase name.
type Registry struct {
	analyzers map[string]Analyzer
}

// NewRegistry registers the given analyzers. Later duplicates are ignored.
func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{analyzers: make(map[string]Analyzer)}
	for _, a := range analyzers {
		r.Register(a)
	}
	return r
}

// Register adds a unless an analyzer with the same name exists. It reports
// whether a was added.
func (r *Registry) Register(a Analyzer) bool {
	key := strings.ToLower(a.Name())
	if _, exists := r.analyzers[key]; exists {
		return false
	}
	r.analyzers[key] = a
	return true
}

// Get returns the analyzer called name.
func (r *Registry) Get(name string) (Analyzer, bool) {
	a, ok := r.analyzers[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.analyzers))
	for name := range r.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// For returns the registered analyzers supporting target, sorted by name.
func (r *Registry) For(target Target) []Analyzer {
	var out []Analyzer
	for _, name := range r.Names() {
		if a := r.analyzers[name]; a.Supports(target) {
			out = append(out, a)
		}
	}
	return out
}

// Select resolves names, given in order and case-insensitively, to
// analyzers supporting target. Unknown or unsuitable names produce a
// warning and are skipped; duplicates are dropped. If nothing remains
// ErrNoAnalyzers is returned.
func (r *Registry) Select(names []string, target Target) ([]Analyzer, []string, error) {
	var selected []Analyzer
	var warnings []string
	seen := make(map[string]bool)

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		a, ok := r.analyzers[name]
		switch {
		case !ok:
			warnings = append(warnings, "Unknown analyzer '"+name+"', skipping")
		case !a.Supports(target):
			warnings = append(warnings, "Analyzer '"+name+"' does not support "+string(target)+", skipping")
		default:
			selected = append(selected, a)
		}
	}

	if len(selected) == 0 {
		return nil, warnings, ErrNoAnalyzers
	}
	return selected, warnings, nil
}

// SplitNames splits a comma-separated analyzer list.
func SplitNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// LoadRegistry discovers external analyzers and registers them after the
// given built-ins, so built-in names cannot be shadowed.
func LoadRegistry(ctx context.Context, d *Discovery, builtins ...Analyzer) (*Registry, error) {
	r := NewRegistry(builtins...)
	external, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range external {
		r.Register(a)
	}
	return r, nil
}
