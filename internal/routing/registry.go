// Package routing names the service's URLs and reverses names back to paths.
package routing

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/autofilter/internal/domain"
)

// Route names served by the autofilter application itself.
const (
	IndexRoute             = "autofilter:index"
	FieldAutocompleteRoute = "autofilter:field_autocomplete"
)

// FallbackNamespace is tried first when resolving a collection's autocomplete URL.
const FallbackNamespace = "admin"

// AutocompleteName returns the route name of a collection's autocomplete endpoint.
func AutocompleteName(namespace, collection string) string {
	return namespace + ":" + collection + "_autocomplete"
}

// ChangelistName returns the route name of a collection's changelist.
func ChangelistName(namespace, collection string) string {
	return namespace + ":" + collection + "_changelist"
}

// Registry maps route names to paths. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	routes map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{routes: make(map[string]string)}
}

// Register binds name to path. Re-registering a name is an error.
func (r *Registry) Register(name, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.routes[name]; ok {
		return fmt.Errorf("route %q already registered as %s", name, existing)
	}
	r.routes[name] = path
	return nil
}

// Reverse returns the path registered for name.
func (r *Registry) Reverse(name string) (string, error) {
	r.mu.RLock()
	path, ok := r.routes[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrNoReverseMatch, name)
	}
	return path, nil
}

// ResolveAutocomplete finds the autocomplete URL for a collection: under the
// "admin" namespace first, then under the namespace of the current request.
func (r *Registry) ResolveAutocomplete(namespace, collection string) (string, error) {
	if path, err := r.Reverse(AutocompleteName(FallbackNamespace, collection)); err == nil {
		return path, nil
	}
	path, err := r.Reverse(AutocompleteName(namespace, collection))
	if err != nil {
		return "", err
	}
	return path, nil
}

// Names lists the registered route names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.routes))
	for n := range r.routes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
