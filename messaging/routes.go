package messaging

import (
	"strings"
	"sync"

	"github.com/bus6/bus6-go/contracts"
)

// Route is the publish destination for one message type
type Route struct {
	Exchange   string
	RoutingKey string
}

// DefaultRoute derives the conventional route for a declared type name:
// exchange "bus6.<lowercased name>", routing key "<lowercased name>". The
// convention is a naming default, not a protocol requirement.
func DefaultRoute(typeName string) Route {
	name := strings.ToLower(typeName)
	return Route{
		Exchange:   "bus6." + name,
		RoutingKey: name,
	}
}

// RouteRegistry maps declared type names to explicit routes. Types without
// an entry fall back to the default convention.
type RouteRegistry struct {
	mu     sync.RWMutex
	routes map[string]Route
}

// NewRouteRegistry creates an empty route registry
func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{
		routes: make(map[string]Route),
	}
}

// Register sets an explicit route for a declared type name
func (r *RouteRegistry) Register(typeName string, route Route) error {
	if typeName == "" {
		return contracts.NewValidationError("typeName", "must not be empty")
	}
	if route.Exchange == "" {
		return contracts.NewValidationError("route.Exchange", "must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[typeName] = route
	return nil
}

// Resolve returns the registered route for a type name, or the default
// convention when none is registered.
func (r *RouteRegistry) Resolve(typeName string) Route {
	r.mu.RLock()
	route, exists := r.routes[typeName]
	r.mu.RUnlock()

	if exists {
		return route
	}
	return DefaultRoute(typeName)
}
