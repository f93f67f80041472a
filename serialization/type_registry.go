package serialization

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/bus6/bus6-go/contracts"
)

// TypeRegistry maps declared type names to concrete message types. Every
// type a consumer expects to decode must be registered explicitly; nothing
// is derived from runtime type parameters.
type TypeRegistry interface {
	// Register registers a message type under a declared type name
	Register(typeName string, msgType contracts.Message) error

	// CreateInstance creates a new pointer instance of the registered type
	CreateInstance(typeName string) (contracts.Message, error)

	// IsRegistered checks if a type name is registered
	IsRegistered(typeName string) bool

	// ListTypes returns all registered type names
	ListTypes() []string
}

// DefaultTypeRegistry is the default implementation of TypeRegistry
type DefaultTypeRegistry struct {
	types map[string]reflect.Type
	mu    sync.RWMutex
}

// NewTypeRegistry creates an empty type registry
func NewTypeRegistry() *DefaultTypeRegistry {
	return &DefaultTypeRegistry{
		types: make(map[string]reflect.Type),
	}
}

// Register registers a message type under a declared type name
func (r *DefaultTypeRegistry) Register(typeName string, msgType contracts.Message) error {
	if typeName == "" {
		return fmt.Errorf("type name cannot be empty")
	}
	if msgType == nil {
		return fmt.Errorf("message type cannot be nil")
	}

	t := reflect.TypeOf(msgType)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("message type must be a struct, got %v", t.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.types[typeName]; exists {
		if existing == t {
			// Same type, ignore
			return nil
		}
		return fmt.Errorf("type name %s already registered to %v", typeName, existing)
	}

	r.types[typeName] = t
	return nil
}

// CreateInstance creates a new pointer instance of the registered type
func (r *DefaultTypeRegistry) CreateInstance(typeName string) (contracts.Message, error) {
	r.mu.RLock()
	t, exists := r.types[typeName]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("type %s not registered", typeName)
	}

	instance, ok := reflect.New(t).Interface().(contracts.Message)
	if !ok {
		return nil, fmt.Errorf("type %s does not implement Message", typeName)
	}
	return instance, nil
}

// IsRegistered checks if a type name is registered
func (r *DefaultTypeRegistry) IsRegistered(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.types[typeName]
	return exists
}

// ListTypes returns all registered type names
func (r *DefaultTypeRegistry) ListTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.types))
	for typeName := range r.types {
		types = append(types, typeName)
	}
	return types
}
