package serialization

import (
	"encoding/json"
	"fmt"

	"github.com/bus6/bus6-go/contracts"
)

// MessageSerializer converts messages to and from wire payloads. Field
// names on the wire follow the lowerCamelCase convention of the message
// structs' JSON tags so producers and consumers in other components
// interoperate.
type MessageSerializer interface {
	// Serialize serializes a message to bytes
	Serialize(msg contracts.Message) ([]byte, error)

	// Deserialize deserializes bytes into the registered concrete type
	Deserialize(data []byte) (contracts.Message, error)

	// ContentType returns the wire content type
	ContentType() string
}

// JSONSerializer implements MessageSerializer using encoding/json. All
// options are fixed at construction; there is no shared mutable state.
type JSONSerializer struct {
	registry      TypeRegistry
	prettyPrint   bool
	typeFieldName string
}

// JSONSerializerOption configures the JSON serializer
type JSONSerializerOption func(*JSONSerializer)

// WithTypeRegistry sets the type registry used for decode-side lookup
func WithTypeRegistry(registry TypeRegistry) JSONSerializerOption {
	return func(s *JSONSerializer) {
		s.registry = registry
	}
}

// WithPrettyPrint enables indented output
func WithPrettyPrint(pretty bool) JSONSerializerOption {
	return func(s *JSONSerializer) {
		s.prettyPrint = pretty
	}
}

// WithTypeFieldName sets the payload field carrying the declared type name
func WithTypeFieldName(name string) JSONSerializerOption {
	return func(s *JSONSerializer) {
		s.typeFieldName = name
	}
}

// NewJSONSerializer creates a new JSON serializer
func NewJSONSerializer(opts ...JSONSerializerOption) *JSONSerializer {
	s := &JSONSerializer{
		registry:      NewTypeRegistry(),
		prettyPrint:   false,
		typeFieldName: "type",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Registry returns the serializer's type registry
func (s *JSONSerializer) Registry() TypeRegistry {
	return s.registry
}

// ContentType returns the wire content type
func (s *JSONSerializer) ContentType() string {
	return "application/json"
}

// Serialize serializes a message to bytes
func (s *JSONSerializer) Serialize(msg contracts.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}

	if s.prettyPrint {
		return json.MarshalIndent(msg, "", "  ")
	}
	return json.Marshal(msg)
}

// Deserialize deserializes bytes into the registered concrete type. The
// declared type name is read from the payload's type field; unregistered
// types fall back to a bare BaseMessage.
func (s *JSONSerializer) Deserialize(data []byte) (contracts.Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	var typeName string
	if raw, exists := probe[s.typeFieldName]; exists {
		if err := json.Unmarshal(raw, &typeName); err != nil {
			return nil, fmt.Errorf("invalid type field: %w", err)
		}
	}

	if typeName != "" && s.registry.IsRegistered(typeName) {
		instance, err := s.registry.CreateInstance(typeName)
		if err != nil {
			return nil, fmt.Errorf("failed to create instance: %w", err)
		}
		if err := json.Unmarshal(data, instance); err != nil {
			return nil, fmt.Errorf("failed to unmarshal into type %s: %w", typeName, err)
		}
		return instance, nil
	}

	msg := &contracts.BaseMessage{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal as BaseMessage: %w", err)
	}
	return msg, nil
}
