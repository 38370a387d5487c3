// Package serializer converts cached values to and from byte slices so they can
// be exchanged with remote stores. It ships a registry pre-populated with JSON,
// msgpack and CBOR implementations.
package serializer

import (
	"maps"
	"slices"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/lexcache/internal/sentinel"
)

const (
	// JSON is the name of the goccy/go-json serializer.
	JSON = "json"
	// Msgpack is the name of the shamaton/msgpack serializer.
	Msgpack = "msgpack"
	// CBOR is the name of the ugorji CBOR serializer.
	CBOR = "cbor"
	// Default is an alias of JSON.
	Default = "default"
)

// ISerializer is the interface that wraps the basic serializer methods.
type ISerializer interface {
	// Marshal serializes the given value into a byte slice.
	Marshal(v any) ([]byte, error)
	// Unmarshal deserializes the given byte slice into the value pointed to by v.
	Unmarshal(data []byte, v any) error
}

// Registry manages serializer constructors.
type Registry struct {
	serializers map[string]func() ISerializer
}

// getDefaultSerializers returns the default set of serializers.
func getDefaultSerializers() map[string]func() ISerializer {
	return map[string]func() ISerializer{
		Default: func() ISerializer { return &JSONSerializer{} },
		JSON:    func() ISerializer { return &JSONSerializer{} },
		Msgpack: func() ISerializer { return &MsgpackSerializer{} },
		CBOR:    func() ISerializer { return NewCBORSerializer() },
	}
}

// NewSerializerRegistry creates a new serializer registry with default serializers pre-registered.
func NewSerializerRegistry() *Registry {
	registry := NewEmptySerializerRegistry()
	maps.Copy(registry.serializers, getDefaultSerializers())

	return registry
}

// NewEmptySerializerRegistry creates a new serializer registry without default serializers.
func NewEmptySerializerRegistry() *Registry {
	return &Registry{
		serializers: make(map[string]func() ISerializer),
	}
}

// Register registers a new serializer with the given name.
func (r *Registry) Register(serializerType string, createFunc func() ISerializer) {
	r.serializers[serializerType] = createFunc
}

// Names returns the registered serializer names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.serializers))
}

// New returns a new serializer based on the serializerType.
func (r *Registry) New(serializerType string) (ISerializer, error) {
	if serializerType == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "serializerType")
	}

	createFunc, ok := r.serializers[serializerType]
	if !ok {
		return nil, ewrap.Wrap(sentinel.ErrSerializerNotFound, serializerType)
	}

	return createFunc(), nil
}

// New returns a new serializer using a new registry instance with default serializers.
func New(serializerType string) (ISerializer, error) {
	return NewSerializerRegistry().New(serializerType)
}
