// Package bridge exposes named entry points to external sensor sources and
// carries calls to them over MQTT and HTTP.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// MethodRecordSensorMovement is the entry point that takes one accelerometer
// sample in g.
const MethodRecordSensorMovement = "record_sensor_movement"

var (
	// ErrUnknownMethod is returned when calling a name nothing provided.
	ErrUnknownMethod = errors.New("unknown bridge method")

	// ErrBadArity is returned when a call has the wrong number of arguments.
	ErrBadArity = errors.New("wrong number of arguments")

	// ErrBadPayload is returned for payloads DecodeArgs cannot read.
	ErrBadPayload = errors.New("invalid bridge payload")
)

// Func handles a call. args has already been checked against the arity.
type Func func(args []float64) error

type method struct {
	arity int
	fn    Func
}

// Registry holds the named entry points.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]method
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]method)}
}

// Provide registers fn under name, replacing any earlier registration. A
// negative arity accepts any number of arguments.
func (r *Registry) Provide(name string, arity int, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[name] = method{arity: arity, fn: fn}
}

// ProvideSensor registers a three-argument entry point.
func (r *Registry) ProvideSensor(name string, fn func(x, y, z float64)) {
	r.Provide(name, 3, func(args []float64) error {
		fn(args[0], args[1], args[2])
		return nil
	})
}

// Call invokes name with args.
func (r *Registry) Call(name string, args []float64) error {
	r.mu.RLock()
	m, ok := r.methods[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	if m.arity >= 0 && len(args) != m.arity {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrBadArity, name, m.arity, len(args))
	}
	return m.fn(args)
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeArgs reads a call's arguments from either a bare JSON array
// ([x, y, z]) or an object with an "args" array.
func DecodeArgs(payload []byte) ([]float64, error) {
	var args []float64
	if err := json.Unmarshal(payload, &args); err == nil {
		return args, nil
	}

	var wrapped struct {
		Args *[]float64 `json:"args"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if wrapped.Args == nil {
		return nil, fmt.Errorf("%w: missing args", ErrBadPayload)
	}
	return *wrapped.Args, nil
}
