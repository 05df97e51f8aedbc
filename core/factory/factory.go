package factory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
)

var (
	// ErrUnknownType is returned by Create for a type nobody registered.
	ErrUnknownType = errors.New("unknown component type")
	// ErrDuplicate is returned by Register when the name is taken.
	ErrDuplicate = errors.New("component type already registered")
)

// Spec selects a component by type and carries its settings, e.g.
//
//	sinks:
//	  - type: influx
//	    conf: {url: http://influx:8086, bucket: telemetry}
type Spec struct {
	Type string         `json:"type" yaml:"type"`
	Conf map[string]any `json:"conf" yaml:"conf"`
}

// Builder constructs a T from the settings of a Spec. conf is never nil.
type Builder[T any] func(conf map[string]any) (T, error)

// Registry maps type names to builders. Names are case-insensitive.
type Registry[T any] struct {
	mu       sync.RWMutex
	builders map[string]Builder[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{builders: make(map[string]Builder[T])}
}

func normalize(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Register adds b under name.
func (r *Registry[T]) Register(name string, b Builder[T]) error {
	key := normalize(name)
	if key == "" {
		return errors.New("component type name is empty")
	}
	if b == nil {
		return fmt.Errorf("nil builder for %s", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}
	r.builders[key] = b
	return nil
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[normalize(name)]
	return ok
}

// Names returns the registered type names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.builders))
	for n := range r.builders {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Create builds the component described by spec. The error for an unknown
// type lists the registered ones.
func (r *Registry[T]) Create(spec Spec) (T, error) {
	r.mu.RLock()
	b, ok := r.builders[normalize(spec.Type)]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w %q (available: %s)", ErrUnknownType, spec.Type, strings.Join(r.Names(), ", "))
	}
	conf := spec.Conf
	if conf == nil {
		conf = map[string]any{}
	}
	return b(conf)
}

// Decode copies conf into out using json tags. Strings convert to numbers,
// booleans and durations ("5s"), so values set through environment
// overrides decode too. Keys with no matching field are an error.
func Decode(conf map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(conf)
}
