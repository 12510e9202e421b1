package mlmodel

import (
	"context"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/cutout/logging"
)

// Constructor builds a Service from raw attributes.
type Constructor func(ctx context.Context, attributes map[string]interface{}, logger logging.Logger) (Service, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// RegisterBackend registers a model backend under name. It panics on duplicates.
func RegisterBackend(name string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(errors.Errorf("model backend %q already registered", name))
	}
	registry[name] = c
}

// Backends returns the registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named backend.
func New(ctx context.Context, backend string, attributes map[string]interface{}, logger logging.Logger) (Service, error) {
	registryMu.RLock()
	c, ok := registry[backend]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown model backend %q, have %v", backend, Backends())
	}
	return c(ctx, attributes, logger)
}

// DecodeAttributes decodes raw attributes into T using json tags. Unknown keys are an error.
func DecodeAttributes[T any](attributes map[string]interface{}) (T, error) {
	var out T
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		Metadata:         &md,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return out, err
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return out, errors.Errorf("unknown model attributes %v", md.Unused)
	}
	return out, nil
}
