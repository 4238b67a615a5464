package service

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
)

// OptionsParser decodes a service's raw TOML options into its concrete
// options struct.
type OptionsParser func(meta *toml.MetaData, primitive toml.Primitive) (interface{}, error)

var optionsParsers = struct {
	mu      sync.RWMutex
	parsers map[ServiceType]OptionsParser
}{
	parsers: make(map[ServiceType]OptionsParser),
}

// RegisterOptionsParser registers the options parser for a service type.
func RegisterOptionsParser(serviceType ServiceType, parser OptionsParser) {
	optionsParsers.mu.Lock()
	defer optionsParsers.mu.Unlock()
	optionsParsers.parsers[serviceType] = parser
}

// GetOptionsParser returns the parser registered for a service type.
func GetOptionsParser(serviceType ServiceType) (OptionsParser, bool) {
	optionsParsers.mu.RLock()
	defer optionsParsers.mu.RUnlock()
	parser, ok := optionsParsers.parsers[serviceType]
	return parser, ok
}

// ParseOptions decodes a TOML primitive into the options struct T.
func ParseOptions[T any](meta *toml.MetaData, primitive toml.Primitive, typeName ServiceType) (*T, error) {
	var opts T
	if err := meta.PrimitiveDecode(primitive, &opts); err != nil {
		return nil, fmt.Errorf("decode %s options: %w", typeName, err)
	}
	return &opts, nil
}
