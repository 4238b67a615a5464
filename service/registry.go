package service

import (
	"fmt"
	"log"
	"sync"

	"github.com/earthmover/config"
)

type ServiceMeta struct {
	Name        string
	Description string
}

type ServiceFactory func(meta ServiceMeta, opts interface{}) (Service, error)

var serviceRegistry = struct {
	mu       sync.RWMutex
	services map[ServiceType]ServiceFactory
}{
	services: make(map[ServiceType]ServiceFactory),
}

// RegisterService registers a factory for a service type. Called from the
// init() of each service implementation package.
func RegisterService(serviceType ServiceType, factory ServiceFactory) {
	serviceRegistry.mu.Lock()
	defer serviceRegistry.mu.Unlock()

	if _, exists := serviceRegistry.services[serviceType]; exists {
		log.Printf("[service] warning: service factory for %s already registered", serviceType)
		return
	}

	serviceRegistry.services[serviceType] = factory
}

func getServiceFactory(serviceType ServiceType) (ServiceFactory, bool) {
	serviceRegistry.mu.RLock()
	defer serviceRegistry.mu.RUnlock()

	factory, ok := serviceRegistry.services[serviceType]
	return factory, ok
}

// Registry holds the service instances created from configuration.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
}

func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]Service),
	}
}

// InitFromConfig instantiates every enabled service declared in the loaded
// configuration, decoding each service's options with its registered parser.
func (r *Registry) InitFromConfig(loader *config.Loader) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := loader.Get()
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	for name, serviceCfg := range cfg.Services {
		if !serviceCfg.Enabled {
			log.Printf("[service] %s is disabled, skipping", name)
			continue
		}

		primitive, meta, err := loader.GetServiceOptions(name)
		if err != nil {
			return fmt.Errorf("get options for %s: %w", name, err)
		}

		serviceType := ServiceType(serviceCfg.Type)
		parser, ok := GetOptionsParser(serviceType)
		if !ok {
			return fmt.Errorf("no parser registered for service type: %s", serviceType)
		}

		opts, err := parser(meta, primitive)
		if err != nil {
			return fmt.Errorf("parse options for %s: %w", name, err)
		}

		serviceMeta := ServiceMeta{
			Name:        name,
			Description: serviceCfg.Description,
		}
		svc, err := r.createService(serviceType, serviceMeta, opts)
		if err != nil {
			return fmt.Errorf("create service %s: %w", name, err)
		}

		r.services[svc.Name()] = svc
		log.Printf("[service] initialized %s", name)
	}

	return nil
}

func (r *Registry) createService(serviceType ServiceType, meta ServiceMeta, opts interface{}) (Service, error) {
	factory, ok := getServiceFactory(serviceType)
	if !ok {
		return nil, fmt.Errorf("unknown service type: %s (no factory registered)", serviceType)
	}

	svc, err := factory(meta, opts)
	if err != nil {
		return nil, fmt.Errorf("create service %s: %w", serviceType, err)
	}

	return svc, nil
}

// All returns every initialized service.
func (r *Registry) All() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Service, 0, len(r.services))
	for _, s := range r.services {
		result = append(result, s)
	}
	return result
}

// ByType returns the first initialized service of the given type, if any.
func (r *Registry) ByType(serviceType ServiceType) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.services {
		if s.Type() == serviceType {
			return s, true
		}
	}
	return nil, false
}

// Close closes every initialized service.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, s := range r.services {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors: %v", errs)
	}
	return nil
}
