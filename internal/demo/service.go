package demo

import (
	"github.com/xraph/depot"
)

// Service does work against the Store.
type Service struct {
	store Store
}

// NewService creates a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// DoWork runs one unit of work and reports what the store returned.
func (s *Service) DoWork() string {
	return s.store.Query("select stuff")
}

// ServicePriority is the auto-create priority of Service.
const ServicePriority = 10

// ServiceModule is the catalog path of the service registrations.
var ServiceModule = depot.ModuleHere(registerService)

func registerService(r *depot.Registry) error {
	return depot.AutowireType[*Service](r, NewService, depot.AutoCreate(ServicePriority))
}
