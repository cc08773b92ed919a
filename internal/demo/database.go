package demo

import (
	"fmt"
	"sync/atomic"

	"github.com/xraph/depot"
)

// Store runs queries.
type Store interface {
	Query(q string) string
}

type storeProxy struct {
	current func() Store
}

func (p storeProxy) Query(q string) string { return p.current().Query(q) }

// Database is a Store backed by the connection settings of DbConfig "a".
type Database struct {
	config DbConfig `inject:"a"`

	queries atomic.Int64
}

// PostConstruct checks the injected configuration.
func (d *Database) PostConstruct() error {
	if d.config == nil || d.config.URL() == "" {
		return fmt.Errorf("database: no connection url")
	}

	return nil
}

// Query implements Store.
func (d *Database) Query(q string) string {
	n := d.queries.Add(1)

	return fmt.Sprintf("%s #%d: %s", d.config.URL(), n, q)
}

// DatabaseModule is the catalog path of the database registrations.
var DatabaseModule = depot.ModuleHere(registerDatabase)

func registerDatabase(r *depot.Registry) error {
	depot.DefineProxy(func(current func() Store) Store {
		return storeProxy{current: current}
	})

	return depot.AutowireType[*Database](r, nil, depot.As(depot.ClassOf[Store]()))
}
