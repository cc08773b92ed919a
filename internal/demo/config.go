package demo

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/xraph/depot"
)

// DefaultURL is used when DEMO_DB_URL is unset.
const DefaultURL = "postgres://localhost:5432/demo"

// DbConfig provides database connection settings.
type DbConfig interface {
	URL() string
}

type dbConfigProxy struct {
	current func() DbConfig
}

func (p dbConfigProxy) URL() string { return p.current().URL() }

// EnvConfig reads its settings from the environment when constructed.
type EnvConfig struct {
	url string
}

// PostConstruct reloads the env file so a rebind picks up edits to it.
func (c *EnvConfig) PostConstruct(ctx context.Context) error {
	if err := godotenv.Overload(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	c.url = os.Getenv("DEMO_DB_URL")
	if c.url == "" {
		c.url = DefaultURL
	}

	return nil
}

// URL implements DbConfig.
func (c *EnvConfig) URL() string { return c.url }

// EnvFile is the env file EnvConfig reads.
var EnvFile = ".env"

// ConfigModule is the catalog path of the config registrations.
var ConfigModule = depot.ModuleHere(registerConfig)

func registerConfig(r *depot.Registry) error {
	depot.DefineProxy(func(current func() DbConfig) DbConfig {
		return dbConfigProxy{current: current}
	})

	return depot.AutowireType[*EnvConfig](r, nil,
		depot.As(depot.ClassOf[DbConfig]()),
		depot.Named("a"),
	)
}
