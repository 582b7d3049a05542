package store

import (
	"context"
	"fmt"
)

// OpenConfig selects and configures a Client implementation.
type OpenConfig struct {
	Driver     string // nocodb | sqlite | memory
	NocoDB     NocoDBConfig
	SQLitePath string
}

// Open builds the configured Client. The returned close func is never nil.
func Open(ctx context.Context, cfg OpenConfig) (Client, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case "nocodb":
		c, err := NewNocoDB(cfg.NocoDB)
		if err != nil {
			return nil, noop, err
		}
		return c, noop, nil
	case "sqlite":
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "memory":
		return NewMemory(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
