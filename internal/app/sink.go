package app

import (
	"fmt"

	"github.com/vovakirdan/formrelay/internal/config"
	"github.com/vovakirdan/formrelay/internal/store"
	"github.com/vovakirdan/formrelay/internal/store/mongo"
	"github.com/vovakirdan/formrelay/internal/store/sqlite"
)

// OpenSink returns the persistence sink selected by cfg.Driver.
func OpenSink(cfg config.StoreConfig) (store.Sink, error) {
	switch cfg.Driver {
	case "mongo":
		return mongo.New(mongo.Config{
			URI:        cfg.URI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
			Timeout:    cfg.Timeout,
		}), nil
	case "sqlite":
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownDriver, cfg.Driver)
	}
}
