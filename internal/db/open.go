package db

import (
	"context"
	"fmt"

	"github.com/SigNoz/skincare-shop/pkg/config"
	"github.com/rs/zerolog"
)

// Open selects the backend named by cfg.StoreDriver. An empty driver yields
// the unconfigured store without error; a backend that cannot be reached
// returns the unconfigured store together with the connection error, so the
// caller can log it and keep serving.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Store, error) {
	switch cfg.StoreDriver {
	case "":
		return Unconfigured(), nil
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverMongo:
		if cfg.MongoURL == "" {
			return Unconfigured(), fmt.Errorf("DATABASE_URL is required for the mongo driver")
		}
		s, err := NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDBName)
		if err != nil {
			return Unconfigured(), err
		}
		return s, nil
	case DriverMySQL:
		s, err := NewMySQLStore(ctx, cfg.GetDSN(), cfg.OTELServiceName, log)
		if err != nil {
			return Unconfigured(), err
		}
		return s, nil
	default:
		return Unconfigured(), fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
