package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/shelfscan/internal/catalog"
	"github.com/eleven-am/shelfscan/internal/liveness"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideCatalogStore(db *gorm.DB) *catalog.Store {
	return catalog.NewStore(db)
}

func ProvideCatalogFinder(store *catalog.Store, redisClient *redis.Client, cfg *Config, logger *slog.Logger) catalog.Finder {
	return catalog.NewCachedStore(store, redisClient, cfg.CatalogCacheTTL, logger)
}

func ProvideLivenessMapping(cfg *Config, logger *slog.Logger) (*liveness.Mapping, error) {
	mapping, err := liveness.Load(cfg.LivenessMappingFile)
	if err != nil {
		return nil, err
	}
	logger.Info("liveness mapping loaded", "classes", mapping.Len(), "file", cfg.LivenessMappingFile)
	return mapping, nil
}

func RunMigrations(store *catalog.Store) error {
	return store.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideCatalogStore,
		ProvideCatalogFinder,
		ProvideLivenessMapping,
	),
	fx.Invoke(RunMigrations),
)
