package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordercore/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/ordercore/internal/health"
	"github.com/vladislavdragonenkov/ordercore/internal/service/sequence"
	"github.com/vladislavdragonenkov/ordercore/internal/storage/memory"
	"github.com/vladislavdragonenkov/ordercore/internal/storage/postgres"
	"github.com/vladislavdragonenkov/ordercore/internal/storage/redis"
)

// runtimeDependencies — хранилище, генератор номеров и кэш, выбранные по конфигурации.
type runtimeDependencies struct {
	txm      domain.TxManager
	reader   domain.OrderReader
	ids      domain.OrderIDGenerator
	cache    domain.OrderCache
	memStore *memory.Store
	checkers map[string]healthcheck.Checker
	closers  []func() error
}

func (d *runtimeDependencies) close() error {
	var errs error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = errors.Join(errs, d.closers[i]())
	}
	d.closers = nil
	return errs
}

// initRuntimeDependencies открывает хранилище и вспомогательные клиенты.
// При ошибке уже открытые ресурсы закрываются.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (deps *runtimeDependencies, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deps = &runtimeDependencies{checkers: make(map[string]healthcheck.Checker)}
	defer func() {
		if err != nil {
			_ = deps.close()
		}
	}()

	var pgStore *postgres.Store
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewStore(memory.WithLockTimeout(cfg.LockTimeout))
		if cfg.SeedDemo {
			seedDemoCatalog(store, logger)
		}
		deps.txm, deps.reader, deps.memStore = store, store, store
		logger.Info("using in-memory storage")
	case StorageDriverPostgres:
		pgStore, err = postgres.Open(ctx, cfg.PostgresDSN, postgres.WithLockTimeout(cfg.LockTimeout))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		deps.closers = append(deps.closers, pgStore.Close)
		if cfg.PostgresAutoMigrate {
			if err := pgStore.EnsureSchema(ctx); err != nil {
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		deps.txm, deps.reader = pgStore, pgStore
		deps.checkers["postgres"] = healthcheck.NewPingChecker(pgStore.Ping)
		logger.Info("using postgres storage")
	}

	if cfg.RedisAddr != "" {
		client, err := redis.Open(ctx, cfg.RedisAddr)
		if err != nil {
			// Без Redis-генератора сервис работать не может, без кэша — может.
			if cfg.sequenceDriver() == SequenceDriverRedis {
				return nil, err
			}
			logger.WithError(err).Warn("redis is unavailable, snapshot cache disabled")
		} else {
			deps.closers = append(deps.closers, client.Close)
			deps.cache = redis.NewSnapshotCache(client, cfg.SnapshotCacheTTL)
			ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
			if cfg.sequenceDriver() == SequenceDriverRedis {
				deps.ids = redis.NewSequenceGenerator(client, redis.SequenceKey, time.Now)
				deps.checkers["redis"] = healthcheck.NewPingChecker(ping)
			} else {
				deps.checkers["redis"] = healthcheck.NewOptionalChecker(ping)
			}
		}
	}

	if deps.ids == nil {
		switch cfg.sequenceDriver() {
		case SequenceDriverPostgres:
			deps.ids = postgres.NewSequenceGenerator(pgStore, time.Now)
		default:
			deps.ids = sequence.NewAtomicGenerator(time.Now)
		}
	}

	logger.WithField("sequence_driver", cfg.sequenceDriver()).Info("order id generator initialized")
	return deps, nil
}
