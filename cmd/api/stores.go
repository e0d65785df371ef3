package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/crimewatch/internal/config"
	"github.com/geocoder89/crimewatch/internal/db"
	httpx "github.com/geocoder89/crimewatch/internal/http"
	"github.com/geocoder89/crimewatch/internal/http/handlers"
	"github.com/geocoder89/crimewatch/internal/observability"
	"github.com/geocoder89/crimewatch/internal/redisclient"
	"github.com/geocoder89/crimewatch/internal/repo/memory"
	mongorepo "github.com/geocoder89/crimewatch/internal/repo/mongo"
	"github.com/geocoder89/crimewatch/internal/repo/postgres"
	"github.com/geocoder89/crimewatch/internal/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type userStore interface {
	httpx.UserStore
	Ping(ctx context.Context) error
}

type recordStores struct {
	users     userStore
	news      handlers.NewsFeed
	incidents handlers.IncidentLog

	// pool is set only for the postgres driver; the session store may share it.
	pool  *pgxpool.Pool
	close func(ctx context.Context)
}

func openRecordStores(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (recordStores, error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := db.NewPool(ctx, db.PoolConfigFrom(cfg.DBURL, cfg.DBMaxConns))
		if err != nil {
			return recordStores{}, fmt.Errorf("postgres connect: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return recordStores{}, fmt.Errorf("postgres schema: %w", err)
		}
		log.Info("record store ready", "driver", "postgres")

		return recordStores{
			users:     postgres.NewUsersRepo(pool, prom),
			news:      postgres.NewNewsRepo(pool, prom),
			incidents: postgres.NewIncidentsRepo(pool, prom),
			pool:      pool,
			close:     func(context.Context) { pool.Close() },
		}, nil

	case "mongo":
		client, err := mongorepo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return recordStores{}, fmt.Errorf("mongo connect: %w", err)
		}
		database := client.Database(cfg.MongoDB)
		if err := mongorepo.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(ctx)
			return recordStores{}, fmt.Errorf("mongo indexes: %w", err)
		}
		log.Info("record store ready", "driver", "mongo", "db", cfg.MongoDB)

		return recordStores{
			users:     mongorepo.NewUsersRepo(database, prom),
			news:      mongorepo.NewNewsRepo(database, prom),
			incidents: mongorepo.NewIncidentsRepo(database, prom),
			close: func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					log.Error("mongo disconnect failed", "err", err)
				}
			},
		}, nil

	case "memory":
		log.Warn("record store is in-memory; data is lost on restart")

		return recordStores{
			users:     memory.NewUsersRepo(),
			news:      memory.NewNewsRepo(),
			incidents: memory.NewIncidentsRepo(),
			close:     func(context.Context) {},
		}, nil

	default:
		return recordStores{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// openSessionStore picks the session backend. The postgres backend reuses the
// record store pool when there is one.
func openSessionStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, prom *observability.Prom, reg prometheus.Registerer, log *slog.Logger) (session.Store, func(), error) {
	switch cfg.SessionDriver {
	case "memory":
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil

	case "redis":
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := rc.RegisterPoolMetrics(reg, observability.ServiceName); err != nil {
			log.Warn("redis pool metrics not registered", "err", err)
		}
		log.Info("session store ready", "driver", "redis", "addr", cfg.RedisAddr)

		return session.NewRedisStore(rc.Raw()), func() { _ = rc.Close() }, nil

	case "postgres":
		closeFn := func() {}
		if pool == nil {
			p, err := db.NewPool(ctx, db.PoolConfigFrom(cfg.DBURL, cfg.DBMaxConns))
			if err != nil {
				return nil, nil, fmt.Errorf("postgres connect: %w", err)
			}
			if err := db.EnsureSchema(ctx, p); err != nil {
				p.Close()
				return nil, nil, fmt.Errorf("postgres schema: %w", err)
			}
			pool, closeFn = p, p.Close
		}
		log.Info("session store ready", "driver", "postgres")

		return postgres.NewSessionsRepo(pool, prom), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown SESSION_DRIVER %q", cfg.SessionDriver)
	}
}
