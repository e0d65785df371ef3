// Package redisclient builds the go-redis client used by the session store.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

func New(cfg Config) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})}
}

// Connect builds a client and fails unless redis answers a ping in time.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	c := New(cfg)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the underlying client for the session store.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}

// RegisterPoolMetrics publishes connection pool usage as gauges.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer, namespace string) error {
	gauge := func(name, help string, read func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "redis_pool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(read(c.rdb.PoolStats()))
		})
	}

	for _, col := range []prometheus.Collector{
		gauge("total_connections", "Connections in the redis pool.", func(s *redis.PoolStats) uint32 { return s.TotalConns }),
		gauge("idle_connections", "Idle connections in the redis pool.", func(s *redis.PoolStats) uint32 { return s.IdleConns }),
		gauge("timeouts", "Times a caller waited too long for a pooled connection.", func(s *redis.PoolStats) uint32 { return s.Timeouts }),
	} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
