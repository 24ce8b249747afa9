// Package facade exposes a single backend-agnostic entry point for the
// create/read/update/delete operations. The backend is chosen once at
// construction; every call after that is a plain forward, no per-call
// branching, no retries, no caching.
package facade

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kvpd/kvpd/internal/config"
	"github.com/kvpd/kvpd/internal/kvstore"
)

type Facade struct {
	store   kvstore.Store
	backend string
	logger  *zap.Logger
}

var _ kvstore.Store = (*Facade)(nil)

// New builds a facade over the backend named by the configuration.
func New(cfg config.Config, logger *zap.Logger) (*Facade, error) {
	var store kvstore.Store
	switch cfg.Backend {
	case config.BackendMemory:
		store = kvstore.NewMemory()
	case config.BackendBolt:
		store = kvstore.NewBolt(cfg.Bolt.Path)
	case config.BackendSQLite:
		store = kvstore.NewSQLite(cfg.SQLite.DSN)
	case config.BackendMongo:
		store = kvstore.NewMongo(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return &Facade{store: store, backend: cfg.Backend, logger: logger}, nil
}

// Backend reports the name of the active backend.
func (f *Facade) Backend() string {
	return f.backend
}

func (f *Facade) Connect(ctx context.Context) error {
	f.logger.Info("connecting backend", zap.String("backend", f.backend))
	return f.store.Connect(ctx)
}

func (f *Facade) Disconnect(ctx context.Context) error {
	f.logger.Info("disconnecting backend", zap.String("backend", f.backend))
	return f.store.Disconnect(ctx)
}

func (f *Facade) Create(ctx context.Context, key string, value []byte) error {
	f.logger.Debug("create", zap.String("key", key))
	return f.store.Create(ctx, key, value)
}

func (f *Facade) Read(ctx context.Context, key string) ([]byte, error) {
	f.logger.Debug("read", zap.String("key", key))
	return f.store.Read(ctx, key)
}

func (f *Facade) Update(ctx context.Context, key string, value []byte) error {
	f.logger.Debug("update", zap.String("key", key))
	return f.store.Update(ctx, key, value)
}

func (f *Facade) Delete(ctx context.Context, key string) error {
	f.logger.Debug("delete", zap.String("key", key))
	return f.store.Delete(ctx, key)
}

func (f *Facade) Keys(ctx context.Context) ([]string, error) {
	f.logger.Debug("keys")
	return f.store.Keys(ctx)
}
