package facade_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kvpd/kvpd/internal/config"
	"github.com/kvpd/kvpd/internal/facade"
	"github.com/kvpd/kvpd/internal/kvstore"
	"github.com/kvpd/kvpd/internal/kvtest"
)

func TestNewSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Bolt.Path = filepath.Join(dir, "kv.db")
	cfg.SQLite.DSN = filepath.Join(dir, "kv.sqlite")

	for _, backend := range []string{
		config.BackendMemory,
		config.BackendBolt,
		config.BackendSQLite,
		config.BackendMongo,
	} {
		cfg.Backend = backend
		f, err := facade.New(cfg, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, backend, f.Backend())
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "dynamo"
	_, err := facade.New(cfg, zap.NewNop())
	require.Error(t, err)
}

func TestFacadeForwardsAndTranslates(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	f, err := facade.New(cfg, zap.NewNop())
	require.NoError(t, err)

	// errors pass through untranslated, they already carry the taxonomy
	require.ErrorIs(t, f.Create(ctx, "k", []byte("v")), kvstore.ErrNotConnected)

	require.NoError(t, f.Connect(ctx))
	defer f.Disconnect(ctx)

	c := kvtest.New(t, f)
	c.Create("Devin", []byte("20"))
	c.Read("Devin")
	c.Update("Devin", []byte("22"))
	c.Read("Devin")
	c.Delete("Devin")
	c.Read("Devin")
	c.Delete("Devin")
	c.VerifyAll()
}
