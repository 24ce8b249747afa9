package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvpd/kvpd/internal/config"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvpd.yaml")
	data := `
backend: mongo
http_addr: localhost:9090
mongo:
  uri: mongodb://db.example.com:27017
  database: prod
  collection: pairs
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendMongo, cfg.Backend)
	assert.Equal(t, "localhost:9090", cfg.HTTPAddr)
	assert.Equal(t, "mongodb://db.example.com:27017", cfg.Mongo.URI)
	assert.Equal(t, "prod", cfg.Mongo.Database)
	assert.Equal(t, "pairs", cfg.Mongo.Collection)

	// unset fields keep their defaults
	assert.Equal(t, config.Default().Addr, cfg.Addr)
	assert.Equal(t, config.Default().Bolt.Path, cfg.Bolt.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	cfg.Backend = "dynamo"
	require.Error(t, cfg.Validate())

	cfg.Backend = ""
	require.Error(t, cfg.Validate())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvpd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: shelves\n"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
}
