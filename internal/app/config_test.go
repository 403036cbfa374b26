package app

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigValidates(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("TAX_RATE", "0.18")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "local", cfg.StorageDriver)
	require.Equal(t, 5, cfg.LowStockThreshold)

	t.Setenv("TAX_RATE", "1.5")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("TAX_RATE", "0.18")
	t.Setenv("STORAGE_DRIVER", "ftp")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", AppEnv: "production"}, &buf).Info("hello")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["msg"])
	require.Equal(t, "production", entry["env"])
}

func TestNewStoreLocal(t *testing.T) {
	cfg := &Config{StorageDriver: "local", StorageLocalDir: t.TempDir(), StorageBaseURL: "/evidence"}
	store, files, err := NewStore(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, files)
	require.Equal(t, "/evidence/ticket-1/a.jpg", store.URL("ticket-1/a.jpg"))
}
