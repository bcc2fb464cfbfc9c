package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "DB_HOST", "CHUNK_SIZE"} {
		os.Unsetenv(k)
	}
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderPlaceholder, cfg.LLMProvider)
	require.Equal(t, "localhost", cfg.DB.Host)
	require.Equal(t, 1000, cfg.ChunkSize)
	require.Equal(t, "./chroma_db", cfg.ChromaPersistDir)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "bogus")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "1500")
	t.Setenv("DB_NAME", "testdb")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1500, cfg.ChunkSize)
	require.Equal(t, "testdb", cfg.DB.Name)
}
