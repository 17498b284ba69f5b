package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "mistral"
  embedding_model: "nomic-embed-text:latest"
  max_tokens: 1000
  temperature: 0.5

database:
  url: "postgres://localhost:5432/test"
  catalog_table: "test_catalog"
  content_table: "test_content"
  vector_dim: 768
  search_limit: 3
  search_distance: 0.6

ingest:
  chunk_size: 500
  chunk_overlap: 100
  rate_limit: 4.0
  extensions:
    - ".txt"
    - ".html"

session:
  max_history: 4

ui:
  streaming: false
  theme: "dark"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "test_catalog", config.Database.CatalogTable)
	assert.Equal(t, 3, config.Database.SearchLimit)
	assert.Equal(t, float32(0.6), config.Database.SearchDistance)
	assert.Equal(t, 500, config.Ingest.ChunkSize)
	assert.Equal(t, 4, config.Session.MaxHistory)
	assert.False(t, config.UI.Streaming)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "course_catalog", config.Database.CatalogTable)
	assert.Equal(t, "course_content", config.Database.ContentTable)
	assert.Equal(t, 5, config.Database.SearchLimit)
	assert.Equal(t, float32(0.75), config.Database.SearchDistance)
	assert.Equal(t, 2, config.Session.MaxHistory)
	assert.NotEmpty(t, config.Ingest.Extensions)
}

func TestConfigValidation(t *testing.T) {
	valid, err := getDefaultConfig()
	require.NoError(t, err)
	assert.Empty(t, valid.Validate())

	invalid, err := getDefaultConfig()
	require.NoError(t, err)
	invalid.LLM.MaxTokens = 5000
	invalid.LLM.Temperature = 3.0
	invalid.Database.SearchDistance = -1
	invalid.Ingest.ChunkOverlap = invalid.Ingest.ChunkSize
	invalid.Session.MaxHistory = 0

	errors := invalid.Validate()
	assert.Len(t, errors, 5)

	fields := make([]string, 0, len(errors))
	for _, e := range errors {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "llm.max_tokens")
	assert.Contains(t, fields, "llm.temperature")
	assert.Contains(t, fields, "database.search_distance")
	assert.Contains(t, fields, "ingest.chunk_overlap")
	assert.Contains(t, fields, "session.max_history")
}

func TestEnvironmentOverrides(t *testing.T) {
	// Set environment variables
	os.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	os.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	defer func() {
		os.Unsetenv("OLLAMA_BASE_URL")
		os.Unsetenv("DATABASE_URL")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
}
