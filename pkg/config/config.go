package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL        string  `yaml:"base_url"`
		Model          string  `yaml:"model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Database struct {
		URL            string  `yaml:"url"`
		CatalogTable   string  `yaml:"catalog_table"`
		ContentTable   string  `yaml:"content_table"`
		VectorDim      int     `yaml:"vector_dim"`
		SearchLimit    int     `yaml:"search_limit"`
		SearchDistance float32 `yaml:"search_distance"`
	} `yaml:"database"`

	Ingest struct {
		ChunkSize      int      `yaml:"chunk_size"`
		ChunkOverlap   int      `yaml:"chunk_overlap"`
		MinChunkLength int      `yaml:"min_chunk_length"`
		RateLimit      float64  `yaml:"rate_limit"`
		Extensions     []string `yaml:"extensions"`
	} `yaml:"ingest"`

	Session struct {
		MaxHistory int `yaml:"max_history"`
	} `yaml:"session"`

	UI struct {
		Streaming bool   `yaml:"streaming"`
		Theme     string `yaml:"theme"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/sage/config.yaml"),
			"/etc/sage/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Database.CatalogTable == "" {
		config.Database.CatalogTable = "course_catalog"
	}
	if config.Database.ContentTable == "" {
		config.Database.ContentTable = "course_content"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.SearchLimit == 0 {
		config.Database.SearchLimit = 5
	}
	if config.Database.SearchDistance == 0 {
		config.Database.SearchDistance = 0.75
	}

	if config.Ingest.ChunkSize == 0 {
		config.Ingest.ChunkSize = 800
	}
	if config.Ingest.ChunkOverlap == 0 {
		config.Ingest.ChunkOverlap = 100
	}
	if config.Ingest.MinChunkLength == 0 {
		config.Ingest.MinChunkLength = 50
	}
	if config.Ingest.RateLimit == 0 {
		config.Ingest.RateLimit = 10.0
	}
	if len(config.Ingest.Extensions) == 0 {
		config.Ingest.Extensions = []string{".txt", ".md", ".html", ".htm"}
	}

	if config.Session.MaxHistory == 0 {
		config.Session.MaxHistory = 2
	}

	if config.UI.Theme == "" {
		config.UI.Theme = "default"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
