package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LogConfig controls the process logger.
type LogConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	RESTAPIPrefix string `yaml:"restapi_prefix"`
	StaticDir     string `yaml:"static_dir"`
}

// DataConfig holds the document folder locations.
type DataConfig struct {
	FolderRaw       string `yaml:"folder_raw"`
	FolderProcessed string `yaml:"folder_processed"`
}

// PostgresConfig contains connection details for the document store.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	ConnStr  string `yaml:"conn_str"`
}

// ConnString returns the explicit connection string if set, otherwise one
// assembled from the individual fields.
func (p PostgresConfig) ConnString() string {
	if p.ConnStr != "" {
		return p.ConnStr
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", p.User, p.Password, p.Host, p.Port, p.Database)
}

// RedisConfig contains connection details for the vector index.
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	PoolSize       int    `yaml:"pool_size"`
	IndexName      string `yaml:"index_name"`
	EFConstruction int    `yaml:"ef_construction"`
	M              int    `yaml:"m"`
}

// EmbeddingConfig configures the embedding model endpoint.
type EmbeddingConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Dim     int    `yaml:"dim"`
}

// IndexConfig holds chunking and retrieval tuning knobs.
type IndexConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	ChunkOverlap  int `yaml:"chunk_overlap"`
	TopKRetrieval int `yaml:"top_k_retrieval"`
	TopKRerank    int `yaml:"top_k_rerank"`
}

// LLMConfig selects and configures the language-model backend.
// Provider is "openai" for any OpenAI-compatible endpoint, or "gemini".
type LLMConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	GeminiKey   string `yaml:"gemini_api_key"`
	GeminiModel string `yaml:"gemini_model"`
}

// ConverterConfig points at the external document-conversion service.
type ConverterConfig struct {
	ServiceURL  string `yaml:"service_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AgentConfig bounds the multi-agent answer pipeline.
type AgentConfig struct {
	TimeoutSecs   int `yaml:"timeout_secs"`
	MaxIterations int `yaml:"max_iterations"`
}

// Config is the root application configuration.
type Config struct {
	Log            LogConfig       `yaml:"log"`
	Server         ServerConfig    `yaml:"server"`
	Data           DataConfig      `yaml:"data"`
	Postgres       PostgresConfig  `yaml:"postgres"`
	Redis          RedisConfig     `yaml:"redis"`
	Embedding      EmbeddingConfig `yaml:"embedding"`
	Index          IndexConfig     `yaml:"index"`
	LLM            LLMConfig       `yaml:"llm"`
	Converter      ConverterConfig `yaml:"converter"`
	Agent          AgentConfig     `yaml:"agent"`
	BusinessDomain string          `yaml:"business_domain"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			Host:          "localhost",
			Port:          8000,
			RESTAPIPrefix: "/api/v1",
			StaticDir:     "static",
		},
		Data: DataConfig{
			FolderRaw:       "data/raw",
			FolderProcessed: "data/processed",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "docsearch",
			User:     "postgres",
		},
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			PoolSize:       10,
			IndexName:      "docsearch-index",
			EFConstruction: 200,
			M:              16,
		},
		Embedding: EmbeddingConfig{
			Model: "embedding-3",
			Dim:   1024,
		},
		Index: IndexConfig{
			ChunkSize:     1000,
			ChunkOverlap:  200,
			TopKRetrieval: 10,
			TopKRerank:    3,
		},
		LLM: LLMConfig{
			Provider: "openai",
		},
		Converter: ConverterConfig{
			ServiceURL:  "http://localhost:8081",
			TimeoutSecs: 120,
		},
		Agent: AgentConfig{
			TimeoutSecs:   300,
			MaxIterations: 3,
		},
		BusinessDomain: "enterprise document management",
	}
}

// Load reads configuration in three layers: a .env file (if present), the
// YAML config file, then environment-variable overrides. A missing config
// file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		var file struct {
			Config *Config `yaml:"config"`
		}
		file.Config = cfg
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the keys without which the process cannot run.
func (c *Config) Validate() error {
	if c.Data.FolderRaw == "" || c.Data.FolderProcessed == "" {
		return errors.New("config: data folders are required")
	}
	if c.Index.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return errors.New("config: chunk_overlap must be non-negative and smaller than chunk_size")
	}
	if c.Index.TopKRetrieval <= 0 || c.Index.TopKRerank <= 0 {
		return errors.New("config: top_k values must be positive")
	}
	if c.Embedding.Dim <= 0 {
		return errors.New("config: embedding dim must be positive")
	}
	if c.Agent.TimeoutSecs <= 0 {
		return errors.New("config: agent timeout must be positive")
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.FilePath, "LOG_FILE_PATH")

	setString(&c.Server.Host, "SERVER_HOST")
	setInt(&c.Server.Port, "SERVER_PORT")
	setString(&c.Server.RESTAPIPrefix, "RESTAPI_PREFIX")
	setString(&c.Server.StaticDir, "STATIC_DIR")

	setString(&c.Data.FolderRaw, "DATA_FOLDER_RAW")
	setString(&c.Data.FolderProcessed, "DATA_FOLDER_PROCESSED")

	setString(&c.Postgres.Host, "POSTGRES_HOST")
	setInt(&c.Postgres.Port, "POSTGRES_PORT")
	setString(&c.Postgres.Database, "POSTGRES_DB")
	setString(&c.Postgres.User, "POSTGRES_USER")
	setString(&c.Postgres.Password, "POSTGRES_PASSWORD")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")
	setInt(&c.Redis.PoolSize, "REDIS_POOL_SIZE")
	setString(&c.Redis.IndexName, "VECTOR_INDEX_NAME")
	setInt(&c.Redis.EFConstruction, "HNSW_EF_CONSTRUCTION")
	setInt(&c.Redis.M, "HNSW_M")

	setString(&c.Embedding.APIKey, "EMBEDDING_MODEL_API_KEY")
	setString(&c.Embedding.BaseURL, "EMBEDDING_MODEL_BASE_URL")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setInt(&c.Embedding.Dim, "VECTOR_DIM")

	setInt(&c.Index.ChunkSize, "CHUNK_SIZE")
	setInt(&c.Index.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&c.Index.TopKRetrieval, "TOP_K_RETRIEVAL")
	setInt(&c.Index.TopKRerank, "TOP_K_RERANK")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.APIKey, "API_KEY")
	setString(&c.LLM.BaseURL, "BASE_URL")
	setString(&c.LLM.Model, "MODEL")
	setString(&c.LLM.GeminiKey, "GEMINI_API_KEY")
	setString(&c.LLM.GeminiModel, "GEMINI_MODEL")

	setString(&c.Converter.ServiceURL, "CONVERTER_URL")
	setInt(&c.Converter.TimeoutSecs, "CONVERTER_TIMEOUT_SECS")

	setInt(&c.Agent.TimeoutSecs, "AGENT_TIMEOUT_SECS")
	setInt(&c.Agent.MaxIterations, "AGENT_MAX_ITERATIONS")

	setString(&c.BusinessDomain, "BUSINESS_DOMAIN")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}
