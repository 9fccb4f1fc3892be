package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Interpret  InterpretConfig  `mapstructure:"interpret"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Recommend  RecommendConfig  `mapstructure:"recommend"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

// DatasetConfig points at the static tables the engine loads once at startup.
// Source selects where embeddings come from: "file" (JSON table) or "qdrant".
type DatasetConfig struct {
	Source         string `mapstructure:"source"`
	EmbeddingsPath string `mapstructure:"embeddings_path"`
	ClustersPath   string `mapstructure:"clusters_path"`
	TagsPath       string `mapstructure:"tags_path"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Dimensions int    `mapstructure:"dimensions"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

// SimilarityConfig configures the text-similarity oracle used for context
// keyword to cluster tag matching. With no API key the engine falls back to a
// deterministic lexical scorer.
type SimilarityConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	CacheSize  int    `mapstructure:"cache_size"`
}

type InterpretConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// EngineConfig carries the assembler and sampler tuning values. The numeric
// defaults are inherited constants; tune them only if the downstream dataset
// consumers are retrained.
type EngineConfig struct {
	// SessionID scopes persisted usage counters; one engine deployment per
	// session keeps fairness stable across restarts.
	SessionID                 string  `mapstructure:"session_id"`
	MinCards                  int     `mapstructure:"min_cards"`
	MaxCards                  int     `mapstructure:"max_cards"`
	SimilarPassProbability    float64 `mapstructure:"similar_pass_probability"`
	DissimilarPassProbability float64 `mapstructure:"dissimilar_pass_probability"`
	DissimilarThreshold       float64 `mapstructure:"dissimilar_threshold"`
	MinSimilarityFloor        float64 `mapstructure:"min_similarity_floor"`
	ShortlistMin              int     `mapstructure:"shortlist_min"`
	TopSimilarClusters        int     `mapstructure:"top_similar_clusters"`
}

type RecommendConfig struct {
	TotalDisplayCards    int     `mapstructure:"total_display_cards"`
	ContextRatio         float64 `mapstructure:"context_ratio"`
	ContextThreshold     float64 `mapstructure:"context_threshold"`
	MaxContextClusters   int     `mapstructure:"max_context_clusters"`
	MaxPreferredClusters int     `mapstructure:"max_preferred_clusters"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/pictoreco.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("dataset.source", "file")
	v.SetDefault("dataset.embeddings_path", "./data/embeddings.json")
	v.SetDefault("dataset.clusters_path", "./data/clusters.json")
	v.SetDefault("dataset.tags_path", "./data/cluster_tags.json")
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "cards")
	v.SetDefault("qdrant.dimensions", 1024)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "pictograms")
	v.SetDefault("similarity.provider", "jina")
	v.SetDefault("similarity.model", "jina-embeddings-v3")
	v.SetDefault("similarity.dimensions", 256)
	v.SetDefault("similarity.cache_size", 4096)
	v.SetDefault("interpret.enabled", false)
	v.SetDefault("interpret.model", "gpt-4o-mini")
	v.SetDefault("interpret.base_url", "https://api.openai.com/v1")
	v.SetDefault("engine.session_id", "default")
	v.SetDefault("engine.min_cards", 1)
	v.SetDefault("engine.max_cards", 4)
	v.SetDefault("engine.similar_pass_probability", 0.7)
	v.SetDefault("engine.dissimilar_pass_probability", 0.5)
	v.SetDefault("engine.dissimilar_threshold", 0.5)
	v.SetDefault("engine.min_similarity_floor", 0.3)
	v.SetDefault("engine.shortlist_min", 3)
	v.SetDefault("engine.top_similar_clusters", 3)
	v.SetDefault("recommend.total_display_cards", 20)
	v.SetDefault("recommend.context_ratio", 0.5)
	v.SetDefault("recommend.context_threshold", 0.4)
	v.SetDefault("recommend.max_context_clusters", 5)
	v.SetDefault("recommend.max_preferred_clusters", 5)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("similarity.api_key", "SIMILARITY_API_KEY")
	v.BindEnv("interpret.api_key", "OPENAI_API_KEY")
	v.BindEnv("interpret.base_url", "OPENAI_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks every tuning value once at startup, so nothing downstream
// has to re-check ranges per call.
func (c *Config) Validate() error {
	if c.Engine.MinCards < 1 {
		return fmt.Errorf("engine.min_cards must be >= 1, got %d", c.Engine.MinCards)
	}
	if c.Engine.MaxCards < c.Engine.MinCards {
		return fmt.Errorf("engine.max_cards (%d) below engine.min_cards (%d)", c.Engine.MaxCards, c.Engine.MinCards)
	}
	for name, p := range map[string]float64{
		"engine.similar_pass_probability":    c.Engine.SimilarPassProbability,
		"engine.dissimilar_pass_probability": c.Engine.DissimilarPassProbability,
		"recommend.context_ratio":            c.Recommend.ContextRatio,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %f", name, p)
		}
	}
	for name, s := range map[string]float64{
		"engine.dissimilar_threshold": c.Engine.DissimilarThreshold,
		"engine.min_similarity_floor": c.Engine.MinSimilarityFloor,
		"recommend.context_threshold": c.Recommend.ContextThreshold,
	} {
		if s < -1 || s > 1 {
			return fmt.Errorf("%s must be within [-1, 1], got %f", name, s)
		}
	}
	if c.Engine.ShortlistMin < 1 {
		return fmt.Errorf("engine.shortlist_min must be >= 1, got %d", c.Engine.ShortlistMin)
	}
	if c.Engine.TopSimilarClusters < 1 {
		return fmt.Errorf("engine.top_similar_clusters must be >= 1, got %d", c.Engine.TopSimilarClusters)
	}
	if c.Recommend.TotalDisplayCards < 1 {
		return fmt.Errorf("recommend.total_display_cards must be >= 1, got %d", c.Recommend.TotalDisplayCards)
	}
	if c.Recommend.MaxContextClusters < 1 {
		return fmt.Errorf("recommend.max_context_clusters must be >= 1, got %d", c.Recommend.MaxContextClusters)
	}
	if c.Dataset.Source != "file" && c.Dataset.Source != "qdrant" {
		return fmt.Errorf("dataset.source must be \"file\" or \"qdrant\", got %q", c.Dataset.Source)
	}
	return nil
}
