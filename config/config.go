package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port       string           `mapstructure:"port"`
	DataDir    string           `mapstructure:"data_dir"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Generation GenerationConfig `mapstructure:"generation"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Search     SearchConfig     `mapstructure:"search"`
	Chat       ChatConfig       `mapstructure:"chat"`
}

// EmbeddingConfig points at the local embedding model server.
type EmbeddingConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Dimension  int           `mapstructure:"dimension"`
	BatchSize  int           `mapstructure:"batch_size"`
	Normalize  bool          `mapstructure:"normalize"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// GenerationConfig selects and configures the text generation provider.
// Provider is "openai" for any OpenAI-compatible server (including local
// llama.cpp / LM Studio style endpoints) or "gemini".
type GenerationConfig struct {
	Provider      string        `mapstructure:"provider"`
	Endpoint      string        `mapstructure:"endpoint"`
	Model         string        `mapstructure:"model"`
	OpenAIAPIKey  string        `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKeys []string      `mapstructure:"GEMINI_API_KEYS"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Temperature   float32       `mapstructure:"temperature"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

type IngestConfig struct {
	MaxChunkSize    int     `mapstructure:"max_chunk_size"`
	ChunkOverlap    int     `mapstructure:"chunk_overlap"`
	ReviewThreshold float64 `mapstructure:"review_threshold"`
	Workers         int     `mapstructure:"workers"`
	ExtractTables   bool    `mapstructure:"extract_tables"`
}

type SearchConfig struct {
	LexicalWeight  float64 `mapstructure:"lexical_weight"`
	SemanticWeight float64 `mapstructure:"semantic_weight"`
	FilenameBoost  float64 `mapstructure:"filename_boost"`
	MaxReferences  int     `mapstructure:"max_references"`
}

type ChatConfig struct {
	HistoryLimit        int     `mapstructure:"history_limit"`
	MinSimilarity       float64 `mapstructure:"min_similarity"`
	MaxContextChars     int     `mapstructure:"max_context_chars"`
	SuggestionOnLowConf bool    `mapstructure:"suggestion_on_low_conf"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set up Viper to read from config file
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set up Viper to read from environment variables
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Bind environment variables for secrets
	v.BindEnv("generation.OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("generation.GEMINI_API_KEYS", "GEMINI_API_KEYS")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("data_dir", "data")

	v.SetDefault("embedding.endpoint", "http://127.0.0.1:7861")
	v.SetDefault("embedding.dimension", 1024)
	v.SetDefault("embedding.batch_size", 64)
	v.SetDefault("embedding.normalize", true)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.max_retries", 2)

	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.endpoint", "http://localhost:1234/v1")
	v.SetDefault("generation.max_tokens", 1024)
	v.SetDefault("generation.temperature", 0.2)
	v.SetDefault("generation.timeout", 60*time.Second)
	v.SetDefault("generation.max_retries", 2)

	v.SetDefault("ingest.max_chunk_size", 2000)
	v.SetDefault("ingest.chunk_overlap", 100)
	v.SetDefault("ingest.review_threshold", 0.6)
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.extract_tables", true)

	v.SetDefault("search.lexical_weight", 0.4)
	v.SetDefault("search.semantic_weight", 0.6)
	v.SetDefault("search.filename_boost", 0.5)
	v.SetDefault("search.max_references", 5)

	v.SetDefault("chat.history_limit", 10)
	v.SetDefault("chat.min_similarity", 0.25)
	v.SetDefault("chat.max_context_chars", 6000)
	v.SetDefault("chat.suggestion_on_low_conf", true)
}
