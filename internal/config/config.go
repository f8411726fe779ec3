// Package config loads the JSON configuration file, substituting ${VAR}
// and ${VAR:default} references from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/nworb999/stable-genius/internal/pipeline"
)

// Config is the top-level configuration structure.
type Config struct {
	Server       ServerConfig       `json:"server"`
	Providers    []ProviderConfig   `json:"providers"`
	Gateway      GatewayConfig      `json:"gateway"`
	Database     DatabaseConfig     `json:"database"`
	Embedding    EmbeddingConfig    `json:"embedding"`
	Pipeline     PipelineConfig     `json:"pipeline"`
	Agents       []AgentConfig      `json:"agents"`
	Conversation ConversationConfig `json:"conversation"`
	DataDir      string             `json:"data_dir"`
	Migrations   string             `json:"migrations_dir"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Endpoint string   `json:"endpoint"`
	APIKey   string   `json:"api_key"`
	Models   []string `json:"models,omitempty"`
}

type GatewayConfig struct {
	DefaultAgent string               `json:"default_agent"`
	Slack        SlackGatewayConfig   `json:"slack"`
	Discord      DiscordGatewayConfig `json:"discord"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
}

type DiscordGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
	Qdrant   QdrantConfig   `json:"qdrant"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type QdrantConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type EmbeddingConfig struct {
	Provider  string `json:"provider"`
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}

// PipelineConfig tunes the cognitive pipeline.
type PipelineConfig struct {
	Model         string                  `json:"model"`
	MaxRetries    int                     `json:"max_retries"`
	StyleTransfer bool                    `json:"style_transfer"`
	RecallTopK    int                     `json:"recall_top_k"`
	Tension       *pipeline.TensionPolicy `json:"tension,omitempty"`
}

// TensionPolicy returns the configured policy or the defaults.
func (p PipelineConfig) TensionPolicy() pipeline.TensionPolicy {
	if p.Tension != nil {
		return *p.Tension
	}
	return pipeline.DefaultTensionPolicy()
}

// AgentConfig declares an agent to bootstrap at startup. Provider pins the
// agent to a provider ID; Fallbacks is the chain tried when it fails.
type AgentConfig struct {
	Name        string   `json:"name"`
	Personality string   `json:"personality"`
	Provider    string   `json:"provider,omitempty"`
	Fallbacks   []string `json:"fallbacks,omitempty"`
}

type ConversationConfig struct {
	DefaultRounds int `json:"default_rounds"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Migrations == "" {
		c.Migrations = "migrations"
	}
	if c.Conversation.DefaultRounds == 0 {
		c.Conversation.DefaultRounds = 6
	}
	if c.Pipeline.MaxRetries == 0 {
		c.Pipeline.MaxRetries = 3
	}
	if c.Pipeline.RecallTopK == 0 {
		c.Pipeline.RecallTopK = 5
	}
}
