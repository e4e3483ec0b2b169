package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/dualgen/api/internal/model"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Endpoints  []EndpointConfig
	LLM        LLMConfig
	Generation GenerationConfig
	Output     OutputConfig
	Queue      QueueConfig
}

type ServerConfig struct {
	Host     string
	Port     string
	LogLevel string
}

type EndpointConfig struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout int // seconds
}

type GenerationConfig struct {
	Orientation string
	Size        string
	Steps       int
	Strength    float64
	Timeout     int // seconds, per endpoint dispatch
}

type OutputConfig struct {
	Dir        string
	ResultsLog string
}

type QueueConfig struct {
	Size int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("LLM_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.host", "SERVER_HOST")
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("llm.base_url", "LLM_BASE_URL")
	_ = viper.BindEnv("llm.api_key", "LLM_API_KEY")
	_ = viper.BindEnv("llm.model", "LLM_MODEL")
	_ = viper.BindEnv("llm.timeout", "LLM_TIMEOUT")
	_ = viper.BindEnv("generation.orientation", "GENERATION_ORIENTATION")
	_ = viper.BindEnv("generation.size", "GENERATION_SIZE")
	_ = viper.BindEnv("generation.steps", "GENERATION_STEPS")
	_ = viper.BindEnv("generation.strength", "GENERATION_STRENGTH")
	_ = viper.BindEnv("generation.timeout", "GENERATION_TIMEOUT")
	_ = viper.BindEnv("output.dir", "OUTPUT_DIR")
	_ = viper.BindEnv("output.results_log", "OUTPUT_RESULTS_LOG")
	_ = viper.BindEnv("queue.size", "QUEUE_SIZE")

	// Defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.log_level", "info")

	// LLM defaults (local LM Studio style server)
	viper.SetDefault("llm.base_url", "http://localhost:1234/v1")
	viper.SetDefault("llm.api_key", "lm-studio")
	viper.SetDefault("llm.model", "gpt-oss-20b")
	viper.SetDefault("llm.timeout", 300)

	// Generation defaults
	viper.SetDefault("generation.orientation", "landscape")
	viper.SetDefault("generation.size", "1mp")
	viper.SetDefault("generation.steps", 25)
	viper.SetDefault("generation.strength", 0.75)
	viper.SetDefault("generation.timeout", 300)

	// Output defaults
	viper.SetDefault("output.dir", "output")
	viper.SetDefault("output.results_log", "results.jsonl")

	// Queue defaults
	viper.SetDefault("queue.size", 256)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host:     viper.GetString("server.host"),
			Port:     viper.GetString("server.port"),
			LogLevel: viper.GetString("server.log_level"),
		},
		LLM: LLMConfig{
			BaseURL: viper.GetString("llm.base_url"),
			APIKey:  viper.GetString("llm.api_key"),
			Model:   viper.GetString("llm.model"),
			Timeout: viper.GetInt("llm.timeout"),
		},
		Generation: GenerationConfig{
			Orientation: viper.GetString("generation.orientation"),
			Size:        viper.GetString("generation.size"),
			Steps:       viper.GetInt("generation.steps"),
			Strength:    viper.GetFloat64("generation.strength"),
			Timeout:     viper.GetInt("generation.timeout"),
		},
		Output: OutputConfig{
			Dir:        viper.GetString("output.dir"),
			ResultsLog: viper.GetString("output.results_log"),
		},
		Queue: QueueConfig{
			Size: viper.GetInt("queue.size"),
		},
	}

	if err := viper.UnmarshalKey("endpoints", &cfg.Endpoints); err != nil {
		return nil, fmt.Errorf("invalid endpoints config: %w", err)
	}

	return cfg, nil
}

// ModelEndpoints converts the configured endpoint list to model values.
func (c *Config) ModelEndpoints() []model.Endpoint {
	endpoints := make([]model.Endpoint, 0, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		endpoints = append(endpoints, model.Endpoint{
			Name: ep.Name,
			Host: ep.Host,
			Port: ep.Port,
		})
	}
	return endpoints
}
