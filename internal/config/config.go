// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and the environment on top.
// - Validate is the single gate for startup-time configuration errors.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store drivers understood by the service.
const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// Addr is the HTTP listen address for the interview API.
	Addr string `koanf:"addr"`
	// TelemetryAddr optionally serves /metrics on a separate listener.
	TelemetryAddr string `koanf:"telemetry_addr"`

	// MaxQuestions is the question-count limit per interview.
	MaxQuestions int `koanf:"max_questions"`
	// MaxFollowUps caps consecutive follow-ups on one question.
	MaxFollowUps int `koanf:"max_follow_ups"`
	// DefaultDifficulty and DefaultTopic apply when a start request omits them.
	DefaultDifficulty string `koanf:"default_difficulty"`
	DefaultTopic      string `koanf:"default_topic"`

	// LLMAPIKey is the credential for the OpenAI-compatible endpoint.
	LLMAPIKey  string `koanf:"llm_api_key"`
	LLMBaseURL string `koanf:"llm_base_url"`
	LLMModel   string `koanf:"llm_model"`
	// LLMMaxTokens is the length ceiling per model response.
	LLMMaxTokens  int `koanf:"llm_max_tokens"`
	LLMTimeoutMS  int `koanf:"llm_timeout_ms"`
	LLMMaxRetries int `koanf:"llm_max_retries"`
	// LLMDisabled runs without a model; every evaluation degrades.
	LLMDisabled           bool    `koanf:"llm_disabled"`
	EvaluationTemperature float64 `koanf:"evaluation_temperature"`
	ResponseTemperature   float64 `koanf:"response_temperature"`

	// StoreDriver selects memory or mysql persistence.
	StoreDriver string `koanf:"store_driver"`
	DBDSN       string `koanf:"db_dsn"`
	// QuestionsFile seeds the question bank when it is empty.
	QuestionsFile string `koanf:"questions_file"`

	// RedisAddr enables the distributed per-session lock.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// AMQPURL enables publishing interview events to RabbitMQ.
	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"event_queue_size"`
	// WorkerCount sets the number of event dispatch workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the utterance id cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		MaxQuestions:          5,
		MaxFollowUps:          2,
		DefaultDifficulty:     "MEDIUM",
		LLMBaseURL:            "https://cloud.olakrutrim.com/v1",
		LLMModel:              "gpt-oss-120b",
		LLMMaxTokens:          800,
		LLMTimeoutMS:          30_000,
		LLMMaxRetries:         1,
		EvaluationTemperature: 0.3,
		ResponseTemperature:   0.7,
		StoreDriver:           DriverMemory,
		AMQPExchange:          "codevoice.interview",
		EventQueueSize:        10_000,
		WorkerCount:           runtime.NumCPU(),
		DedupeSize:            50_000,
	}
}

// LLMTimeout returns the per-call model timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMS) * time.Millisecond
}

// Validate reports the first configuration problem, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr", "must not be empty")
	case c.MaxQuestions < 1:
		return invalid("max_questions", "must be at least 1")
	case c.MaxFollowUps < 0:
		return invalid("max_follow_ups", "must not be negative")
	case !c.LLMDisabled && strings.TrimSpace(c.LLMAPIKey) == "":
		return invalid("llm_api_key", "is required (set CODEVOICE_LLM_API_KEY or KRUTRIM_API_KEY)")
	case !c.LLMDisabled && strings.TrimSpace(c.LLMBaseURL) == "":
		return invalid("llm_base_url", "must not be empty")
	case c.LLMMaxTokens < 1:
		return invalid("llm_max_tokens", "must be positive")
	case c.LLMTimeoutMS < 1:
		return invalid("llm_timeout_ms", "must be positive")
	case c.LLMMaxRetries < 0:
		return invalid("llm_max_retries", "must not be negative")
	}

	switch strings.ToUpper(strings.TrimSpace(c.DefaultDifficulty)) {
	case "EASY", "MEDIUM", "HARD":
	default:
		return invalid("default_difficulty", "must be EASY, MEDIUM or HARD")
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverMySQL:
		if strings.TrimSpace(c.DBDSN) == "" {
			return invalid("db_dsn", "is required for the mysql driver")
		}
	default:
		return invalid("store_driver", fmt.Sprintf("unknown driver %q", c.StoreDriver))
	}
	return nil
}

func invalid(key, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, key, reason)
}
