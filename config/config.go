// Package config loads and validates the immutable process-wide settings
// for the research service from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds the fully resolved, validated configuration for a process.
// It is assembled once at startup and passed down by value/reference; it is
// never mutated afterward.
type Settings struct {
	// HTTPAddr is the listen address for the REST/WebSocket API.
	HTTPAddr string

	// LLMProvider selects which llm adapter backs the planner/executor/
	// evaluator/strategist/reporter nodes: "anthropic", "openai", or "bedrock".
	LLMProvider string
	// LLMEndpoint is read from LLM_ENDPOINT but is not passed to any llm
	// adapter: every provider client uses its SDK's default API base URL.
	LLMEndpoint string
	// LLMAPIKey authenticates against the selected provider.
	LLMAPIKey string
	// LLMModel is the model identifier passed on every completion request.
	LLMModel string
	// LLMRateLimitRPS bounds outbound requests per second across the process.
	LLMRateLimitRPS float64
	// LLMRateLimitBurst is the token bucket burst size for the rate limiter.
	LLMRateLimitBurst int

	// SearchEndpoint and SearchAPIKey are read from the environment but are
	// not used: the server always wires the deterministic search/stub
	// backend, which contacts no external service.
	SearchEndpoint string
	SearchAPIKey   string
	// SearchRelevanceThreshold is the minimum ranked-result score kept after
	// a search call; results scoring below are discarded before merge.
	SearchRelevanceThreshold float64

	// MinPlanSteps and MaxPlanSteps bound the planner's step count, per spec.
	MinPlanSteps int
	MaxPlanSteps int
	// MaxSubsteps is read from MAX_SUBSTEPS and validated (>= 1), but it is
	// not passed to the research nodes: every plan step gets
	// research.DefaultMaxSubsteps (3) as its recovery budget.
	MaxSubsteps int
	// MaxSearchesPerStep bounds the search fan-out width within one executor step.
	MaxSearchesPerStep int
	// MaxConcurrentRuns admits at most this many simultaneously active runs
	// per process; beyond this, lifecycle.Service's StartResearch and Resume
	// wait for a free slot until their request context ends.
	MaxConcurrentRuns int

	// FileReadMaxBytes truncates file_read tool output beyond this size.
	FileReadMaxBytes int
	// TerminalOutputMaxBytes truncates terminal tool stdout/stderr beyond this size.
	TerminalOutputMaxBytes int
	// TerminalTimeout bounds a single terminal command's execution.
	TerminalTimeout time.Duration

	// AuthSecret signs/validates bearer tokens issued by the reference auth
	// middleware. Empty means no token can be issued or validated, so every
	// authenticated endpoint answers 401.
	AuthSecret string
	// AuthTokenTTL bounds how long an issued token remains valid.
	AuthTokenTTL time.Duration

	// MongoURI is the connection string for the checkpoint and run-metadata stores.
	MongoURI string
	// MongoDatabase selects the database name within the Mongo deployment.
	MongoDatabase string

	// RedisAddr is the address of the Redis instance backing the approvals
	// store.
	RedisAddr string
	// RedisPassword authenticates against Redis, if required.
	RedisPassword string

	// TemporalHostPort is the Temporal frontend address, used when Engine
	// is "temporal".
	TemporalHostPort string
	// TemporalNamespace selects the Temporal namespace for workflow execution.
	TemporalNamespace string
	// TemporalTaskQueue is the default task queue for the research workflow.
	TemporalTaskQueue string
	// Engine selects the workflow engine backend: "temporal" or "inmem".
	Engine string
}

// defaults mirrors the zero-config local/dev experience: an in-memory engine,
// conservative plan/substep/search bounds, and no AUTH_SECRET (so
// authenticated endpoints reject every request until one is set).
func defaults() Settings {
	return Settings{
		HTTPAddr:                 ":8080",
		LLMProvider:              "anthropic",
		LLMModel:                 "claude-sonnet-4-5",
		LLMRateLimitRPS:          2,
		LLMRateLimitBurst:        4,
		SearchRelevanceThreshold: 0.5,
		MinPlanSteps:             3,
		MaxPlanSteps:             10,
		MaxSubsteps:              3,
		MaxSearchesPerStep:       5,
		MaxConcurrentRuns:        10,
		FileReadMaxBytes:         64 * 1024,
		TerminalOutputMaxBytes:   16 * 1024,
		TerminalTimeout:          30 * time.Second,
		AuthTokenTTL:             24 * time.Hour,
		MongoDatabase:            "deepresearch",
		TemporalNamespace:        "default",
		TemporalTaskQueue:        "research-task-queue",
		Engine:                   "inmem",
	}
}

// Load reads a .env file if present (missing files are not an error), then
// overlays environment variables on top of defaults, and validates the
// result. Call once at process startup.
func Load() (Settings, error) {
	_ = godotenv.Load()

	s := defaults()

	s.HTTPAddr = stringEnv("HTTP_ADDR", s.HTTPAddr)

	s.LLMProvider = stringEnv("LLM_PROVIDER", s.LLMProvider)
	s.LLMEndpoint = stringEnv("LLM_ENDPOINT", s.LLMEndpoint)
	s.LLMAPIKey = stringEnv("LLM_API_KEY", s.LLMAPIKey)
	s.LLMModel = stringEnv("LLM_MODEL", s.LLMModel)
	var err error
	if s.LLMRateLimitRPS, err = floatEnv("LLM_RATE_LIMIT_RPS", s.LLMRateLimitRPS); err != nil {
		return Settings{}, err
	}
	if s.LLMRateLimitBurst, err = intEnv("LLM_RATE_LIMIT_BURST", s.LLMRateLimitBurst); err != nil {
		return Settings{}, err
	}

	s.SearchEndpoint = stringEnv("SEARCH_ENDPOINT", s.SearchEndpoint)
	s.SearchAPIKey = stringEnv("SEARCH_API_KEY", s.SearchAPIKey)
	if s.SearchRelevanceThreshold, err = floatEnv("SEARCH_RELEVANCE_THRESHOLD", s.SearchRelevanceThreshold); err != nil {
		return Settings{}, err
	}

	if s.MinPlanSteps, err = intEnv("MIN_PLAN_STEPS", s.MinPlanSteps); err != nil {
		return Settings{}, err
	}
	if s.MaxPlanSteps, err = intEnv("MAX_PLAN_STEPS", s.MaxPlanSteps); err != nil {
		return Settings{}, err
	}
	if s.MaxSubsteps, err = intEnv("MAX_SUBSTEPS", s.MaxSubsteps); err != nil {
		return Settings{}, err
	}
	if s.MaxSearchesPerStep, err = intEnv("MAX_SEARCHES_PER_STEP", s.MaxSearchesPerStep); err != nil {
		return Settings{}, err
	}
	if s.MaxConcurrentRuns, err = intEnv("MAX_CONCURRENT_RUNS", s.MaxConcurrentRuns); err != nil {
		return Settings{}, err
	}

	if s.FileReadMaxBytes, err = intEnv("FILE_READ_MAX_BYTES", s.FileReadMaxBytes); err != nil {
		return Settings{}, err
	}
	if s.TerminalOutputMaxBytes, err = intEnv("TERMINAL_OUTPUT_MAX_BYTES", s.TerminalOutputMaxBytes); err != nil {
		return Settings{}, err
	}
	if s.TerminalTimeout, err = durationEnv("TERMINAL_TIMEOUT", s.TerminalTimeout); err != nil {
		return Settings{}, err
	}

	s.AuthSecret = stringEnv("AUTH_SECRET", s.AuthSecret)
	if s.AuthTokenTTL, err = durationEnv("AUTH_TOKEN_TTL", s.AuthTokenTTL); err != nil {
		return Settings{}, err
	}

	s.MongoURI = stringEnv("MONGO_URI", s.MongoURI)
	s.MongoDatabase = stringEnv("MONGO_DATABASE", s.MongoDatabase)

	s.RedisAddr = stringEnv("REDIS_ADDR", s.RedisAddr)
	s.RedisPassword = stringEnv("REDIS_PASSWORD", s.RedisPassword)

	s.TemporalHostPort = stringEnv("TEMPORAL_HOST_PORT", s.TemporalHostPort)
	s.TemporalNamespace = stringEnv("TEMPORAL_NAMESPACE", s.TemporalNamespace)
	s.TemporalTaskQueue = stringEnv("TEMPORAL_TASK_QUEUE", s.TemporalTaskQueue)
	s.Engine = stringEnv("ENGINE", s.Engine)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks invariants that must hold before the service can start.
func (s Settings) Validate() error {
	if s.MinPlanSteps < 1 {
		return fmt.Errorf("config: MIN_PLAN_STEPS must be >= 1, got %d", s.MinPlanSteps)
	}
	if s.MaxPlanSteps < s.MinPlanSteps {
		return fmt.Errorf("config: MAX_PLAN_STEPS (%d) must be >= MIN_PLAN_STEPS (%d)", s.MaxPlanSteps, s.MinPlanSteps)
	}
	if s.MaxSubsteps < 1 {
		return fmt.Errorf("config: MAX_SUBSTEPS must be >= 1, got %d", s.MaxSubsteps)
	}
	if s.MaxSearchesPerStep < 1 {
		return fmt.Errorf("config: MAX_SEARCHES_PER_STEP must be >= 1, got %d", s.MaxSearchesPerStep)
	}
	if s.MaxConcurrentRuns < 1 {
		return fmt.Errorf("config: MAX_CONCURRENT_RUNS must be >= 1, got %d", s.MaxConcurrentRuns)
	}
	switch s.Engine {
	case "inmem":
	case "temporal":
		if s.TemporalHostPort == "" {
			return fmt.Errorf("config: TEMPORAL_HOST_PORT is required when ENGINE=temporal")
		}
	default:
		return fmt.Errorf("config: unknown ENGINE %q (want inmem or temporal)", s.Engine)
	}
	switch s.LLMProvider {
	case "anthropic", "openai", "bedrock":
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q (want anthropic, openai, or bedrock)", s.LLMProvider)
	}
	return nil
}

func stringEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, v, err)
	}
	return f, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, v, err)
	}
	return d, nil
}
