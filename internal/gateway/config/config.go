package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"archie/internal/archive"
	"archie/internal/conversation"
	"archie/internal/llmclient"

	"github.com/joho/godotenv"
)

const DefaultCallTimeout = 90 * time.Second

type Config struct {
	Port        string
	Env         string
	LLM         LLMConfig
	Store       conversation.StoreConfig
	Archive     ArchiveConfig
	WeightsFile string
}

type LLMConfig struct {
	Providers   []llmclient.ProviderConfig
	CallTimeout time.Duration
	// Offline registers the deterministic fake provider.
	Offline bool
}

type ArchiveConfig struct {
	Enabled bool
	S3      archive.S3Config
}

// CanUseS3 reports whether the bucket credentials are complete.
func (c ArchiveConfig) CanUseS3() bool {
	return c.Enabled &&
		strings.TrimSpace(c.S3.Endpoint) != "" &&
		strings.TrimSpace(c.S3.AccessKey) != "" &&
		strings.TrimSpace(c.S3.SecretKey) != "" &&
		strings.TrimSpace(c.S3.Bucket) != ""
}

// Load reads .env, the environment and the -port flag.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":5000", "server port")
	flag.Parse()

	cfg := FromEnv()
	if os.Getenv("PORT") == "" {
		cfg.Port = normalizePort(*port)
	}
	return cfg, nil
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() *Config {
	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	return &Config{
		Port:        normalizePort(firstNonEmpty(os.Getenv("PORT"), "5000")),
		Env:         env,
		LLM:         loadLLMConfig(),
		Store:       loadStoreConfig(),
		Archive:     loadArchiveConfig(),
		WeightsFile: strings.TrimSpace(os.Getenv("SCORING_WEIGHTS_FILE")),
	}
}

func loadLLMConfig() LLMConfig {
	var limit *llmclient.RateLimitConfig
	rps := envFloat("LLM_RPS", 0)
	if rps > 0 {
		limit = &llmclient.RateLimitConfig{RPS: rps, Burst: envInt("LLM_BURST", 1)}
	}
	provider := func(name, keyVar, modelVar string, extraKeys ...string) llmclient.ProviderConfig {
		keys := append([]string{os.Getenv(keyVar)}, extraKeys...)
		upper := strings.ToUpper(name)
		return llmclient.ProviderConfig{
			Name:      name,
			APIKey:    strings.TrimSpace(firstNonEmpty(keys...)),
			Model:     strings.TrimSpace(os.Getenv(modelVar)),
			FastModel: strings.TrimSpace(os.Getenv(upper + "_FAST_MODEL")),
			BaseURL:   strings.TrimSpace(os.Getenv(upper + "_BASE_URL")),
			RateLimit: limit,
		}
	}
	return LLMConfig{
		Providers: []llmclient.ProviderConfig{
			provider(llmclient.ProviderGemini, "GOOGLE_API_KEY", "GEMINI_MODEL", os.Getenv("GEMINI_API_KEY")),
			provider(llmclient.ProviderClaude, "ANTHROPIC_API_KEY", "CLAUDE_MODEL"),
			provider(llmclient.ProviderOpenAI, "OPENAI_API_KEY", "OPENAI_MODEL"),
			provider(llmclient.ProviderGroq, "GROQ_API_KEY", "GROQ_MODEL"),
		},
		CallTimeout: envDuration("LLM_CALL_TIMEOUT", DefaultCallTimeout),
		Offline:     envBool("LLM_OFFLINE", false),
	}
}

func loadStoreConfig() conversation.StoreConfig {
	return conversation.StoreConfig{
		Driver:       conversation.Driver(firstNonEmpty(strings.TrimSpace(os.Getenv("SESSION_STORE")), string(conversation.DriverMemory))),
		TTL:          envDuration("SESSION_TTL", conversation.DefaultTTL),
		MaxEntries:   envInt("SESSION_MAX_ENTRIES", conversation.DefaultMaxEntries),
		RedisURL:     strings.TrimSpace(os.Getenv("REDIS_URL")),
		PostgresDSN:  strings.TrimSpace(os.Getenv("SESSION_PG_DSN")),
		CacheEntries: envInt("SESSION_CACHE_ENTRIES", 0),
		CacheTTL:     envDuration("SESSION_CACHE_TTL", time.Minute),
	}
}

func loadArchiveConfig() ArchiveConfig {
	endpoint := strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT"))
	return ArchiveConfig{
		Enabled: endpoint != "",
		S3: archive.S3Config{
			Endpoint:  endpoint,
			Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_REGION")), "us-east-1"),
			AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
			SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
			Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")), "archie-blueprints"),
			UseSSL:    envBool("ARCHIVE_S3_USE_SSL", true),
		},
	}
}

func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, ":") || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// envDuration accepts Go durations ("90s") or plain seconds ("90").
func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
