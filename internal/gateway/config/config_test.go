package config

import (
	"testing"
	"time"

	"archie/internal/conversation"
	"archie/internal/llmclient"
	"archie/internal/tester"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "APP_ENV", "SESSION_STORE", "SESSION_TTL", "LLM_CALL_TIMEOUT", "LLM_OFFLINE", "ARCHIVE_S3_ENDPOINT", "GOOGLE_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	tester.Eq(t, cfg.Port, ":5000")
	tester.Eq(t, cfg.Env, "local")
	tester.Eq(t, cfg.Store.Driver, conversation.DriverMemory)
	tester.Eq(t, cfg.Store.TTL, conversation.DefaultTTL)
	tester.Eq(t, cfg.LLM.CallTimeout, DefaultCallTimeout)
	tester.False(t, cfg.LLM.Offline)
	tester.False(t, cfg.Archive.CanUseS3())
	tester.Eq(t, len(cfg.LLM.Providers), 4)
	tester.Eq(t, cfg.LLM.Providers[0].Name, llmclient.ProviderGemini)
	tester.Eq(t, cfg.LLM.Providers[0].APIKey, "")
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("CLAUDE_MODEL", "claude-custom")
	t.Setenv("LLM_RPS", "2.5")
	t.Setenv("LLM_BURST", "3")
	t.Setenv("LLM_CALL_TIMEOUT", "30")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ARCHIVE_S3_ENDPOINT", "minio:9000")
	t.Setenv("ARCHIVE_S3_ACCESS_KEY", "ak")
	t.Setenv("ARCHIVE_S3_SECRET_KEY", "sk")
	t.Setenv("ARCHIVE_S3_USE_SSL", "false")

	cfg := FromEnv()
	tester.Eq(t, cfg.Port, ":8080")
	tester.Eq(t, cfg.LLM.Providers[0].APIKey, "g-key")
	tester.Eq(t, cfg.LLM.Providers[1].Model, "claude-custom")
	tester.Eq(t, cfg.LLM.Providers[1].RateLimit.RPS, 2.5)
	tester.Eq(t, cfg.LLM.Providers[1].RateLimit.Burst, 3)
	tester.Eq(t, cfg.LLM.CallTimeout, 30*time.Second)
	tester.Eq(t, cfg.Store.Driver, conversation.DriverRedis)
	tester.Eq(t, cfg.Store.TTL, 2*time.Hour)
	tester.Eq(t, cfg.Store.RedisURL, "redis://localhost:6379/0")
	tester.True(t, cfg.Archive.CanUseS3())
	tester.False(t, cfg.Archive.S3.UseSSL)
	tester.Eq(t, cfg.Archive.S3.Bucket, "archie-blueprints")
}

func TestNormalizePort(t *testing.T) {
	tester.Eq(t, normalizePort("80"), ":80")
	tester.Eq(t, normalizePort(":80"), ":80")
	tester.Eq(t, normalizePort("127.0.0.1:80"), "127.0.0.1:80")
}
