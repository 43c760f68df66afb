package app

import (
	"context"
	"fmt"
	"log"

	"archie/internal/archive"
	"archie/internal/conversation"
	"archie/internal/gateway/config"
)

func initSessionStore(ctx context.Context, cfg *config.Config) (conversation.Store, error) {
	store, err := conversation.OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	log.Printf("session store: %s ttl=%s", firstNonEmpty(string(cfg.Store.Driver), string(conversation.DriverMemory)), cfg.Store.TTL)
	return store, nil
}

// initArchive prefers S3 and falls back to memory when the bucket
// configuration is incomplete.
func initArchive(cfg *config.Config) (archive.Store, error) {
	if !cfg.Archive.CanUseS3() {
		if cfg.Archive.Enabled {
			log.Printf("archive: using in-memory fallback (s3 config incomplete)")
		}
		return archive.NewMemoryStore(), nil
	}
	s3, err := archive.NewS3Store(cfg.Archive.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive s3 store: %w", err)
	}
	log.Printf("archive: s3 bucket=%s endpoint=%s", cfg.Archive.S3.Bucket, cfg.Archive.S3.Endpoint)
	return s3, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
