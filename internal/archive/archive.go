// Package archive persists finished blueprints outside the session store.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"archie/internal/util/jsonutil"
)

// BlueprintFile is the object written for every session that reaches the
// diagram phase.
const BlueprintFile = "blueprint.json"

var ErrNotFound = errors.New("archive object not found")

// Store keeps opaque objects grouped by session id.
type Store interface {
	Put(ctx context.Context, sessionID, name string, content []byte) error
	Get(ctx context.Context, sessionID, name string) ([]byte, error)
	List(ctx context.Context, sessionID string) ([]string, error)
}

// SaveJSON encodes v without HTML escaping and stores it under name.
func SaveJSON(ctx context.Context, s Store, sessionID, name string, v any) error {
	if s == nil {
		return nil
	}
	raw, err := jsonutil.MarshalNoEscapeIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encode %s: %w", name, err)
	}
	return s.Put(ctx, sessionID, name, raw)
}

func objectKey(sessionID, name string) string {
	return "sessions/" + strings.TrimSpace(sessionID) + "/" + strings.TrimLeft(strings.TrimSpace(name), "/")
}

func sessionPrefix(sessionID string) string {
	return "sessions/" + strings.TrimSpace(sessionID) + "/"
}

func checkArgs(sessionID, name string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
