// Package objectstore implements the pluggable keyed-blob backend spec §6
// names as the external object store interface, with local-filesystem and
// S3 implementations. It is grounded on the teacher repo's
// internal/artifacts package (local_store.go's atomic temp-file-then-
// rename writes, s3_store.go's aws-sdk-go-v2 client wiring), generalized
// from per-artifact CRUD to the flat keyed-blob contract the index
// substrate builds on.
package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Store is the keyed-blob backend every index is built on. Writes are
// append-only and key-partitioned per caller (spec §5); there is no
// update-in-place operation besides Put (full overwrite) and Append
// (line-oriented growth).
type Store interface {
	// Put writes body as the full contents of key, overwriting any
	// existing object.
	Put(ctx context.Context, key string, body []byte) error

	// Get returns the raw bytes stored at key. Returns ErrNotExist if
	// the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetParsed returns Get's bytes auto-parsed per spec §6: a *.json
	// key parses to a single map[string]any (an empty map if the object
	// is empty or missing), a *.jsonl key parses to a []map[string]any
	// (empty slice if empty or missing), and any other extension returns
	// the raw bytes unchanged.
	GetParsed(ctx context.Context, key string) (any, error)

	// Append appends line plus a trailing newline to key, creating it if
	// absent. Callers must not include their own trailing newline.
	Append(ctx context.Context, key string, line string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns every key in the bucket ordered by modification time,
	// ascending.
	List(ctx context.Context) ([]string, error)

	// FindByPrefix returns keys beginning with prefix, in List order.
	FindByPrefix(ctx context.Context, prefix string) ([]string, error)

	// FindByExtension returns keys ending with ext (e.g. ".jsonl"), in
	// List order.
	FindByExtension(ctx context.Context, ext string) ([]string, error)

	// GetMany returns the bytes for each of keys that exists; missing
	// keys are silently omitted from the result (spec §7,
	// "ToolExecutionError... missing object-store objects on get via
	// getMany (silently omitted)").
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// EnsureBucket creates the backing bucket/root directory if absent.
	EnsureBucket(ctx context.Context) error

	// BucketExists reports whether the backing bucket/root exists.
	BucketExists(ctx context.Context) (bool, error)

	// IsHealthy performs a cheap connectivity check.
	IsHealthy(ctx context.Context) bool

	// Path returns a backend-specific human-readable location for key
	// ("" returns the bucket root), used in diagnostics and error
	// messages.
	Path(key string) string
}

// ErrNotExist is returned by Get when key is absent.
type ErrNotExist struct{ Key string }

func (e *ErrNotExist) Error() string { return fmt.Sprintf("objectstore: key not found: %s", e.Key) }

func parseByExtension(key string, data []byte) (any, error) {
	switch {
	case strings.HasSuffix(key, ".jsonl"):
		return parseJSONL(data)
	case strings.HasSuffix(key, ".json"):
		return parseJSON(data)
	default:
		return data, nil
	}
}

func parseJSON(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("objectstore: parse json: %w", err)
	}
	return out, nil
}

func parseJSONL(data []byte) ([]map[string]any, error) {
	out := []map[string]any{}
	if len(data) == 0 {
		return out, nil
	}
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("objectstore: parse jsonl line: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// New selects a Store backend by the STORAGE_TYPE environment convention
// (spec §6): "local" (default) or "s3".
func New(ctx context.Context, storageType string, localRoot string, s3cfg *S3Config) (Store, error) {
	switch storageType {
	case "", "local":
		return NewLocalStore(localRoot)
	case "s3":
		return NewS3Store(ctx, s3cfg)
	default:
		return nil, fmt.Errorf("objectstore: unknown STORAGE_TYPE %q", storageType)
	}
}
