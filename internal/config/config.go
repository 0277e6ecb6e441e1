// Package config reads process configuration from the environment, the
// same small-structs-from-os.Getenv idiom the rest of this codebase uses
// (no external config framework).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/haasonsaas/nexus/internal/objectstore"
)

// Config is process-wide configuration assembled from the environment.
type Config struct {
	Debug   string
	Storage StorageConfig
}

// StorageConfig selects and parameterizes the object-store backend
// (spec §6: STORAGE_TYPE, plus S3 backend variables).
type StorageConfig struct {
	Type      string
	LocalRoot string
	S3        objectstore.S3Config
}

// Load reads Config from the process environment, applying the same
// defaults as the rest of the codebase (local storage rooted at
// NEXUS_DATA_DIR or ./data, debug off).
func Load() Config {
	return Config{
		Debug: strings.TrimSpace(os.Getenv("DEBUG")),
		Storage: StorageConfig{
			Type:      strings.TrimSpace(os.Getenv("STORAGE_TYPE")),
			LocalRoot: envOrDefault("NEXUS_DATA_DIR", "./data"),
			S3: objectstore.S3Config{
				Bucket:          os.Getenv("NEXUS_S3_BUCKET"),
				Region:          os.Getenv("NEXUS_S3_REGION"),
				Endpoint:        os.Getenv("NEXUS_S3_ENDPOINT"),
				Prefix:          os.Getenv("NEXUS_S3_PREFIX"),
				AccessKeyID:     os.Getenv("NEXUS_S3_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("NEXUS_S3_SECRET_ACCESS_KEY"),
				UsePathStyle:    envBool("NEXUS_S3_USE_PATH_STYLE", false),
			},
		},
	}
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
