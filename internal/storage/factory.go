package storage

import "strings"

// NewStorage creates an ObjectStorage from configuration, detecting the
// provider from the endpoint when unset.
func NewStorage(cfg *Config) (ObjectStorage, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = detectProvider(cfg.Endpoint)
	}

	switch provider {
	case "minio":
		return NewMinIOStorage(cfg)
	default:
		return NewS3Storage(cfg)
	}
}

func detectProvider(endpoint string) string {
	endpoint = strings.ToLower(endpoint)
	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return "r2"
	case strings.Contains(endpoint, "amazonaws.com"):
		return "s3"
	default:
		return "minio"
	}
}
