package main

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/taigrr/bimstage/pkg/modelsource"
	"github.com/taigrr/bimstage/pkg/viewer"
)

// Config carries the service endpoints and credentials the commands need.
// Everything comes from the environment (optionally via .env).
type Config struct {
	// APIBase is the extraction/import service base URL.
	APIBase string
	// ViewerURL is the hosted viewer base URL, empty when unused.
	ViewerURL string
	// ViewerToken is a static credential for the hosted viewer.
	ViewerToken string

	S3 modelsource.S3Config
}

// LoadConfig reads the environment, tolerating a missing .env file.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		APIBase:     firstNonEmpty(env("BIMSTAGE_API"), "http://localhost:8080"),
		ViewerURL:   env("BIMSTAGE_VIEWER_URL"),
		ViewerToken: env("BIMSTAGE_VIEWER_TOKEN"),
		S3: modelsource.S3Config{
			Endpoint:  env("BIMSTAGE_S3_ENDPOINT"),
			Region:    env("BIMSTAGE_S3_REGION"),
			AccessKey: firstNonEmpty(env("BIMSTAGE_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(env("BIMSTAGE_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
			UseSSL:    !strings.EqualFold(env("BIMSTAGE_S3_USE_SSL"), "false"),
		},
	}
}

// TokenProvider returns the viewer credential provider: the static env
// token when present.
func (c Config) TokenProvider() viewer.TokenProvider {
	return func(context.Context) (string, error) {
		return c.ViewerToken, nil
	}
}

// Source builds the model source for a ref, wiring object storage only
// when an endpoint is configured.
func (c Config) Source(ref string) (modelsource.Source, error) {
	var s3 *modelsource.S3Source
	if c.S3.Endpoint != "" {
		var err error
		s3, err = modelsource.NewS3Source(c.S3)
		if err != nil {
			return nil, err
		}
	}
	return modelsource.ForRef(ref, s3)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
