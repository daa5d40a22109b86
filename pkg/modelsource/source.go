// Package modelsource fetches raw binary building-model buffers from local
// files, HTTP endpoints, or S3-compatible object storage.
package modelsource

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Source returns the raw bytes of a model. The ref format is
// source-specific: a path, a URL, or an object key.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FileSource reads models from the local filesystem.
type FileSource struct{}

// Fetch reads the file at ref.
func (FileSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return data, nil
}

// ForRef picks a source by ref shape: URLs go to HTTP, "s3://bucket/key"
// to object storage (when s3 is configured), everything else to the
// filesystem.
func ForRef(ref string, s3 *S3Source) (Source, error) {
	switch {
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return &HTTPSource{}, nil
	case strings.HasPrefix(ref, "s3://"):
		if s3 == nil {
			return nil, fmt.Errorf("s3 ref %q but no object storage configured", ref)
		}
		return s3, nil
	default:
		return FileSource{}, nil
	}
}
