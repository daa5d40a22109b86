package modelsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForRefDispatch(t *testing.T) {
	s3 := &S3Source{}
	tests := []struct {
		ref  string
		want any
	}{
		{"http://host/model.glb", &HTTPSource{}},
		{"https://host/model.glb", &HTTPSource{}},
		{"s3://bucket/model.glb", s3},
		{"model.glb", FileSource{}},
		{"/abs/path/model.glb", FileSource{}},
	}
	for _, tt := range tests {
		src, err := ForRef(tt.ref, s3)
		require.NoError(t, err, tt.ref)
		assert.IsType(t, tt.want, src, tt.ref)
	}
}

func TestForRefS3Unconfigured(t *testing.T) {
	_, err := ForRef("s3://bucket/key", nil)
	require.Error(t, err)
}

func TestFileSourceFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.glb")
	require.NoError(t, os.WriteFile(path, []byte("glb-bytes"), 0o600))

	data, err := FileSource{}.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("glb-bytes"), data)

	_, err = FileSource{}.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.glb"))
	require.Error(t, err)
}

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.glb" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("glb-bytes"))
	}))
	defer srv.Close()

	data, err := (&HTTPSource{}).Fetch(context.Background(), srv.URL+"/model.glb")
	require.NoError(t, err)
	assert.Equal(t, []byte("glb-bytes"), data)

	_, err = (&HTTPSource{}).Fetch(context.Background(), srv.URL+"/missing.glb")
	require.Error(t, err)
}

func TestSplitRef(t *testing.T) {
	tests := []struct {
		ref         string
		bucket, key string
		wantErr     bool
	}{
		{"s3://models/site-a/building.glb", "models", "site-a/building.glb", false},
		{"s3://models", "", "", true},
		{"s3://", "", "", true},
		{"file.glb", "", "", true},
	}
	for _, tt := range tests {
		bucket, key, err := splitRef(tt.ref)
		if tt.wantErr {
			assert.Error(t, err, tt.ref)
			continue
		}
		require.NoError(t, err, tt.ref)
		assert.Equal(t, tt.bucket, bucket)
		assert.Equal(t, tt.key, key)
	}
}

func TestNewS3SourceValidation(t *testing.T) {
	_, err := NewS3Source(S3Config{})
	require.Error(t, err)

	_, err = NewS3Source(S3Config{Endpoint: "localhost:9000"})
	require.Error(t, err, "missing credentials must fail")

	src, err := NewS3Source(S3Config{Endpoint: "localhost:9000", AccessKey: "ak", SecretKey: "sk"})
	require.NoError(t, err)
	assert.NotNil(t, src)
}
