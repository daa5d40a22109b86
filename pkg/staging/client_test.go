package staging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/extract", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "model-1", body["modelRef"])
		json.NewEncoder(w).Encode(sampleExtraction())
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	ex, err := client.Extract(context.Background(), "model-1")
	require.NoError(t, err)
	assert.Equal(t, 2, ex.Count(CategoryArea))
	assert.Equal(t, 2, ex.Count(CategoryEquipment))
	assert.Equal(t, 1, ex.Count(CategoryMaterial))
}

func TestClientExtractErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Extract(context.Background(), "model-1")
	require.ErrorIs(t, err, ErrExtraction)
}

func TestClientImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/import/equipment", r.URL.Path)
		var req ImportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"e1"}, req.SelectedIDs)
		json.NewEncoder(w).Encode(ImportResult{ImportedCount: 1, LinkedCount: 1})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, nil).Import(context.Background(), CategoryEquipment, ImportRequest{SelectedIDs: []string{"e1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImportedCount)
	assert.Equal(t, 1, res.LinkedCount)
}
