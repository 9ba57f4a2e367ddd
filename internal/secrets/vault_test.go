package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVault(t *testing.T, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		data, ok := secrets[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"data": data, "metadata": map[string]any{"version": 1}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultKeySource(t *testing.T) {
	srv := newVault(t, map[string]map[string]any{
		"/v1/secret/data/ml/app": {"key": "aabb", "other": "ccdd"},
	})

	src, err := NewVaultKeySource(srv.URL, "test-token")
	require.NoError(t, err)
	ctx := context.Background()

	key, err := src.Key(ctx, "secret/data/ml/app")
	require.NoError(t, err)
	assert.Equal(t, "aabb", key)

	key, err = src.Key(ctx, "/secret/data/ml/app#other")
	require.NoError(t, err)
	assert.Equal(t, "ccdd", key)

	_, err = src.Key(ctx, "secret/data/ml/app#missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = src.Key(ctx, "secret/data/unknown")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestVaultKeySource_Forbidden(t *testing.T) {
	srv := newVault(t, nil)

	src, err := NewVaultKeySource(srv.URL, "wrong")
	require.NoError(t, err)

	_, err = src.Key(context.Background(), "secret/data/ml/app")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
}

func TestVaultKeySource_Health(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]any
		wantErr string
	}{
		{name: "healthy", body: map[string]any{"initialized": true, "sealed": false}},
		{name: "sealed", body: map[string]any{"initialized": true, "sealed": true}, wantErr: "sealed"},
		{name: "uninitialized", body: map[string]any{"initialized": false, "sealed": true}, wantErr: "not initialized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/sys/health" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			src, err := NewVaultKeySource(srv.URL, "")
			require.NoError(t, err)

			err = src.Health(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
