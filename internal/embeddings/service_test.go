package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid TEI configuration",
			config: Config{BaseURL: "http://localhost:8080", Model: "BAAI/bge-small-en-v1.5"},
		},
		{
			name:   "valid with API key",
			config: Config{BaseURL: "https://api.example.com/v1", Model: "text-embedding-3-small", APIKey: "sk-test"},
		},
		{
			name:    "empty base URL",
			config:  Config{Model: "test"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.config, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
		})
	}
}

func TestService_EmbedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode([][]float32{{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	vec, err := svc.EmbedQuery(context.Background(), "children swimming")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestService_EmbedQuery_EmptyInput(t *testing.T) {
	svc, err := NewService(Config{BaseURL: "http://localhost:8080"}, nil)
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestService_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "429 maps to throttled", status: http.StatusTooManyRequests, wantErr: ErrProviderThrottled},
		{name: "504 maps to timeout", status: http.StatusGatewayTimeout, wantErr: ErrProviderTimeout},
		{name: "500 maps to unavailable", status: http.StatusInternalServerError, wantErr: ErrProviderUnavailable},
		{name: "503 maps to unavailable", status: http.StatusServiceUnavailable, wantErr: ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			svc, err := NewService(Config{BaseURL: srv.URL}, nil)
			require.NoError(t, err)

			_, err = svc.EmbedQuery(context.Background(), "query")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsTransient(err))
		})
	}
}

func TestService_DeadlineMapsToTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode([][]float32{{0.1}})
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = svc.EmbedQuery(ctx, "query")
	assert.ErrorIs(t, err, ErrProviderTimeout)
}

func TestService_ConnectionRefusedMapsToUnavailable(t *testing.T) {
	// Closed port: the request never reaches a server.
	svc, err := NewService(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "query")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestStaticProvider_Deterministic(t *testing.T) {
	p := NewStaticProvider(8)

	a, err := p.EmbedQuery(context.Background(), "sunset beach")
	require.NoError(t, err)
	b, err := p.EmbedQuery(context.Background(), "sunset beach")
	require.NoError(t, err)
	c, err := p.EmbedQuery(context.Background(), "birthday party")
	require.NoError(t, err)

	assert.Equal(t, a, b, "identical text embeds identically")
	assert.NotEqual(t, a, c, "different text diverges")
	assert.Len(t, a, 8)
}
