package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRates(t *testing.T) {
	var gotPath, gotAppID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAppID = r.URL.Query().Get("app_id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"USD","rates":{"USD":1,"RUB":90.5,"EUR":0.85}}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, "test-key", time.Second)
	rates, err := client.Rates(context.Background(), "2024-05-01")
	require.NoError(t, err)

	assert.Equal(t, "/historical/2024-05-01.json", gotPath)
	assert.Equal(t, "test-key", gotAppID)
	assert.Len(t, rates, 3)
	assert.Equal(t, "90.5", rates["RUB"].String())
}

func TestClientRatesErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantErr: ErrProviderUnavailable,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"rates": not-json`))
			},
			wantErr: ErrInvalidRateData,
		},
		{
			name: "missing rates field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"base":"USD"}`))
			},
			wantErr: ErrInvalidRateData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClientWithBaseURL(server.URL, "test-key", time.Second)
			_, err := client.Rates(context.Background(), "2024-05-01")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClientRatesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, "test-key", 20*time.Millisecond)
	_, err := client.Rates(context.Background(), "2024-05-01")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestClientCurrencies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/currencies.json", r.URL.Path)
		w.Write([]byte(`{"USD":"United States Dollar","RUB":"Russian Ruble"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL, "test-key", time.Second)
	currencies, err := client.Currencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Russian Ruble", currencies["RUB"])
}
