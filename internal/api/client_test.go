package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestClient starts a fake dashboard server from the given router and
// returns a client configured against it.
func newTestClient(t *testing.T, router http.Handler, apiKey string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c := New(srv.Client(), zap.NewNop())
	c.Configure(base, apiKey)
	return c, srv
}

func TestHandshake_AnyResponseIsReachable(t *testing.T) {
	for _, status := range []int{200, 204, 401, 500} {
		r := chi.NewRouter()
		r.Get("/api/handshake", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})
		c, _ := newTestClient(t, r, "")

		ok, err := c.Handshake(context.Background())
		require.NoError(t, err, "status %d", status)
		assert.True(t, ok, "status %d", status)
	}
}

func TestHandshake_TransportFailure(t *testing.T) {
	r := chi.NewRouter()
	c, srv := newTestClient(t, r, "")
	srv.Close()

	ok, err := c.Handshake(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestHandshake_NotConfigured(t *testing.T) {
	c := New(http.DefaultClient, zap.NewNop())
	_, err := c.Handshake(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConfigure_APIKeyHeader(t *testing.T) {
	var gotKey string
	var keyPresent bool
	r := chi.NewRouter()
	r.Get("/api/handshake", func(w http.ResponseWriter, req *http.Request) {
		gotKey = req.Header.Get(APIKeyHeader)
		_, keyPresent = req.Header[http.CanonicalHeaderKey(APIKeyHeader)]
		w.WriteHeader(http.StatusOK)
	})
	c, srv := newTestClient(t, r, "secret-key")

	_, err := c.Handshake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotKey)

	// Reconfiguring with an empty key must clear the header entirely.
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	c.Configure(base, "")

	_, err = c.Handshake(context.Background())
	require.NoError(t, err)
	assert.False(t, keyPresent)
}

func TestConfigure_BasePathPrefix(t *testing.T) {
	var gotPath string
	r := chi.NewRouter()
	r.Get("/prefix/api/handshake", func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL + "/prefix")
	require.NoError(t, err)
	c := New(srv.Client(), zap.NewNop())
	c.Configure(base, "")

	_, err = c.Handshake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/prefix/api/handshake", gotPath)
}

func TestFetchServerConfig(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantGated bool
		wantErr   error
	}{
		{
			name:      "gating enabled",
			body:      `{"data":{"Server":{"dashboard_api_key":"true"},"Peers":{}}}`,
			wantGated: true,
		},
		{
			name:      "gating disabled",
			body:      `{"data":{"Server":{"dashboard_api_key":"false"}}}`,
			wantGated: false,
		},
		{
			name:    "malformed body",
			body:    `not json`,
			wantErr: ErrParse,
		},
		{
			name:    "missing data",
			body:    `{"status":true}`,
			wantErr: ErrParse,
		},
		{
			name:    "missing Server section",
			body:    `{"data":{"Peers":{}}}`,
			wantErr: ErrConfig,
		},
		{
			name:    "missing gating field",
			body:    `{"data":{"Server":{"version":"v4"}}}`,
			wantErr: ErrConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/getDashboardConfiguration", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			c, _ := newTestClient(t, r, "")

			cfg, err := c.FetchServerConfig(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGated, cfg.APIKeyRequired)
			assert.Contains(t, cfg.Settings, "Server")
		})
	}
}

func TestIsOtpEnabled(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "enabled", body: `{"data":true}`, want: true},
		{name: "disabled", body: `{"data":false}`, want: false},
		{name: "malformed defaults to disabled", body: `garbage`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/isTotpEnabled", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			c, _ := newTestClient(t, r, "")
			assert.Equal(t, tt.want, c.IsOtpEnabled(context.Background()))
		})
	}
}

func TestIsOtpEnabled_TransportFailureIsDisabled(t *testing.T) {
	c, srv := newTestClient(t, chi.NewRouter(), "")
	srv.Close()
	assert.False(t, c.IsOtpEnabled(context.Background()))
}

func TestAuthenticate(t *testing.T) {
	var gotBody map[string]string
	r := chi.NewRouter()
	r.Post("/api/authenticate", func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&gotBody))
		if gotBody["password"] == "right" {
			_, _ = w.Write([]byte(`{"status":true,"message":""}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":false,"message":"TOTP required"}`))
	})
	c, _ := newTestClient(t, r, "")

	ok, msg := c.Authenticate(context.Background(), Credentials{Username: "admin", Password: "wrong"})
	assert.False(t, ok)
	assert.Equal(t, "TOTP required", msg)
	// An absent OTP still goes on the wire as an empty totp field.
	assert.Equal(t, "", gotBody["totp"])

	ok, msg = c.Authenticate(context.Background(), Credentials{Username: "admin", Password: "right", OTP: "123456"})
	assert.True(t, ok)
	assert.Empty(t, msg)
	assert.Equal(t, "123456", gotBody["totp"])
}

func TestAuthenticate_TransportFailure(t *testing.T) {
	c, srv := newTestClient(t, chi.NewRouter(), "")
	srv.Close()

	ok, msg := c.Authenticate(context.Background(), Credentials{Username: "a", Password: "b"})
	assert.False(t, ok)
	assert.Equal(t, "Network error", msg)
}

func TestFetchConfigurations(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantNil   bool
		wantCount int
	}{
		{
			name:      "entries",
			body:      `{"status":true,"data":[{"Name":"wg0","Address":"10.0.0.1/24","ListenPort":"51820","Status":true,"ConnectedPeers":3}]}`,
			wantCount: 1,
		},
		{
			name:      "empty list is empty, not nil",
			body:      `{"status":true,"data":[]}`,
			wantCount: 0,
		},
		{name: "status false", body: `{"status":false,"message":"denied"}`, wantNil: true},
		{name: "malformed body", body: `garbage`, wantNil: true},
		{name: "wrong-shaped data", body: `{"status":true,"data":{"not":"a list"}}`, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/getWireguardConfigurations", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			c, _ := newTestClient(t, r, "")

			entries := c.FetchConfigurations(context.Background())
			if tt.wantNil {
				assert.Nil(t, entries)
				return
			}
			require.NotNil(t, entries)
			assert.Len(t, entries, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, "wg0", entries[0].Name)
				assert.Equal(t, 3, entries[0].ConnectedPeers)
			}
		})
	}
}

func TestFetchConfigurations_TransportFailure(t *testing.T) {
	c, srv := newTestClient(t, chi.NewRouter(), "")
	srv.Close()
	assert.Nil(t, c.FetchConfigurations(context.Background()))
}
