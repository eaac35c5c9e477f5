package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"go.uber.org/zap"
)

// APIKeyHeader is attached to every request once a key is configured.
const APIKeyHeader = "wg-dashboard-apikey"

const (
	epHandshake      = "api/handshake"
	epIsTotpEnabled  = "api/isTotpEnabled"
	epDashboardConf  = "api/getDashboardConfiguration"
	epAuthenticate   = "api/authenticate"
	epConfigurations = "api/getWireguardConfigurations"
)

// clientConfig is an immutable base-address/credential pair. Configure swaps
// the whole value so a request captures one consistent snapshot and never
// observes a config mid-update.
type clientConfig struct {
	base   *url.URL
	apiKey string
}

// Client is a stateless-per-call wrapper around the WGDashboard API. It
// holds exactly one active configuration at a time (last write wins) and
// performs single in-flight calls with no internal retry; timeouts come
// from the underlying http.Client.
type Client struct {
	http *http.Client
	cfg  atomic.Pointer[clientConfig]
	log  *zap.Logger
}

// New returns a Client using httpClient for transport. The client is unusable
// until Configure is called.
func New(httpClient *http.Client, log *zap.Logger) *Client {
	return &Client{http: httpClient, log: log}
}

// Configure sets the target base address and, when apiKey is non-empty, arms
// the client to send the credential header on every subsequent call. An empty
// apiKey clears the header. Requests already in flight keep the snapshot they
// started with.
func (c *Client) Configure(base *url.URL, apiKey string) {
	c.cfg.Store(&clientConfig{base: base, apiKey: apiKey})
	c.log.Debug("api client configured",
		zap.String("base", base.Redacted()),
		zap.Bool("api_key_set", apiKey != ""))
}

// do issues one request against the current configuration snapshot and
// returns the response. Transport failures come back wrapped in ErrNetwork.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	cfg := c.cfg.Load()
	if cfg == nil {
		return nil, ErrNotConfigured
	}

	u := cfg.base.JoinPath(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.apiKey != "" {
		req.Header.Set(APIKeyHeader, cfg.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return resp, nil
}

// Handshake probes the server for reachability. Any response from the
// server, regardless of status or payload, counts as reachable; only a
// transport failure yields ErrNetwork.
func (c *Client) Handshake(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, epHandshake, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	c.log.Debug("handshake ok", zap.Int("status", resp.StatusCode))
	return true, nil
}

// FetchServerConfig retrieves and decodes the dashboard configuration. It
// expects a successful Handshake to have run first. A malformed envelope
// yields ErrParse; a well-formed envelope missing the API-key gating field
// yields ErrConfig.
func (c *Client) FetchServerConfig(ctx context.Context) (*ServerConfig, error) {
	resp, err := c.do(ctx, http.MethodGet, epDashboardConf, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decoding dashboard configuration: %v", ErrParse, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: dashboard configuration has no data", ErrParse)
	}

	serverRaw, ok := env.Data["Server"]
	if !ok {
		return nil, fmt.Errorf("%w: missing Server section", ErrConfig)
	}
	var server struct {
		DashboardAPIKey string `json:"dashboard_api_key"`
	}
	if err := json.Unmarshal(serverRaw, &server); err != nil {
		return nil, fmt.Errorf("%w: decoding Server section: %v", ErrParse, err)
	}
	if server.DashboardAPIKey == "" {
		return nil, fmt.Errorf("%w: missing dashboard_api_key", ErrConfig)
	}

	return &ServerConfig{
		APIKeyRequired: server.DashboardAPIKey == "true",
		Settings:       env.Data,
	}, nil
}

// IsOtpEnabled reports whether the server requires a one-time password at
// sign-in. Any transport or decode failure yields false: absence of
// confirmation must never block login, so this call swallows its errors.
func (c *Client) IsOtpEnabled(ctx context.Context) bool {
	resp, err := c.do(ctx, http.MethodGet, epIsTotpEnabled, nil)
	if err != nil {
		c.log.Debug("totp discovery failed, assuming disabled", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	var env struct {
		Data bool `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.log.Debug("totp discovery undecodable, assuming disabled", zap.Error(err))
		return false
	}
	return env.Data
}

// Authenticate submits credentials and returns the server's verdict. A
// transport or decode failure is reported as a failed attempt with a generic
// message; a well-formed envelope is passed through verbatim.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (bool, string) {
	body, err := json.Marshal(creds)
	if err != nil {
		return false, "Network error"
	}

	resp, err := c.do(ctx, http.MethodPost, epAuthenticate, body)
	if err != nil {
		c.log.Warn("authenticate transport failure", zap.Error(err))
		return false, "Network error"
	}
	defer resp.Body.Close()

	var env statusEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.log.Warn("authenticate response undecodable", zap.Error(err))
		return false, "Network error"
	}
	return env.Status, env.Message
}

// FetchConfigurations lists the WireGuard tunnel configurations. The result
// is nil whenever there is nothing to show: transport failure, status false
// or a malformed body. A server-side empty list comes back as an empty
// non-nil slice.
func (c *Client) FetchConfigurations(ctx context.Context) []ConfigurationEntry {
	resp, err := c.do(ctx, http.MethodGet, epConfigurations, nil)
	if err != nil {
		c.log.Warn("configuration listing failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	var env statusEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.log.Warn("configuration listing undecodable", zap.Error(err))
		return nil
	}
	if !env.Status {
		c.log.Warn("configuration listing rejected", zap.String("message", env.Message))
		return nil
	}

	entries := []ConfigurationEntry{}
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		c.log.Warn("configuration entries undecodable", zap.Error(err))
		return nil
	}
	return entries
}
