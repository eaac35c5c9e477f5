// Package api implements a typed client for the WGDashboard HTTP API:
// reachability probing, security-settings discovery, authentication and
// tunnel-configuration listing.
package api

import "encoding/json"

// Credentials carries one sign-in attempt. Instances are ephemeral: they
// live only for the duration of the authenticate request and are never
// persisted or logged.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// OTP is the time-based one-time password, empty when the server
	// does not require one (sent as "totp" on the wire either way).
	OTP string `json:"totp"`
}

// ServerConfig is the decoded dashboard configuration. Only the API-key
// gating flag is consumed directly; the rest of the settings tree is kept
// raw for callers that want to inspect it.
type ServerConfig struct {
	// APIKeyRequired reports whether the server gates requests behind
	// the wg-dashboard-apikey header.
	APIKeyRequired bool
	// Settings holds the full section tree ("Server", "Peers", ...) as
	// returned by the server.
	Settings map[string]json.RawMessage
}

// ConfigurationEntry is one WireGuard tunnel configuration as returned by
// the listing endpoint. Ownership transfers to the display layer once
// fetched.
type ConfigurationEntry struct {
	Name           string `json:"Name"`
	Address        string `json:"Address"`
	ListenPort     string `json:"ListenPort"`
	PublicKey      string `json:"PublicKey"`
	PrivateKey     string `json:"PrivateKey"`
	Status         bool   `json:"Status"`
	ConnectedPeers int    `json:"ConnectedPeers"`
	DataUsage      struct {
		Total    float64 `json:"Total"`
		Sent     float64 `json:"Sent"`
		Received float64 `json:"Received"`
	} `json:"DataUsage"`
}

// statusEnvelope is the common {status, message, data} response wrapper.
type statusEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}
