// Package app derives which screen to present from the session state.
package app

import "wgdashctl/internal/session"

// Screen identifies one of the three top-level screens.
type Screen int

const (
	// ScreenServerSetup asks for a server address (and API key when
	// gated).
	ScreenServerSetup Screen = iota
	// ScreenLogin asks for credentials against a validated server.
	ScreenLogin
	// ScreenDashboard shows the tunnel configuration list.
	ScreenDashboard
)

func (s Screen) String() string {
	switch s {
	case ScreenServerSetup:
		return "server_setup"
	case ScreenLogin:
		return "login"
	case ScreenDashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

// Route maps the session to a screen. It is total and side-effect free: no
// server yet means setup, an unauthenticated server means login, otherwise
// the dashboard.
func Route(sess *session.Session) Screen {
	switch {
	case sess == nil || sess.ServerAddress == nil:
		return ScreenServerSetup
	case !sess.Authenticated:
		return ScreenLogin
	default:
		return ScreenDashboard
	}
}
