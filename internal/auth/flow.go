// Package auth drives the sign-in sequence against a validated server:
// one-time-password discovery, submission gating and the authenticate call.
package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wgdashctl/internal/api"
	"wgdashctl/internal/session"
)

// State is the flow's position in the sign-in sequence.
type State int

const (
	Idle State = iota
	CheckingOtp
	ReadyToSignIn
	SigningIn
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CheckingOtp:
		return "checking_otp"
	case ReadyToSignIn:
		return "ready"
	case SigningIn:
		return "signing_in"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// APIClient is the slice of the api.Client surface the flow drives.
type APIClient interface {
	IsOtpEnabled(ctx context.Context) bool
	Authenticate(ctx context.Context, creds api.Credentials) (bool, string)
}

// Flow owns the sign-in state machine for one session. Entered credentials
// are preserved across failed attempts so the user can correct a password or
// OTP without retyping everything; they are never persisted or logged.
type Flow struct {
	client APIClient
	sess   *session.Session
	log    *zap.Logger

	mu          sync.Mutex
	state       State
	otpRequired bool
	creds       api.Credentials
	lastMessage string
}

func New(client APIClient, sess *session.Session, log *zap.Logger) *Flow {
	return &Flow{client: client, sess: sess, log: log}
}

// Begin discovers whether the server wants a one-time password. The answer
// gates whether an OTP field is presented but never blocks progression: a
// transport failure reads as "not required". The flow ends in ReadyToSignIn
// unconditionally.
func (f *Flow) Begin(ctx context.Context) {
	f.mu.Lock()
	f.state = CheckingOtp
	f.mu.Unlock()

	required := f.client.IsOtpEnabled(ctx)

	f.mu.Lock()
	f.otpRequired = required
	f.state = ReadyToSignIn
	f.mu.Unlock()
	f.log.Info("sign-in ready", zap.Bool("otp_required", required))
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// OtpRequired reports the discovery result from Begin.
func (f *Flow) OtpRequired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otpRequired
}

// SetCredentials records the entered values. Called on every edit; values
// survive failed submissions.
func (f *Flow) SetCredentials(username, password, otp string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds = api.Credentials{Username: username, Password: password, OTP: otp}
}

// Credentials returns the currently entered values.
func (f *Flow) Credentials() api.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds
}

// LastMessage returns the server message from the most recent failed
// attempt.
func (f *Flow) LastMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMessage
}

// CanSubmit reports whether a submission is allowed: both username and
// password entered and no submission in flight.
func (f *Flow) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds.Username != "" && f.creds.Password != "" && f.state != SigningIn
}

// Submit runs one authenticate call with the entered credentials. On success
// the session is marked authenticated (in memory only; the flag is never
// persisted). On failure the flow settles back to ReadyToSignIn with the
// server's message recorded and the credentials untouched.
func (f *Flow) Submit(ctx context.Context) (bool, string) {
	f.mu.Lock()
	if f.creds.Username == "" || f.creds.Password == "" || f.state == SigningIn {
		f.mu.Unlock()
		return false, "Sign-in not available"
	}
	f.state = SigningIn
	creds := f.creds
	f.mu.Unlock()

	log := f.log.With(zap.String("attempt_id", uuid.NewString()))
	ok, message := f.client.Authenticate(ctx, creds)

	f.mu.Lock()
	defer f.mu.Unlock()
	if ok {
		f.state = Authenticated
		f.lastMessage = ""
		f.sess.Authenticated = true
		log.Info("authenticated")
		return true, ""
	}

	f.state = Failed
	f.lastMessage = message
	log.Warn("authentication rejected", zap.String("message", message))
	// Failed is transient; the form is immediately editable again.
	f.state = ReadyToSignIn
	return false, message
}
