// Package connect decides whether a user-supplied server address is usable:
// it normalizes the address, probes reachability, fetches the dashboard
// configuration and persists the session once the server checks out.
package connect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wgdashctl/internal/api"
	"wgdashctl/internal/session"
)

// State is the validator's position in the validation sequence.
type State int

const (
	Unvalidated State = iota
	Validating
	ApiKeyRequired
	Valid
	Failed
)

func (s State) String() string {
	switch s {
	case Unvalidated:
		return "unvalidated"
	case Validating:
		return "validating"
	case ApiKeyRequired:
		return "api_key_required"
	case Valid:
		return "valid"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one validation attempt. Reason is a
// short user-facing string, set only for Failed.
type Outcome struct {
	State  State
	Config *api.ServerConfig
	Reason string
}

// ErrValidationInFlight is returned when Validate is called while a previous
// attempt is still outstanding. New submissions are rejected, not queued:
// the caller resubmits once the current attempt settles.
var ErrValidationInFlight = errors.New("validation already in flight")

// ErrInvalidAddress marks input that cannot be normalized into an address.
var ErrInvalidAddress = errors.New("invalid server address")

// APIClient is the slice of the api.Client surface the validator drives.
type APIClient interface {
	Configure(base *url.URL, apiKey string)
	Handshake(ctx context.Context) (bool, error)
	FetchServerConfig(ctx context.Context) (*api.ServerConfig, error)
}

// Validator runs the two-phase probe (handshake, then configuration fetch)
// and writes the session only when a server is fully validated. A failed or
// superseded attempt never touches the store.
type Validator struct {
	client APIClient
	store  session.Store
	log    *zap.Logger

	inFlight atomic.Bool
	attempt  atomic.Int64

	mu    sync.Mutex
	state State
}

func New(client APIClient, store session.Store, log *zap.Logger) *Validator {
	return &Validator{client: client, store: store, log: log}
}

// State returns the current validator state.
func (v *Validator) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Validator) setState(s State) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}

// NormalizeAddress turns user input into a base URL. Input carrying an
// explicit scheme passes through unchanged; anything else gets "http://"
// prepended. This is a heuristic: garbage input still yields a syntactically
// valid address and surfaces later as unreachable.
func NormalizeAddress(input string) (*url.URL, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidAddress)
	}
	if !strings.Contains(input, "://") {
		input = "http://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: no host in %q", ErrInvalidAddress, input)
	}
	return u, nil
}

// Validate runs one validation attempt for rawAddr, with apiKey empty on the
// first pass and set once the server has asked for one. The only error it
// returns is ErrValidationInFlight; every other failure comes back as a
// Failed outcome with a user-facing reason.
//
// Only a fully valid attempt persists: serverAddress and apiKey are written
// to the store and the authenticated flag is reset. A late completion from a
// superseded attempt is discarded before any store mutation.
func (v *Validator) Validate(ctx context.Context, rawAddr, apiKey string) (Outcome, error) {
	if !v.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, ErrValidationInFlight
	}
	defer v.inFlight.Store(false)

	token := v.attempt.Add(1)
	log := v.log.With(zap.String("attempt_id", uuid.NewString()))
	v.setState(Validating)

	u, err := NormalizeAddress(rawAddr)
	if err != nil {
		log.Warn("address rejected", zap.Error(err))
		return v.fail("Invalid server address"), nil
	}
	log.Info("validating server", zap.String("address", u.Redacted()))

	v.client.Configure(u, apiKey)

	if _, err := v.client.Handshake(ctx); err != nil {
		log.Warn("handshake failed", zap.Error(err))
		return v.fail("Server unreachable"), nil
	}

	cfg, err := v.client.FetchServerConfig(ctx)
	if err != nil {
		log.Warn("configuration fetch failed", zap.Error(err))
		return v.fail("Config failed"), nil
	}

	if cfg.APIKeyRequired && apiKey == "" {
		log.Info("server requires an api key")
		v.setState(ApiKeyRequired)
		return Outcome{State: ApiKeyRequired, Config: cfg}, nil
	}

	// Stale guard: a later attempt owns the store now.
	if v.attempt.Load() != token {
		log.Info("attempt superseded, discarding result")
		return v.fail("Superseded by a newer attempt"), nil
	}

	sess, err := v.store.Load()
	if err != nil {
		sess = &session.Session{}
	}
	sess.ServerAddress = u
	sess.APIKey = apiKey
	sess.Authenticated = false
	if err := v.store.Save(sess); err != nil {
		log.Error("session save failed", zap.Error(err))
		return v.fail("Could not save session"), nil
	}

	log.Info("server validated", zap.Bool("api_key_used", apiKey != ""))
	v.setState(Valid)
	return Outcome{State: Valid, Config: cfg}, nil
}

func (v *Validator) fail(reason string) Outcome {
	v.setState(Failed)
	return Outcome{State: Failed, Reason: reason}
}
