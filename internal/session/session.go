// Package session holds the client's durable connection state: the validated
// server address and optional API key, plus the session-scoped authenticated
// flag. Two storage backends exist, a JSON file under the user config
// directory and an optional Redis store.
package session

import "net/url"

// Session is the connection state for one server. ServerAddress and APIKey
// survive restarts; Authenticated never does, a cold start is always
// unauthenticated.
type Session struct {
	ServerAddress *url.URL
	APIKey        string
	Authenticated bool
}

// Clone returns a shallow copy safe to hand to observers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// persisted is the on-disk / on-wire form. Only the two durable fields are
// written.
type persisted struct {
	ServerAddress string `json:"server_address"`
	APIKey        string `json:"api_key,omitempty"`
}

func (s *Session) toPersisted() persisted {
	p := persisted{APIKey: s.APIKey}
	if s.ServerAddress != nil {
		p.ServerAddress = s.ServerAddress.String()
	}
	return p
}

func fromPersisted(p persisted) (*Session, error) {
	s := &Session{APIKey: p.APIKey}
	if p.ServerAddress != "" {
		u, err := url.Parse(p.ServerAddress)
		if err != nil {
			return nil, err
		}
		s.ServerAddress = u
	}
	return s, nil
}

// Store abstracts session persistence so the orchestrators stay agnostic of
// the backend. Save and Reset notify subscribers on success, synchronously
// on the calling goroutine.
type Store interface {
	// Load returns the persisted session, or an empty one when nothing
	// has been saved yet. Authenticated is always false after Load.
	Load() (*Session, error)
	// Save persists the two durable fields. The authenticated flag is
	// stripped.
	Save(s *Session) error
	// Reset forgets the server entirely.
	Reset() error
	// Subscribe registers fn to run after every successful Save or
	// Reset, receiving a copy of the new state (nil after Reset).
	Subscribe(fn func(*Session))
}
