package session

import (
	"context"
	"math/rand"
	"sort"
	"time"
)

// CodeLength is the length of a generated attendance code.
const CodeLength = 8

// codeAlphabet intentionally stays small: 36^8 is brute-forceable within a
// session window, which is an accepted property of the system, not a
// cryptographic secret.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCode generates a fresh attendance code, uniform per character.
func NewCode() string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// Manager coordinates the rotating code and the present-set. It holds no
// state of its own; everything durable lives in the Store.
type Manager struct {
	store    Store
	interval time.Duration
	now      func() time.Time

	onRotate  func(code string, at time.Time)
	onPresent func(identity, code string, at time.Time)
}

// NewManager creates a manager over a store with the given rotation
// interval.
func NewManager(store Store, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Manager{store: store, interval: interval, now: time.Now}
}

// OnRotate registers a hook invoked after each successful rotation.
func (m *Manager) OnRotate(fn func(code string, at time.Time)) { m.onRotate = fn }

// OnPresent registers a hook invoked after each accepted submission.
func (m *Manager) OnPresent(fn func(identity, code string, at time.Time)) { m.onPresent = fn }

// ResolveActiveCode returns the active code, rotating first when the stored
// one has gone stale. Two concurrent callers may both rotate; that race is
// accepted because each rotation is an atomic triple, so the last writer
// wins as a whole.
func (m *Manager) ResolveActiveCode(ctx context.Context) (string, error) {
	ts, err := m.store.SecretTimestamp(ctx)
	if err != nil {
		return "", err
	}

	now := m.now()
	stale := float64(now.UnixNano())/float64(time.Second)-ts > m.interval.Seconds()
	if !stale {
		return m.store.SecretCode(ctx)
	}

	code := NewCode()
	if err := m.store.Rotate(ctx, code, now); err != nil {
		return "", err
	}
	if m.onRotate != nil {
		m.onRotate(code, now)
	}
	return code, nil
}

// Submit verifies a code against whatever is currently stored and, on
// match, records the identity as present. Verification never rotates: a
// student submitting right at the staleness boundary is checked against the
// code they were shown, not a freshly minted one.
func (m *Manager) Submit(ctx context.Context, identity, code string) error {
	if identity == "" || code == "" {
		return ErrMissingField
	}

	stored, err := m.store.SecretCode(ctx)
	if err != nil {
		return err
	}
	if code != stored {
		return ErrCodeMismatch
	}

	if err := m.store.AddPresent(ctx, identity); err != nil {
		return err
	}
	if m.onPresent != nil {
		m.onPresent(identity, code, m.now())
	}
	return nil
}

// ListPresent returns the present-set sorted lexicographically ascending.
func (m *Manager) ListPresent(ctx context.Context) ([]string, error) {
	members, err := m.store.ListPresent(ctx)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []string{}
	}
	sort.Strings(members)
	return members, nil
}
