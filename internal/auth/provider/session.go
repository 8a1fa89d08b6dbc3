package provider

import (
	"context"
	"fmt"
	"sync"

	"payshield/internal/auth"
)

// Session is the stateful side of a provider: it remembers which
// external identity is signed in and tells subscribers when that
// changes.
//
// Every subscriber is served by its own goroutine. A notification
// carries the identity current at delivery time, so bursts of changes
// coalesce. A subscriber is called again whenever the session changed
// since its last delivery, even when a burst ends on the identity it
// already saw: a sign-in followed by a sign-out still reaches it.
type Session struct {
	provider Provider

	mu      sync.Mutex
	current *auth.ExternalIdentity
	version uint64
	subs    map[uint64]*subscriber
	nextID  uint64
	closed  bool
}

type subscriber struct {
	fn   func(*auth.ExternalIdentity)
	wake chan struct{}
	done chan struct{}
}

func NewSession(p Provider) *Session {
	return &Session{
		provider: p,
		subs:     make(map[uint64]*subscriber),
	}
}

// Provider returns the provider backing the session.
func (s *Session) Provider() Provider {
	return s.provider
}

// Current returns the signed-in identity, or nil.
func (s *Session) Current() *auth.ExternalIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneIdentity(s.current)
}

// Restore seeds the session with an identity persisted by a previous
// run, the way a browser provider SDK restores its session on reload.
func (s *Session) Restore(identity *auth.ExternalIdentity) {
	s.set(cloneIdentity(identity))
}

func (s *Session) SignIn(ctx context.Context, email, secret string) (*auth.ExternalIdentity, error) {
	identity, err := s.provider.SignIn(ctx, email, secret)
	if err != nil {
		return nil, err
	}
	if identity == nil || identity.ProviderUserID == "" {
		return nil, fmt.Errorf("%s: sign-in returned no identity", s.provider.Name())
	}
	s.set(cloneIdentity(identity))
	return identity, nil
}

func (s *Session) SignUp(ctx context.Context, email, secret string) (*auth.ExternalIdentity, error) {
	identity, err := s.provider.SignUp(ctx, email, secret)
	if err != nil {
		return nil, err
	}
	if identity == nil || identity.ProviderUserID == "" {
		return nil, fmt.Errorf("%s: sign-up returned no identity", s.provider.Name())
	}
	s.set(cloneIdentity(identity))
	return identity, nil
}

// SignOut ends the provider session. When the provider call fails the
// session is left as it was and the error is returned.
func (s *Session) SignOut(ctx context.Context) error {
	current := s.Current()
	if current == nil {
		return nil
	}
	if err := s.provider.SignOut(ctx, current); err != nil {
		return err
	}
	s.mu.Lock()
	unchanged := s.current.SessionKey() == current.SessionKey()
	s.mu.Unlock()
	if unchanged {
		s.set(nil)
	}
	return nil
}

// OnSessionChange registers fn. fn is called with the current identity
// (nil when signed out) shortly after registration and after every
// change, always from the same goroutine.
func (s *Session) OnSessionChange(fn func(*auth.ExternalIdentity)) (unsubscribe func()) {
	sub := &subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	go s.dispatch(sub)
	sub.wake <- struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			_, live := s.subs[id]
			delete(s.subs, id)
			s.mu.Unlock()
			if live {
				close(sub.done)
			}
		})
	}
}

// Close stops every dispatcher.
func (s *Session) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[uint64]*subscriber)
	s.closed = true
	s.mu.Unlock()

	for _, sub := range subs {
		close(sub.done)
	}
}

// snapshot returns the identity together with the change counter it
// belongs to.
func (s *Session) snapshot() (*auth.ExternalIdentity, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneIdentity(s.current), s.version
}

func (s *Session) set(identity *auth.ExternalIdentity) {
	s.mu.Lock()
	s.current = identity
	s.version++
	subs := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.wake <- struct{}{}:
		default: // already pending, it will read the latest identity
		}
	}
}

func (s *Session) dispatch(sub *subscriber) {
	delivered := false
	var last uint64

	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}

		// done wins over a pending wake
		select {
		case <-sub.done:
			return
		default:
		}

		current, version := s.snapshot()
		if delivered && version == last {
			continue
		}
		delivered, last = true, version
		sub.fn(current)
	}
}

func cloneIdentity(i *auth.ExternalIdentity) *auth.ExternalIdentity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
