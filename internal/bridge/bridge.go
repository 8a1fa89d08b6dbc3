package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"payshield/internal/auth"
	"payshield/internal/auth/resolver"
	"payshield/internal/gate"
	"payshield/internal/relay"
	"payshield/internal/session"

	"golang.org/x/sync/singleflight"
)

type State int

const (
	Unknown State = iota
	Resolving
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "invalid"
	}
}

// Event is one identity transition. User is set only in Authenticated.
type Event struct {
	State State
	User  *auth.Record
}

// ProviderSession is the stateful external identity provider.
// *provider.Session satisfies it.
type ProviderSession interface {
	SignIn(ctx context.Context, email, secret string) (*auth.ExternalIdentity, error)
	SignUp(ctx context.Context, email, secret string) (*auth.ExternalIdentity, error)
	SignOut(ctx context.Context) error
	OnSessionChange(fn func(*auth.ExternalIdentity)) (unsubscribe func())
}

type Options struct {
	Store    *session.Store
	Session  ProviderSession
	Resolver resolver.Resolver
	Relay    relay.Relay // optional; nil disables cross-tab sync
	TabID    string
}

// Bridge reconciles the external provider session with the backend
// profile and owns the tab's session store.
//
// Transitions are serialized: store write, relay broadcast and subscriber
// notification of one transition complete before the next begins.
// Subscriber handlers run with the transition lock held and must not call
// back into the Bridge synchronously.
type Bridge struct {
	store    *session.Store
	session  ProviderSession
	resolver resolver.Resolver
	relay    relay.Relay
	gate     *gate.Gate
	tabID    string
	origin   string

	transitionMu sync.Mutex

	mu         sync.Mutex
	state      State
	user       *auth.Record
	externalID string // external session id as last observed
	ignoredID  string // signed out locally, provider may still report it
	subs       map[uint64]func(Event)
	nextID     uint64
	seq        uint64
	lastSeen   map[string]uint64
	hints      map[string]signupHint

	group singleflight.Group

	ctx       context.Context
	cancel    context.CancelFunc
	ready     chan struct{}
	readyOnce sync.Once
	startOnce sync.Once
	unsubs    []func()
}

func New(opts Options) (*Bridge, error) {
	if opts.Store == nil || opts.Session == nil || opts.Resolver == nil {
		return nil, errors.New("bridge: store, session and resolver are required")
	}
	tabID := opts.TabID
	if tabID == "" {
		tabID = opts.Store.Scope()
	}

	instance, err := session.GenerateID()
	if err != nil {
		return nil, fmt.Errorf("bridge: instance id: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		store:    opts.Store,
		session:  opts.Session,
		resolver: opts.Resolver,
		relay:    opts.Relay,
		gate:     gate.New(opts.Store),
		tabID:    tabID,
		origin:   tabID + ":" + instance,
		subs:     make(map[uint64]func(Event)),
		lastSeen: make(map[string]uint64),
		hints:    make(map[string]signupHint),
		ctx:      ctx,
		cancel:   cancel,
		ready:    make(chan struct{}),
	}, nil
}

// Start wires the bridge to the relay, the store and the provider
// session, then waits until the first provider notification has been
// handled so the state has left Unknown.
func (b *Bridge) Start(ctx context.Context) error {
	var err error
	b.startOnce.Do(func() {
		if b.relay != nil {
			unsub, serr := b.relay.Subscribe(b.ctx, b.receive)
			if serr != nil {
				err = serr
				return
			}
			b.unsubs = append(b.unsubs, unsub)
		}
		b.unsubs = append(b.unsubs,
			b.store.OnExternalChange(b.applyRelayed),
			b.session.OnSessionChange(b.handleExternal),
		)
	})
	if err != nil {
		return err
	}

	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches the bridge. The store keeps its record so the tab can
// be restored later.
func (b *Bridge) Close() {
	b.cancel()
	for i := len(b.unsubs) - 1; i >= 0; i-- {
		b.unsubs[i]()
	}
	b.unsubs = nil
}

func (b *Bridge) TabID() string {
	return b.tabID
}

// State returns the current state of the machine.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe registers fn and immediately replays the current state to
// it. Every subscriber sees the same ordered stream; consecutive
// identical events are never delivered.
func (b *Bridge) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.transitionMu.Lock()
	defer b.transitionMu.Unlock()

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	ev := Event{State: b.state, User: b.user.Clone()}
	b.mu.Unlock()

	fn(ev)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// CurrentUser reads the store; it never performs I/O.
func (b *Bridge) CurrentUser() *auth.Record {
	return b.gate.CurrentUser()
}

func (b *Bridge) IsAuthenticated() bool {
	return b.gate.IsAuthenticated()
}

func (b *Bridge) HasRole(role auth.Role) bool {
	return b.gate.HasRole(role)
}

// transition moves the machine and notifies subscribers in registration
// order. Caller holds transitionMu.
func (b *Bridge) transition(state State, rec *auth.Record) {
	b.mu.Lock()
	if b.state == state && b.user.Equal(rec) {
		b.mu.Unlock()
		return
	}
	b.state = state
	b.user = rec.Clone()

	subs := make([]func(Event), 0, len(b.subs))
	for id := uint64(0); id < b.nextID; id++ {
		if fn, ok := b.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(Event{State: state, User: rec.Clone()})
	}
}

func (b *Bridge) observe(externalID string) {
	b.mu.Lock()
	b.externalID = externalID
	b.mu.Unlock()
}

// adopt makes externalID the one being resolved. Provider notifications
// for an identity the tab signed out of are refused until the provider
// reports a different session; explicit sign-ins always pass.
func (b *Bridge) adopt(externalID string, explicit bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if explicit {
		b.ignoredID = ""
	} else if externalID == b.ignoredID {
		return false
	}
	b.externalID = externalID
	return true
}

// forget drops the observed session and ignores it from now on.
func (b *Bridge) forget() {
	b.mu.Lock()
	if b.externalID != "" {
		b.ignoredID = b.externalID
	}
	b.externalID = ""
	b.mu.Unlock()
}

func (b *Bridge) observed() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.externalID
}

func (b *Bridge) markReady() {
	b.readyOnce.Do(func() { close(b.ready) })
}
