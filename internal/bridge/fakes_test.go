package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"payshield/internal/auth"
	"payshield/internal/auth/provider"
	"payshield/internal/auth/resolver"
	"payshield/internal/relay"
	"payshield/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var startingBalance = decimal.RequireFromString("100000.00")

// fakeProvider is an in-memory identity provider. SignOut can be held
// open with signOutGate to model a slow network.
type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]string

	signOutGate chan struct{}
	signOutErr  error
	signOuts    atomic.Int32
}

func newFakeProvider(accounts map[string]string) *fakeProvider {
	if accounts == nil {
		accounts = make(map[string]string)
	}
	return &fakeProvider{accounts: accounts}
}

func (p *fakeProvider) Name() string { return "fake" }

func identityFor(email string) *auth.ExternalIdentity {
	return &auth.ExternalIdentity{
		Provider:       "fake",
		ProviderUserID: "uid-" + strings.ToLower(email),
		Email:          email,
		EmailVerified:  true,
	}
}

func (p *fakeProvider) SignIn(_ context.Context, email, secret string) (*auth.ExternalIdentity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if want, ok := p.accounts[strings.ToLower(email)]; !ok || want != secret {
		return nil, auth.ErrInvalidCredentials
	}
	return identityFor(email), nil
}

func (p *fakeProvider) SignUp(_ context.Context, email, secret string) (*auth.ExternalIdentity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.accounts[strings.ToLower(email)]; ok {
		return nil, auth.ErrEmailInUse
	}
	p.accounts[strings.ToLower(email)] = secret
	return identityFor(email), nil
}

func (p *fakeProvider) SignOut(ctx context.Context, _ *auth.ExternalIdentity) error {
	p.signOuts.Add(1)
	if p.signOutGate != nil {
		select {
		case <-p.signOutGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.signOutErr
}

// fakeResolver is a backend profile store with the resolver's balance
// policy. Resolve can be held open with release, or per email with hold.
type fakeResolver struct {
	mu       sync.Mutex
	profiles map[string]*auth.Record
	requests []resolver.Request
	holds    map[string]chan struct{}

	err     error
	release chan struct{}
	calls   atomic.Int32
	creates atomic.Int32
}

func newFakeResolver(existing ...*auth.Record) *fakeResolver {
	r := &fakeResolver{
		profiles: make(map[string]*auth.Record),
		holds:    make(map[string]chan struct{}),
	}
	for _, rec := range existing {
		r.profiles[strings.ToLower(rec.Email)] = rec.Clone()
	}
	return r
}

// hold makes Resolve for email block until the returned channel is closed.
func (r *fakeResolver) hold(email string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.holds[strings.ToLower(email)] = ch
	return ch
}

func (r *fakeResolver) Resolve(ctx context.Context, req resolver.Request) (*auth.Record, error) {
	r.calls.Add(1)

	r.mu.Lock()
	held := r.holds[strings.ToLower(req.Email)]
	r.mu.Unlock()
	if held != nil {
		select {
		case <-held:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)

	key := strings.ToLower(req.Email)
	if rec, ok := r.profiles[key]; ok {
		out := rec.Clone()
		out.ExternalID = req.ExternalID
		return out, nil
	}

	rec := &auth.Record{
		ExternalID: req.ExternalID,
		Email:      req.Email,
		Role:       req.Role,
		Name:       req.Name,
		Balance:    decimal.Zero,
	}
	if rec.Role == "" {
		rec.Role = auth.RoleCustomer
	}
	if rec.Name == "" {
		rec.Name = "User"
	}
	if rec.Role == auth.RoleCustomer {
		rec.Balance = startingBalance
	}
	r.profiles[key] = rec.Clone()
	r.creates.Add(1)
	return rec, nil
}

func (r *fakeResolver) lastRequest() resolver.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return resolver.Request{}
	}
	return r.requests[len(r.requests)-1]
}

type tab struct {
	bridge  *Bridge
	session *provider.Session
	store   *session.Store
}

type tabOptions struct {
	id       string
	provider provider.Provider
	resolver resolver.Resolver
	relay    relay.Relay
	storage  session.Storage
	restore  *auth.ExternalIdentity
}

func newTab(t *testing.T, opts tabOptions) *tab {
	t.Helper()
	ctx := context.Background()
	if opts.id == "" {
		opts.id = "tab-1"
	}

	store, err := session.NewStore(ctx, opts.id, opts.storage)
	require.NoError(t, err)

	sess := provider.NewSession(opts.provider)
	if opts.restore != nil {
		sess.Restore(opts.restore)
	}

	b, err := New(Options{
		Store:    store,
		Session:  sess,
		Resolver: opts.resolver,
		Relay:    opts.relay,
		TabID:    opts.id,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		b.Close()
		sess.Close()
		store.Close()
	})

	startCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, b.Start(startCtx))

	return &tab{bridge: b, session: sess, store: store}
}

// events collects everything a subscriber is handed.
type events struct {
	mu  sync.Mutex
	got []Event
}

func (e *events) add(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, ev)
}

func (e *events) states() []State {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]State, 0, len(e.got))
	for _, ev := range e.got {
		out = append(out, ev.State)
	}
	return out
}

type users struct {
	mu  sync.Mutex
	got []*auth.Record
}

func (u *users) add(rec *auth.Record) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.got = append(u.got, rec)
}

func (u *users) all() []*auth.Record {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*auth.Record(nil), u.got...)
}

func (u *users) last() *auth.Record {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.got) == 0 {
		return nil
	}
	return u.got[len(u.got)-1]
}

// assertConsistent checks that the authentication signal and the
// current user never disagree.
func assertConsistent(t *testing.T, b *Bridge) {
	t.Helper()
	assert.Equal(t, b.CurrentUser() != nil, b.IsAuthenticated())
}

func newSeededStorage(t *testing.T, scope string, rec *auth.Record) *session.MemoryStorage {
	t.Helper()
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	storage := session.NewMemoryStorage()
	require.NoError(t, storage.Save(context.Background(), scope, data))
	return storage
}
