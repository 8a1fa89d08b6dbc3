package provider

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"payshield/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	signInErr  error
	signOutErr error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) SignIn(_ context.Context, email, _ string) (*auth.ExternalIdentity, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	return &auth.ExternalIdentity{Provider: "stub", ProviderUserID: "uid-" + email, Email: email}, nil
}

func (p *stubProvider) SignUp(ctx context.Context, email, secret string) (*auth.ExternalIdentity, error) {
	return p.SignIn(ctx, email, secret)
}

func (p *stubProvider) SignOut(context.Context, *auth.ExternalIdentity) error {
	return p.signOutErr
}

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) record(i *auth.ExternalIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, i.SessionKey())
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestSession_DeliversCurrentOnSubscribe(t *testing.T) {
	s := NewSession(&stubProvider{})
	defer s.Close()

	rec := &recorder{}
	unsubscribe := s.OnSessionChange(rec.record)
	defer unsubscribe()

	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{""}, rec.snapshot())
}

func TestSession_SignInAndOutNotify(t *testing.T) {
	ctx := context.Background()
	s := NewSession(&stubProvider{})
	defer s.Close()

	rec := &recorder{}
	defer s.OnSessionChange(rec.record)()
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	identity, err := s.SignIn(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "uid-alice@example.com", identity.ProviderUserID)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.SignOut(ctx))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"", "uid-alice@example.com", ""}, rec.snapshot())
	assert.Nil(t, s.Current())
}

func TestSession_CoalescedSignInAndOutStillNotifies(t *testing.T) {
	ctx := context.Background()
	s := NewSession(&stubProvider{})
	defer s.Close()

	// hold the initial delivery so the sign-in and sign-out coalesce
	hold := make(chan struct{})
	rec := &recorder{}
	first := true
	defer s.OnSessionChange(func(i *auth.ExternalIdentity) {
		rec.record(i)
		if first {
			first = false
			<-hold
		}
	})()
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	_, err := s.SignIn(ctx, "alice@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, s.SignOut(ctx))
	close(hold)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"", ""}, rec.snapshot())
}

func TestSession_FailedSignInDoesNotNotify(t *testing.T) {
	s := NewSession(&stubProvider{signInErr: auth.ErrInvalidCredentials})
	defer s.Close()

	rec := &recorder{}
	defer s.OnSessionChange(rec.record)()
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	_, err := s.SignIn(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{""}, rec.snapshot())
}

func TestSession_SignOutFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	p := &stubProvider{}
	s := NewSession(p)
	defer s.Close()

	_, err := s.SignIn(ctx, "bob@example.com", "pw")
	require.NoError(t, err)

	p.signOutErr = errors.New("network down")
	assert.Error(t, s.SignOut(ctx))
	assert.NotNil(t, s.Current())
}

func TestSession_RestoreAndUnsubscribe(t *testing.T) {
	s := NewSession(&stubProvider{})
	defer s.Close()

	s.Restore(&auth.ExternalIdentity{Provider: "stub", ProviderUserID: "uid-1", Email: "a@b.c"})

	rec := &recorder{}
	unsubscribe := s.OnSessionChange(rec.record)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"uid-1"}, rec.snapshot())

	unsubscribe()
	unsubscribe()
	s.Restore(nil)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(&stubProvider{})

	p, err := r.Get("stub")
	require.NoError(t, err)
	assert.Equal(t, "stub", p.Name())

	_, err = r.Get("google")
	assert.Error(t, err)
}
