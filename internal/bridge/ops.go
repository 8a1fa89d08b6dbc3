package bridge

import (
	"context"
	"fmt"
	"strings"

	"payshield/internal/auth"
	"payshield/internal/logger"
)

// Result is what the UI-facing operations return. Error carries a
// user-displayable message; Err keeps the cause for callers that log.
type Result struct {
	Success bool
	User    *auth.Record
	Error   string
	Err     error
}

func succeeded(rec *auth.Record) Result {
	return Result{Success: true, User: rec}
}

func failed(err error) Result {
	return Result{Error: auth.Message(err), Err: err}
}

// SignupDetails are the profile fields collected at signup.
type SignupDetails struct {
	Name         string
	BusinessName string
}

type signupHint struct {
	role         auth.Role
	name         string
	businessName string
}

// Login signs in with the provider and resolves the identity. A failure
// at either step leaves the tab unauthenticated.
func (b *Bridge) Login(ctx context.Context, email, secret string) Result {
	identity, err := b.session.SignIn(ctx, email, secret)
	if err != nil {
		logger.Warn("sign-in failed", map[string]any{
			"tab":   b.tabID,
			"error": err.Error(),
		})
		return failed(err)
	}

	rec, err := b.resolve(ctx, identity, true)
	if err != nil {
		return failed(err)
	}
	return succeeded(rec)
}

// Signup registers with the provider and creates the profile with role
// and details. An empty role means customer.
func (b *Bridge) Signup(ctx context.Context, email, secret string, role auth.Role, details SignupDetails) Result {
	if role == "" {
		role = auth.RoleCustomer
	}
	if !role.Valid() {
		return failed(fmt.Errorf("%w: unknown role %q", auth.ErrInvalidRecord, role))
	}

	key := hintKey(email)
	b.mu.Lock()
	b.hints[key] = signupHint{
		role:         role,
		name:         strings.TrimSpace(details.Name),
		businessName: strings.TrimSpace(details.BusinessName),
	}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.hints, key)
		b.mu.Unlock()
	}()

	identity, err := b.session.SignUp(ctx, email, secret)
	if err != nil {
		logger.Warn("sign-up failed", map[string]any{
			"tab":   b.tabID,
			"error": err.Error(),
		})
		return failed(err)
	}

	rec, err := b.resolve(ctx, identity, true)
	if err != nil {
		return failed(err)
	}
	return succeeded(rec)
}

// Logout clears the tab before asking the provider to sign out. A
// provider failure is reported but the local state stays cleared.
func (b *Bridge) Logout(ctx context.Context) Result {
	b.transitionMu.Lock()
	b.forget()
	b.store.Clear(ctx)
	b.publish(ctx, nil)
	b.transition(Unauthenticated, nil)
	b.transitionMu.Unlock()

	if err := b.session.SignOut(ctx); err != nil {
		logger.Warn("provider sign-out failed", map[string]any{
			"tab":   b.tabID,
			"error": err.Error(),
		})
		return failed(err)
	}
	return Result{Success: true}
}

// OnAuthChange calls fn with the current user, or nil once the tab is
// known to be signed out. Unknown and Resolving are not reported, and
// fn never sees the same record twice in a row.
func (b *Bridge) OnAuthChange(fn func(*auth.Record)) (unsubscribe func()) {
	delivered := false
	var last *auth.Record

	return b.Subscribe(func(ev Event) {
		if ev.State != Authenticated && ev.State != Unauthenticated {
			return
		}
		if delivered && last.Equal(ev.User) {
			return
		}
		delivered, last = true, ev.User.Clone()
		fn(ev.User)
	})
}
