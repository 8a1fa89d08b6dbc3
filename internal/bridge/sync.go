package bridge

import (
	"context"
	"errors"
	"strings"
	"time"

	"payshield/internal/auth"
	"payshield/internal/auth/resolver"
	"payshield/internal/logger"
	"payshield/internal/relay"
)

const (
	resolveTimeout = 30 * time.Second
	revokeTimeout  = 10 * time.Second
)

// handleExternal is the provider session callback. It runs on the
// session's dispatcher goroutine, one notification at a time.
func (b *Bridge) handleExternal(identity *auth.ExternalIdentity) {
	defer b.markReady()

	if identity == nil {
		b.signedOut()
		return
	}
	_, err := b.resolve(b.ctx, identity, false)
	if err != nil && !errors.Is(err, auth.ErrStaleResolution) && b.ctx.Err() == nil {
		logger.Warn("identity resolution failed", map[string]any{
			"tab":   b.tabID,
			"error": err.Error(),
		})
	}
}

func (b *Bridge) signedOut() {
	b.transitionMu.Lock()
	defer b.transitionMu.Unlock()

	b.mu.Lock()
	b.externalID, b.ignoredID = "", ""
	b.mu.Unlock()
	if _, ok := b.store.Read(); ok {
		b.store.Clear(b.ctx)
		b.publish(b.ctx, nil)
	}
	b.transition(Unauthenticated, nil)
}

// resolve turns identity into a stored record. Overlapping calls for the
// same external id share one resolution, so the backend sees at most one
// create per transition. explicit marks a sign-in made through this tab.
//
// The shared resolution runs under the bridge's lifetime, not under any
// caller's context: a caller that gives up only stops waiting.
func (b *Bridge) resolve(ctx context.Context, identity *auth.ExternalIdentity, explicit bool) (*auth.Record, error) {
	extID := identity.ProviderUserID
	if !b.adopt(extID, explicit) {
		return nil, auth.ErrStaleResolution
	}

	ch := b.group.DoChan(extID, func() (any, error) {
		fctx, cancel := context.WithTimeout(b.ctx, resolveTimeout)
		defer cancel()
		return b.resolveOnce(fctx, identity)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*auth.Record).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bridge) resolveOnce(ctx context.Context, identity *auth.ExternalIdentity) (*auth.Record, error) {
	extID := identity.ProviderUserID

	b.transitionMu.Lock()
	if b.observed() != extID {
		b.transitionMu.Unlock()
		return nil, auth.ErrStaleResolution
	}
	if cached, ok := b.store.Read(); ok {
		if cached.ExternalID == extID {
			b.transition(Authenticated, cached)
			b.transitionMu.Unlock()
			return cached, nil
		}
		// another account is signing in; the previous one loses access now
		b.store.Clear(ctx)
		b.publish(ctx, nil)
	}
	b.transition(Resolving, nil)
	b.transitionMu.Unlock()

	rec, err := b.resolver.Resolve(ctx, b.request(identity))
	if err == nil {
		err = rec.Validate()
	}

	b.transitionMu.Lock()
	if b.observed() != extID {
		b.transitionMu.Unlock()
		logger.Debug("discarding stale resolution", map[string]any{
			"tab":         b.tabID,
			"external_id": extID,
		})
		return nil, auth.ErrStaleResolution
	}
	if err != nil && b.ctx.Err() != nil {
		// closing, not a failed resolution
		b.transitionMu.Unlock()
		return nil, err
	}
	if err != nil {
		b.forget()
		if _, ok := b.store.Read(); ok {
			b.store.Clear(ctx)
			b.publish(ctx, nil)
		}
		b.transition(Unauthenticated, nil)
		b.transitionMu.Unlock()

		b.revoke(ctx, extID)
		return nil, err
	}
	if werr := b.store.Write(ctx, rec); werr != nil {
		b.transitionMu.Unlock()
		return nil, werr
	}
	b.publish(ctx, rec)
	b.transition(Authenticated, rec)
	b.transitionMu.Unlock()

	logger.Info("identity resolved", map[string]any{
		"tab":  b.tabID,
		"role": rec.Role.String(),
	})
	return rec, nil
}

func (b *Bridge) request(identity *auth.ExternalIdentity) resolver.Request {
	req := resolver.Request{
		Email:      identity.Email,
		ExternalID: identity.ProviderUserID,
	}

	b.mu.Lock()
	hint, ok := b.hints[hintKey(identity.Email)]
	b.mu.Unlock()
	if ok {
		req.Role = hint.role
		req.Name = hint.name
		req.BusinessName = hint.businessName
	}
	return req
}

// revoke signs the provider out after a failed resolution so no external
// session stays live without an application identity.
func (b *Bridge) revoke(ctx context.Context, extID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revokeTimeout)
	defer cancel()

	if err := b.session.SignOut(ctx); err != nil {
		logger.Error("external session revoke failed", map[string]any{
			"tab":         b.tabID,
			"external_id": extID,
			"error":       err.Error(),
		})
	}
}

// publish broadcasts a local change to sibling tabs. Caller holds
// transitionMu so sequence numbers follow transition order.
func (b *Bridge) publish(ctx context.Context, rec *auth.Record) {
	if b.relay == nil {
		return
	}

	b.mu.Lock()
	b.seq++
	msg := relay.Message{
		Origin: b.origin,
		Seq:    b.seq,
		Record: rec.Clone(),
		SentAt: time.Now().UTC(),
	}
	b.mu.Unlock()

	if err := b.relay.Publish(ctx, msg); err != nil {
		logger.Warn("relay publish failed", map[string]any{
			"tab":   b.tabID,
			"seq":   msg.Seq,
			"error": err.Error(),
		})
	}
}

// receive applies a sibling's broadcast. Own messages and anything not
// newer than the last seen sequence of its origin are dropped.
func (b *Bridge) receive(msg relay.Message) {
	if msg.Origin == b.origin {
		return
	}

	b.transitionMu.Lock()
	defer b.transitionMu.Unlock()

	b.mu.Lock()
	if msg.Seq <= b.lastSeen[msg.Origin] {
		b.mu.Unlock()
		return
	}
	b.lastSeen[msg.Origin] = msg.Seq
	b.mu.Unlock()

	if err := b.store.ApplyExternal(b.ctx, msg.Record); err != nil {
		logger.Warn("relayed record rejected", map[string]any{
			"tab":    b.tabID,
			"origin": msg.Origin,
			"error":  err.Error(),
		})
	}
}

// applyRelayed is the store's external-change handler. It is reached
// only from receive, so transitionMu is already held. Nothing is
// re-broadcast.
func (b *Bridge) applyRelayed(rec *auth.Record) {
	if rec == nil {
		b.observe("")
		b.transition(Unauthenticated, nil)
		return
	}
	b.observe(rec.ExternalID)
	b.transition(Authenticated, rec)
}

func hintKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
