package cmd

import (
	"context"
	"fmt"

	"payshield/internal/auth"
	"payshield/internal/auth/provider"
	"payshield/internal/auth/provider/keycloak"
	"payshield/internal/auth/provider/password"
	"payshield/internal/auth/resolver"
	"payshield/internal/bridge"
	"payshield/internal/config"
	"payshield/internal/logger"
	"payshield/internal/redis"
	"payshield/internal/relay"
	"payshield/internal/session"
)

// tab is one client tab: its store, and once connected, the provider
// session and identity bridge that own it.
type tab struct {
	cfg     config.Config
	redis   *redis.Client
	relay   relay.Relay
	store   *session.Store
	session *provider.Session
	bridge  *bridge.Bridge
}

// openTab loads the tab's store. Nothing here talks to the identity
// provider or the profile service.
func openTab(ctx context.Context, cfg config.Config, id string) (*tab, error) {
	t := &tab{cfg: cfg}

	var storage session.Storage
	if cfg.RedisAddr != "" {
		client, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		t.redis = client
		storage = session.NewRedisStorage(client.Client, cfg.Origin, cfg.SessionTTL)
		t.relay = relay.NewRedisRelay(client.Client, cfg.Origin)
	} else {
		logger.Warn("REDIS_ADDR not set, tab state lasts for this command only", nil)
	}

	store, err := session.NewStore(ctx, id, storage)
	if err != nil {
		t.Close()
		return nil, err
	}
	t.store = store
	return t, nil
}

// connect restores the provider session from the stored record, the way
// a reloaded tab finds its provider still signed in, and starts the bridge.
func (t *tab) connect(ctx context.Context) error {
	p, err := buildProvider(ctx, t.cfg)
	if err != nil {
		return err
	}

	t.session = provider.NewSession(p)
	if rec, ok := t.store.Read(); ok {
		t.session.Restore(&auth.ExternalIdentity{
			Provider:       p.Name(),
			ProviderUserID: rec.ExternalID,
			Email:          rec.Email,
		})
	}

	b, err := bridge.New(bridge.Options{
		Store:   t.store,
		Session: t.session,
		Resolver: resolver.NewHTTPResolver(
			t.cfg.ProfileAPIURL,
			t.cfg.HTTPTimeout,
			resolver.StartingBalance(t.cfg.CustomerStartingBalance),
		),
		Relay: t.relay,
		TabID: t.store.Scope(),
	})
	if err != nil {
		return err
	}
	t.bridge = b

	return b.Start(ctx)
}

func (t *tab) Close() {
	if t.bridge != nil {
		t.bridge.Close()
	}
	if t.session != nil {
		t.session.Close()
	}
	if t.store != nil {
		t.store.Close()
	}
	if t.redis != nil {
		_ = t.redis.Close()
	}
}

func buildProvider(ctx context.Context, cfg config.Config) (provider.Provider, error) {
	pw, err := password.New(cfg.ProfileAPIURL, cfg.HTTPTimeout)
	if err != nil {
		return nil, err
	}
	list := []provider.Provider{pw}

	if cfg.AuthProvider == "keycloak" {
		kc, err := keycloak.New(ctx, cfg.KeycloakIssuer, cfg.KeycloakClientID, cfg.KeycloakClientSecret)
		if err != nil {
			return nil, fmt.Errorf("keycloak: %w", err)
		}
		list = append(list, kc)
	}

	return provider.NewRegistry(list...).Get(cfg.AuthProvider)
}
