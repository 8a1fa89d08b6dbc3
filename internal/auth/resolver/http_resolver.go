package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"payshield/internal/auth"
	"payshield/internal/logger"
	"payshield/internal/profile"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const defaultName = "User"

// BalancePolicy decides the starting balance of a new profile.
type BalancePolicy func(role auth.Role) decimal.Decimal

// StartingBalance gives customers the configured balance and every other
// role nothing.
func StartingBalance(customer decimal.Decimal) BalancePolicy {
	return func(role auth.Role) decimal.Decimal {
		if role == auth.RoleCustomer {
			return customer
		}
		return decimal.Zero
	}
}

// HTTPResolver resolves identities against the backend profile service.
// Concurrent calls for the same email share one lookup-or-create round
// trip, so a profile is never created twice by the same client.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	balance BalancePolicy
	group   singleflight.Group
}

func NewHTTPResolver(baseURL string, timeout time.Duration, balance BalancePolicy) *HTTPResolver {
	if balance == nil {
		balance = StartingBalance(decimal.Zero)
	}
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		balance: balance,
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, req Request) (*auth.Record, error) {
	if req.Email == "" || req.ExternalID == "" {
		return nil, fmt.Errorf("%w: email and external id are required", auth.ErrProfileNotFound)
	}

	// The shared round trip must not die with whichever caller started it;
	// the client timeout still bounds it.
	key := strings.ToLower(strings.TrimSpace(req.Email))
	ch := r.group.DoChan(key, func() (any, error) {
		return r.resolve(context.WithoutCancel(ctx), req)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", auth.ErrProfileNotFound, ctx.Err())
	}
	if res.Shared {
		logger.Debug("profile resolution shared", map[string]any{
			"email": key,
		})
	}
	if res.Err != nil {
		return nil, res.Err
	}

	rec := res.Val.(*auth.Record).Clone()
	rec.ExternalID = req.ExternalID
	return rec, nil
}

func (r *HTTPResolver) resolve(ctx context.Context, req Request) (*auth.Record, error) {
	// 1. Try profile lookup by email
	p, err := r.lookup(ctx, req)
	if err == nil {
		return p.Record(), nil
	}
	if !errors.Is(err, profile.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", auth.ErrProfileNotFound, err)
	}

	// 2. Create the profile
	role := req.Role
	if role == "" {
		role = auth.RoleCustomer
	}
	name := req.Name
	if name == "" {
		name = defaultName
	}

	create := profile.CreateRequest{
		ExternalID: req.ExternalID,
		Email:      req.Email,
		Role:       role,
		Name:       name,
		Balance:    r.balance(role),
	}
	if req.BusinessName != "" {
		bn := req.BusinessName
		create.BusinessName = &bn
	}

	p, err = r.create(ctx, create)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrProfileCreate, err)
	}

	logger.Info("profile created", map[string]any{
		"email": p.Email,
		"role":  p.Role.String(),
	})

	return p.Record(), nil
}

func (r *HTTPResolver) lookup(ctx context.Context, req Request) (*profile.Profile, error) {
	resp, err := r.post(ctx, "/api/user/by-email", profile.ByEmailRequest{
		Email:      req.Email,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, profile.ErrNotFound
	default:
		return nil, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var p profile.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (r *HTTPResolver) create(ctx context.Context, req profile.CreateRequest) (*profile.Profile, error) {
	resp, err := r.post(ctx, "/api/user/create", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create returned status %d", resp.StatusCode)
	}

	var out profile.CreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode created profile: %w", err)
	}
	return &out.User, nil
}

func (r *HTTPResolver) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return r.client.Do(req)
}
