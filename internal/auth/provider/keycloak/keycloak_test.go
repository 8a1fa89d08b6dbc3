package keycloak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"payshield/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRealm serves just enough of a Keycloak realm for discovery and the
// token endpoint; tokenStatus and tokenBody shape the password grant reply.
func newRealm(t *testing.T, tokenStatus int, tokenBody map[string]any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"jwks_uri":               srv.URL + "/certs",
			"end_session_endpoint":   srv.URL + "/logout",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		_ = json.NewEncoder(w).Encode(tokenBody)
	})

	return srv
}

func TestSignIn_WrongPasswordIsInvalidCredentials(t *testing.T) {
	realm := newRealm(t, http.StatusUnauthorized, map[string]any{
		"error":             "invalid_grant",
		"error_description": "Invalid user credentials",
	})

	p, err := New(context.Background(), realm.URL, "payshield-web", "")
	require.NoError(t, err)

	_, err = p.SignIn(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Equal(t, "Invalid email or password", auth.Message(err))
}

func TestSignIn_ThrottledIsReported(t *testing.T) {
	realm := newRealm(t, http.StatusTooManyRequests, map[string]any{"error": "slow_down"})

	p, err := New(context.Background(), realm.URL, "payshield-web", "")
	require.NoError(t, err)

	_, err = p.SignIn(context.Background(), "alice@example.com", "pw")
	assert.ErrorIs(t, err, auth.ErrThrottled)
}

func TestSignIn_MissingIDToken(t *testing.T) {
	realm := newRealm(t, http.StatusOK, map[string]any{
		"access_token": "at",
		"token_type":   "Bearer",
		"expires_in":   300,
	})

	p, err := New(context.Background(), realm.URL, "payshield-web", "")
	require.NoError(t, err)

	_, err = p.SignIn(context.Background(), "alice@example.com", "pw")
	assert.ErrorIs(t, err, auth.ErrProviderUnavailable)
}

func TestSignUpUnsupported(t *testing.T) {
	realm := newRealm(t, http.StatusOK, nil)

	p, err := New(context.Background(), realm.URL, "payshield-web", "")
	require.NoError(t, err)

	_, err = p.SignUp(context.Background(), "alice@example.com", "pw")
	assert.ErrorIs(t, err, auth.ErrSignUpUnsupported)

	assert.NoError(t, p.SignOut(context.Background(), &auth.ExternalIdentity{ProviderUserID: "unknown"}))
}

func TestNew_RequiresIssuerAndClient(t *testing.T) {
	_, err := New(context.Background(), "", "client", "")
	assert.Error(t, err)
}
