package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"payshield/internal/auth"
	"payshield/internal/auth/credentials"
	"payshield/internal/auth/handler"
	"payshield/internal/config"
	"payshield/internal/profile"
	"payshield/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv starts a profile service and a Redis and points the CLI at them.
func setupEnv(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handler.NewHandler(
		credentials.NewService(credentials.NewMemoryRepository()),
		profile.NewMemoryRepository(),
	).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	t.Setenv("PROFILE_API_URL", srv.URL)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("AUTH_PROVIDER", "password")
	return mr
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func tabKey(tab string) string {
	return "payshield:tab:" + tab + ":" + session.UserKey
}

func TestCLI_SignupWhoamiLogout(t *testing.T) {
	mr := setupEnv(t)

	require.NoError(t, run(t, "signup", "alice@example.com", "-p", "password-123", "--name", "Alice", "--tab", "t1"))
	require.True(t, mr.Exists(tabKey("t1")))

	raw, err := mr.Get(tabKey("t1"))
	require.NoError(t, err)
	var rec auth.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, "alice@example.com", rec.Email)
	assert.Equal(t, auth.RoleCustomer, rec.Role)
	assert.Equal(t, "Alice", rec.Name)

	require.NoError(t, run(t, "whoami", "--tab", "t1"))

	// a later command restores the tab and keeps the user
	require.NoError(t, run(t, "login", "alice@example.com", "-p", "password-123", "--tab", "t1"))
	assert.True(t, mr.Exists(tabKey("t1")))

	require.NoError(t, run(t, "logout", "--tab", "t1"))
	assert.False(t, mr.Exists(tabKey("t1")))
}

func TestCLI_LoginWrongPassword(t *testing.T) {
	mr := setupEnv(t)
	require.NoError(t, run(t, "signup", "bob@example.com", "-p", "password-123", "--tab", "t1"))

	err := run(t, "login", "bob@example.com", "-p", "wrong-password", "--tab", "t2")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.False(t, mr.Exists(tabKey("t2")))
}

func TestCLI_SignupRejectsUnknownRole(t *testing.T) {
	setupEnv(t)
	assert.Error(t, run(t, "signup", "x@example.com", "-p", "password-123", "--role", "root"))
}

func TestGuardedRouter(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{RedisAddr: mr.Addr(), Origin: "payshield"}

	tb, err := openTab(context.Background(), cfg, "t1")
	require.NoError(t, err)
	defer tb.Close()

	get := func(path string) int {
		w := httptest.NewRecorder()
		guardedRouter(tb).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, get("/me"))

	require.NoError(t, tb.store.Write(context.Background(), &auth.Record{
		ExternalID: "uid-1",
		Email:      "carol@example.com",
		Role:       auth.RoleCustomer,
		Name:       "Carol",
	}))
	assert.Equal(t, http.StatusOK, get("/me"))
	assert.Equal(t, http.StatusForbidden, get("/admin"))
}
