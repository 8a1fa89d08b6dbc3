package gate

import (
	"context"
	"testing"

	"payshield/internal/auth"
	"payshield/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate(t *testing.T) {
	ctx := context.Background()
	store, err := session.NewStore(ctx, "tab-1", nil)
	require.NoError(t, err)
	g := New(store)

	assert.False(t, g.IsAuthenticated())
	assert.False(t, g.HasRole(auth.RoleCustomer))
	assert.Nil(t, g.CurrentUser())

	require.NoError(t, store.Write(ctx, &auth.Record{
		ExternalID: "uid-bob",
		Email:      "bob@example.com",
		Role:       auth.RoleAdmin,
		Name:       "Bob",
		Balance:    decimal.Zero,
	}))

	assert.True(t, g.IsAuthenticated())
	assert.True(t, g.HasRole(auth.RoleAdmin))
	assert.False(t, g.HasRole(auth.RoleCustomer))
	assert.Equal(t, "bob@example.com", g.CurrentUser().Email)

	store.Clear(ctx)
	assert.False(t, g.IsAuthenticated())
	assert.False(t, g.HasRole(auth.RoleAdmin))
}
