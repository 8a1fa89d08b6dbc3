package gate

import "payshield/internal/auth"

// Reader is the read side of a tab's session store.
type Reader interface {
	Read() (*auth.Record, bool)
}

// Gate answers access questions from the session store alone. It never
// triggers a resolution; callers that need a resolved identity must
// subscribe to the identity bridge first.
type Gate struct {
	store Reader
}

func New(store Reader) *Gate {
	return &Gate{store: store}
}

// IsAuthenticated reports whether the tab holds an identity record.
func (g *Gate) IsAuthenticated() bool {
	_, ok := g.store.Read()
	return ok
}

// HasRole reports whether the tab is authenticated with exactly role.
func (g *Gate) HasRole(required auth.Role) bool {
	rec, ok := g.store.Read()
	return ok && rec.Role == required
}

// CurrentUser returns the stored record, or nil.
func (g *Gate) CurrentUser() *auth.Record {
	rec, _ := g.store.Read()
	return rec
}
