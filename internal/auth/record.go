package auth

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Role is fixed at profile creation and never mutated client-side.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
)

// ParseRole returns the role named by s (case-insensitive).
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleDeveloper:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Record is the merged identity held in a tab's session store: the
// external identity joined with the backend profile. It is always
// replaced wholesale, never patched.
type Record struct {
	ExternalID string          `json:"external_id"`
	Email      string          `json:"email"`
	Role       Role            `json:"role"`
	Name       string          `json:"name"`
	Balance    decimal.Decimal `json:"balance"` // cached snapshot, server is authoritative
}

// Validate reports whether the record may be written to a store.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if r.ExternalID == "" || r.Email == "" {
		return fmt.Errorf("%w: missing external_id or email", ErrInvalidRecord)
	}
	if !r.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRecord, r.Role)
	}
	if r.Balance.IsNegative() {
		return fmt.Errorf("%w: negative balance", ErrInvalidRecord)
	}
	return nil
}

// Equal compares two records field by field; balances compare by value
// so "100000" and "100000.00" are the same snapshot.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.ExternalID == o.ExternalID &&
		r.Email == o.Email &&
		r.Role == o.Role &&
		r.Name == o.Name &&
		r.Balance.Equal(o.Balance)
}

// Clone returns a copy safe to hand to callers.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
