package auth

// ExternalIdentity represents a normalized identity returned by an
// external identity provider. It contains facts only, no decisions.
type ExternalIdentity struct {
	Provider       string `json:"provider"`         // e.g. "password", "keycloak"
	ProviderUserID string `json:"provider_user_id"` // provider-scoped unique user identifier (sub)
	Email          string `json:"email"`            // email asserted by the provider
	EmailVerified  bool   `json:"email_verified"`   // whether provider asserts email ownership
}

// SessionKey identifies the external session the identity belongs to.
// A nil identity (signed out) maps to the empty key.
func (i *ExternalIdentity) SessionKey() string {
	if i == nil {
		return ""
	}
	return i.ProviderUserID
}
