package credentials

import "time"

// Credential is one email/password account of the password identity
// provider. ID doubles as the external id handed to clients.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	HashVersion  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
