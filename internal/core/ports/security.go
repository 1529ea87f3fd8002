package ports

import "time"

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hashed string) bool
}

// TokenIssuer issues and decodes signed bearer tokens whose subject is a
// username.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
	// Decode returns domain.ErrUnauthorized for malformed, tampered or
	// expired tokens.
	Decode(token string) (string, error)
}
