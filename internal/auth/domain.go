// Package auth authenticates API callers from token-style API keys and
// places a request-scoped caller identity in the request context.
package auth

import "time"

// APIKey is one provisioned API credential. The secret is stored bcrypt
// hashed; the wire format is "Authorization: token <key_id>:<secret>".
type APIKey struct {
	KeyID      string
	SecretHash string
	Label      string
	CanWrite   bool
	Disabled   bool
	CreatedAt  time.Time
}
