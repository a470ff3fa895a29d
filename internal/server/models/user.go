// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. The service holds key custody, so both halves
// of the user's P-256 keypair live in the row; PasswordHash is argon2id
// salt-prefixed output, never the password itself.
type User struct {
	ID            string
	UserName      string
	PasswordHash  []byte
	PublicKeyPEM  string
	PrivateKeyPEM string
	CreatedAt     time.Time
}
