// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is an off-chain identity record. Email is the unique identity key,
// stored case-normalized. BoundWallet holds the lowercase hex wallet address
// the account is bound to, or "" when no wallet is connected; at most one
// account may hold a given address at a time. Accounts are soft-deactivated,
// never deleted, so ledger audit linkage survives.
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	Verified     bool
	BoundWallet  string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
