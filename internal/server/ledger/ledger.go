// Package ledger implements the on-chain voting state machine: candidates,
// per-address registration and vote state, and the global open/closed flag.
// It is the only durable source of truth for vote outcomes; the off-chain
// layer may cache but never override it.
package ledger

import (
	"context"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Candidate is an append-only list entry. VoteCount only moves up, and only
// through CastVote.
type Candidate struct {
	Name      string `json:"name"`
	VoteCount uint64 `json:"vote_count"`
}

// VoterStatus is the per-address sub-state. Reads for unknown addresses
// return the zero value (sparse-map semantics); records are never deleted.
type VoterStatus struct {
	IsRegistered     bool   `json:"is_registered"`
	HasVoted         bool   `json:"has_voted"`
	VotedCandidateID uint64 `json:"voted_candidate_id"` // meaningful only if HasVoted
}

// Receipt confirms an applied mutating operation.
type Receipt struct {
	Op       string         `json:"op"`
	TxHash   ethcommon.Hash `json:"tx_hash"`
	Sequence uint64         `json:"sequence"`
}

// Ledger is the strongly-typed contract surface. Exactly these operations
// exist; callers never invoke the ledger by operation name. Mutating calls
// take the signing wallet address as the authorizing principal and either
// fully apply or fully revert with one of the named errors, so retrying a
// failed call is always safe.
type Ledger interface {
	AddCandidate(ctx context.Context, signer ethcommon.Address, name string) (*Receipt, error)
	OpenVoting(ctx context.Context, signer ethcommon.Address) (*Receipt, error)
	CloseVoting(ctx context.Context, signer ethcommon.Address) (*Receipt, error)
	RegisterVoter(ctx context.Context, signer, voter ethcommon.Address) (*Receipt, error)
	CastVote(ctx context.Context, signer ethcommon.Address, candidateID uint64) (*Receipt, error)

	GetCandidate(ctx context.Context, id uint64) (*Candidate, error)
	GetCandidateCount(ctx context.Context) (uint64, error)
	GetResults(ctx context.Context) ([]Candidate, error)
	VoterStatus(ctx context.Context, address ethcommon.Address) (*VoterStatus, error)
	IsVotingOpen(ctx context.Context) (bool, error)
	Owner(ctx context.Context) (ethcommon.Address, error)
}
