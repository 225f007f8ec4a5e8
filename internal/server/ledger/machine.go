package ledger

import (
	"context"
	"fmt"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type voterRecord struct {
	registered  bool
	voted       bool
	candidateID uint64
}

// Machine is the in-process reference implementation of Ledger. Every
// mutating call runs under one mutex, so calls are globally ordered and
// atomic relative to each other; the vote flag and the candidate count move
// together or not at all.
type Machine struct {
	mu         sync.RWMutex
	owner      ethcommon.Address
	candidates []Candidate
	voters     map[ethcommon.Address]*voterRecord
	votingOpen bool
	sequence   uint64
}

// NewMachine constructs a ledger owned by the given address. The owner is
// fixed at construction and checked on every owner-only operation.
func NewMachine(owner ethcommon.Address) *Machine {
	return &Machine{
		owner:  owner,
		voters: make(map[ethcommon.Address]*voterRecord),
	}
}

// receipt must be called with the write lock held.
func (m *Machine) receipt(op string, signer ethcommon.Address, detail string) *Receipt {
	m.sequence++
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s|%d|%s|%s", op, m.sequence, signer.Hex(), detail)))
	return &Receipt{Op: op, TxHash: hash, Sequence: m.sequence}
}

func (m *Machine) AddCandidate(ctx context.Context, signer ethcommon.Address, name string) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if signer != m.owner {
		return nil, ErrNotOwner
	}
	if name == "" {
		return nil, ErrEmptyCandidateName
	}

	// permitted in any global state, even while voting is open
	m.candidates = append(m.candidates, Candidate{Name: name})
	return m.receipt("addCandidate", signer, name), nil
}

func (m *Machine) OpenVoting(ctx context.Context, signer ethcommon.Address) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if signer != m.owner {
		return nil, ErrNotOwner
	}
	if m.votingOpen {
		return nil, ErrVotingAlreadyOpen
	}
	if len(m.candidates) == 0 {
		return nil, ErrNoCandidates
	}

	m.votingOpen = true
	return m.receipt("openVoting", signer, ""), nil
}

func (m *Machine) CloseVoting(ctx context.Context, signer ethcommon.Address) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if signer != m.owner {
		return nil, ErrNotOwner
	}
	if !m.votingOpen {
		return nil, ErrVotingClosed
	}

	m.votingOpen = false
	return m.receipt("closeVoting", signer, ""), nil
}

// RegisterVoter registers voter. The owner may register any address;
// any other signer may only register itself.
func (m *Machine) RegisterVoter(ctx context.Context, signer, voter ethcommon.Address) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if signer != m.owner && signer != voter {
		return nil, ErrNotOwner
	}

	rec := m.voters[voter]
	if rec != nil && rec.registered {
		return nil, ErrAlreadyRegistered
	}
	if rec == nil {
		rec = &voterRecord{}
		m.voters[voter] = rec
	}

	rec.registered = true
	return m.receipt("registerVoter", signer, voter.Hex()), nil
}

func (m *Machine) CastVote(ctx context.Context, signer ethcommon.Address, candidateID uint64) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.voters[signer]
	if rec == nil || !rec.registered {
		return nil, ErrNotRegistered
	}
	if !m.votingOpen {
		return nil, ErrVotingClosed
	}
	if rec.voted {
		return nil, ErrAlreadyVoted
	}
	if candidateID >= uint64(len(m.candidates)) {
		return nil, ErrInvalidCandidate
	}

	// flag and count move together under the lock; no partial state is
	// observable between them
	rec.voted = true
	rec.candidateID = candidateID
	m.candidates[candidateID].VoteCount++

	return m.receipt("castVote", signer, fmt.Sprintf("%d", candidateID)), nil
}

func (m *Machine) GetCandidate(ctx context.Context, id uint64) (*Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id >= uint64(len(m.candidates)) {
		return nil, ErrInvalidCandidate
	}
	c := m.candidates[id]
	return &c, nil
}

func (m *Machine) GetCandidateCount(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.candidates)), nil
}

// GetResults returns candidates in insertion order, stable across calls.
func (m *Machine) GetResults(ctx context.Context) ([]Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Candidate, len(m.candidates))
	copy(out, m.candidates)
	return out, nil
}

func (m *Machine) VoterStatus(ctx context.Context, address ethcommon.Address) (*VoterStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec := m.voters[address]
	if rec == nil {
		return &VoterStatus{}, nil
	}
	return &VoterStatus{
		IsRegistered:     rec.registered,
		HasVoted:         rec.voted,
		VotedCandidateID: rec.candidateID,
	}, nil
}

func (m *Machine) IsVotingOpen(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.votingOpen, nil
}

func (m *Machine) Owner(ctx context.Context) (ethcommon.Address, error) {
	return m.owner, nil
}
