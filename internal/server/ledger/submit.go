package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// SubmitResult is what the submission transport hands back: a receipt for
// mutating operations, raw output for reads.
type SubmitResult struct {
	Receipt *Receipt        `json:"receipt,omitempty"`
	Output  json.RawMessage `json:"output,omitempty"`
}

// Submitter is the signed-transaction submission collaborator. A revert
// comes back as *RevertError carrying one of the named reason codes.
type Submitter interface {
	Submit(ctx context.Context, op string, args json.RawMessage, signer ethcommon.Address) (*SubmitResult, error)
}

type addCandidateArgs struct {
	Name string `json:"name"`
}

type registerVoterArgs struct {
	Voter ethcommon.Address `json:"voter"`
}

type castVoteArgs struct {
	CandidateID uint64 `json:"candidate_id"`
}

type candidateIDArgs struct {
	ID uint64 `json:"id"`
}

type addressArgs struct {
	Address ethcommon.Address `json:"address"`
}

// Submit exposes the machine through the submission contract, one wire
// operation per Ledger method. This is the only place operation names exist.
func (m *Machine) Submit(ctx context.Context, op string, args json.RawMessage, signer ethcommon.Address) (*SubmitResult, error) {
	wrap := func(receipt *Receipt, err error) (*SubmitResult, error) {
		if err != nil {
			if reason := ReasonFor(err); reason != "" {
				return nil, &RevertError{Reason: reason}
			}
			return nil, err
		}
		return &SubmitResult{Receipt: receipt}, nil
	}

	output := func(v any, err error) (*SubmitResult, error) {
		if err != nil {
			if reason := ReasonFor(err); reason != "" {
				return nil, &RevertError{Reason: reason}
			}
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Output: raw}, nil
	}

	switch op {
	case "addCandidate":
		var a addCandidateArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return wrap(m.AddCandidate(ctx, signer, a.Name))
	case "openVoting":
		return wrap(m.OpenVoting(ctx, signer))
	case "closeVoting":
		return wrap(m.CloseVoting(ctx, signer))
	case "registerVoter":
		var a registerVoterArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return wrap(m.RegisterVoter(ctx, signer, a.Voter))
	case "castVote":
		var a castVoteArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return wrap(m.CastVote(ctx, signer, a.CandidateID))
	case "getCandidate":
		var a candidateIDArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return output(m.GetCandidate(ctx, a.ID))
	case "getCandidateCount":
		return output(m.GetCandidateCount(ctx))
	case "getResults":
		return output(m.GetResults(ctx))
	case "voterStatus":
		var a addressArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
		return output(m.VoterStatus(ctx, a.Address))
	case "isVotingOpen":
		return output(m.IsVotingOpen(ctx))
	case "owner":
		return output(m.Owner(ctx))
	default:
		return nil, fmt.Errorf("unknown ledger operation %q", op)
	}
}

// Client implements Ledger over a Submitter, so the rest of the system can
// run against a remote submission layer exactly as it runs against the
// in-process machine. Transport reverts are translated back into the named
// sentinel errors.
type Client struct {
	submitter Submitter
}

// NewClient wraps a submission transport in the typed Ledger surface.
func NewClient(s Submitter) *Client {
	return &Client{submitter: s}
}

func (c *Client) submit(ctx context.Context, op string, args any, signer ethcommon.Address) (*SubmitResult, error) {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	res, err := c.submitter.Submit(ctx, op, raw, signer)
	if err != nil {
		var revert *RevertError
		if errors.As(err, &revert) {
			return nil, ErrForReason(revert.Reason)
		}
		return nil, err
	}
	return res, nil
}

func (c *Client) read(ctx context.Context, op string, args any, out any) error {
	res, err := c.submit(ctx, op, args, ethcommon.Address{})
	if err != nil {
		return err
	}
	return json.Unmarshal(res.Output, out)
}

func (c *Client) AddCandidate(ctx context.Context, signer ethcommon.Address, name string) (*Receipt, error) {
	res, err := c.submit(ctx, "addCandidate", addCandidateArgs{Name: name}, signer)
	if err != nil {
		return nil, err
	}
	return res.Receipt, nil
}

func (c *Client) OpenVoting(ctx context.Context, signer ethcommon.Address) (*Receipt, error) {
	res, err := c.submit(ctx, "openVoting", nil, signer)
	if err != nil {
		return nil, err
	}
	return res.Receipt, nil
}

func (c *Client) CloseVoting(ctx context.Context, signer ethcommon.Address) (*Receipt, error) {
	res, err := c.submit(ctx, "closeVoting", nil, signer)
	if err != nil {
		return nil, err
	}
	return res.Receipt, nil
}

func (c *Client) RegisterVoter(ctx context.Context, signer, voter ethcommon.Address) (*Receipt, error) {
	res, err := c.submit(ctx, "registerVoter", registerVoterArgs{Voter: voter}, signer)
	if err != nil {
		return nil, err
	}
	return res.Receipt, nil
}

func (c *Client) CastVote(ctx context.Context, signer ethcommon.Address, candidateID uint64) (*Receipt, error) {
	res, err := c.submit(ctx, "castVote", castVoteArgs{CandidateID: candidateID}, signer)
	if err != nil {
		return nil, err
	}
	return res.Receipt, nil
}

func (c *Client) GetCandidate(ctx context.Context, id uint64) (*Candidate, error) {
	var out Candidate
	if err := c.read(ctx, "getCandidate", candidateIDArgs{ID: id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCandidateCount(ctx context.Context) (uint64, error) {
	var out uint64
	if err := c.read(ctx, "getCandidateCount", nil, &out); err != nil {
		return 0, err
	}
	return out, nil
}

func (c *Client) GetResults(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	if err := c.read(ctx, "getResults", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) VoterStatus(ctx context.Context, address ethcommon.Address) (*VoterStatus, error) {
	var out VoterStatus
	if err := c.read(ctx, "voterStatus", addressArgs{Address: address}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) IsVotingOpen(ctx context.Context) (bool, error) {
	var out bool
	if err := c.read(ctx, "isVotingOpen", nil, &out); err != nil {
		return false, err
	}
	return out, nil
}

func (c *Client) Owner(ctx context.Context) (ethcommon.Address, error) {
	var out ethcommon.Address
	if err := c.read(ctx, "owner", nil, &out); err != nil {
		return ethcommon.Address{}, err
	}
	return out, nil
}
