package authz

import (
	"context"
	"errors"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/Vraj260105/Block-Vote/internal/common"
	"github.com/Vraj260105/Block-Vote/internal/server/audit"
	"github.com/Vraj260105/Block-Vote/internal/server/ledger"
	"github.com/Vraj260105/Block-Vote/internal/server/models"
	"github.com/Vraj260105/Block-Vote/internal/server/wallet"
)

var (
	// ErrWalletNotConnected rejects a ledger action from an account with
	// no bound wallet.
	ErrWalletNotConnected = errors.New("no wallet connected to this account")
	// ErrWalletMismatch rejects a presented address that is not the
	// account's bound wallet.
	ErrWalletMismatch = errors.New("wallet does not match the one bound to this account")
)

// WalletInfo is the caller-facing view of a binding. The full address never
// leaves the service; status responses carry the masked form only.
type WalletInfo struct {
	HasWallet     bool
	MaskedAddress string
}

// ConnectWallet binds address to the caller's account.
func (s *Service) ConnectWallet(ctx context.Context, accountID, address string) (*WalletInfo, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.wallet.Bind(ctx, account.Email, address); err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAddress):
			return nil, common.ErrorValidation
		case errors.Is(err, wallet.ErrAlreadyBoundElsewhere):
			s.auditor.Emit(ctx, account.Email, "connect_wallet", audit.OutcomeDenied,
				map[string]string{"reason": "address held by another account"})
			return nil, wallet.ErrAlreadyBoundElsewhere
		default:
			return nil, common.ErrorInternal
		}
	}

	status, err := s.wallet.Status(ctx, account.Email)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.auditor.Emit(ctx, account.Email, "connect_wallet", audit.OutcomeSuccess,
		map[string]string{"wallet": wallet.MaskAddress(status.Address)})
	return &WalletInfo{HasWallet: true, MaskedAddress: wallet.MaskAddress(status.Address)}, nil
}

// DisconnectWallet clears the caller's binding. The on-chain registration
// and any cast vote stay where they are; only the off-chain link goes away.
func (s *Service) DisconnectWallet(ctx context.Context, accountID string) error {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return err
	}

	if err := s.wallet.Unbind(ctx, account.Email); err != nil {
		return common.ErrorInternal
	}

	s.auditor.Emit(ctx, account.Email, "disconnect_wallet", audit.OutcomeSuccess, nil)
	return nil
}

// WalletStatus reports whether a wallet is bound, with the address masked.
func (s *Service) WalletStatus(ctx context.Context, accountID string) (*WalletInfo, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}

	status, err := s.wallet.Status(ctx, account.Email)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if !status.HasWallet {
		return &WalletInfo{}, nil
	}
	return &WalletInfo{HasWallet: true, MaskedAddress: wallet.MaskAddress(status.Address)}, nil
}

// authorizeWallet re-checks the identity/wallet binding immediately before
// a ledger call. A stale authorization from earlier in the session is never
// good enough; bindings may have changed since.
func (s *Service) authorizeWallet(ctx context.Context, accountID, presentedAddress string) (*models.Account, ethcommon.Address, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, ethcommon.Address{}, err
	}

	match, err := s.wallet.VerifyMatch(ctx, account.Email, presentedAddress)
	if err != nil {
		return nil, ethcommon.Address{}, common.ErrorInternal
	}
	if !match.IsValid {
		return nil, ethcommon.Address{}, common.ErrorValidation
	}
	if match.NeedsRegistration {
		return nil, ethcommon.Address{}, ErrWalletNotConnected
	}
	if !match.IsMatching {
		s.auditor.Emit(ctx, account.Email, "wallet_check", audit.OutcomeDenied,
			map[string]string{"presented": wallet.MaskAddress(presentedAddress)})
		return nil, ethcommon.Address{}, ErrWalletMismatch
	}

	return account, ethcommon.HexToAddress(account.BoundWallet), nil
}

func (s *Service) auditLedger(ctx context.Context, actor, action string, err error, details map[string]string) {
	outcome := audit.OutcomeSuccess
	if err != nil {
		outcome = audit.OutcomeDenied
		if details == nil {
			details = map[string]string{}
		}
		if reason := ledger.ReasonFor(err); reason != "" {
			details["reason"] = reason
		} else {
			details["reason"] = err.Error()
		}
	}
	s.auditor.Emit(ctx, actor, action, outcome, details)
}

// RegisterToVote puts the caller's bound wallet on the ledger's voter roll.
// With self-registration enabled the wallet signs for itself; otherwise the
// service registers it under the election owner's authority.
func (s *Service) RegisterToVote(ctx context.Context, accountID, presentedAddress string) (*ledger.Receipt, error) {
	account, addr, err := s.authorizeWallet(ctx, accountID, presentedAddress)
	if err != nil {
		return nil, err
	}

	signer := s.ownerAddress
	if s.allowSelfRegistration {
		signer = addr
	}

	receipt, err := s.ledger.RegisterVoter(ctx, signer, addr)
	s.auditLedger(ctx, account.Email, "register_to_vote", err,
		map[string]string{"wallet": wallet.MaskAddress(addr.Hex())})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// CastVote submits the caller's vote, signed by the bound wallet.
func (s *Service) CastVote(ctx context.Context, accountID, presentedAddress string, candidateID uint64) (*ledger.Receipt, error) {
	account, addr, err := s.authorizeWallet(ctx, accountID, presentedAddress)
	if err != nil {
		return nil, err
	}

	receipt, err := s.ledger.CastVote(ctx, addr, candidateID)
	s.auditLedger(ctx, account.Email, "cast_vote", err,
		map[string]string{"wallet": wallet.MaskAddress(addr.Hex())})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// VoterStatus reads the caller's on-chain registration and vote state.
func (s *Service) VoterStatus(ctx context.Context, accountID string) (*ledger.VoterStatus, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.BoundWallet == "" {
		return &ledger.VoterStatus{}, nil
	}

	status, err := s.ledger.VoterStatus(ctx, ethcommon.HexToAddress(account.BoundWallet))
	if err != nil {
		return nil, common.ErrorInternal
	}
	return status, nil
}

// authorizeOwner is authorizeWallet plus the owner check for admin actions.
func (s *Service) authorizeOwner(ctx context.Context, accountID, presentedAddress string) (*models.Account, ethcommon.Address, error) {
	account, addr, err := s.authorizeWallet(ctx, accountID, presentedAddress)
	if err != nil {
		return nil, ethcommon.Address{}, err
	}
	if addr != s.ownerAddress {
		s.auditor.Emit(ctx, account.Email, "admin_check", audit.OutcomeDenied,
			map[string]string{"wallet": wallet.MaskAddress(addr.Hex())})
		return nil, ethcommon.Address{}, common.ErrorUnauthorized
	}
	return account, addr, nil
}

// AddCandidate adds a candidate. Owner only.
func (s *Service) AddCandidate(ctx context.Context, accountID, presentedAddress, name string) (*ledger.Receipt, error) {
	account, addr, err := s.authorizeOwner(ctx, accountID, presentedAddress)
	if err != nil {
		return nil, err
	}

	receipt, err := s.ledger.AddCandidate(ctx, addr, name)
	s.auditLedger(ctx, account.Email, "add_candidate", err,
		map[string]string{"candidate": name})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// OpenVoting opens the voting window. Owner only.
func (s *Service) OpenVoting(ctx context.Context, accountID, presentedAddress string) (*ledger.Receipt, error) {
	account, addr, err := s.authorizeOwner(ctx, accountID, presentedAddress)
	if err != nil {
		return nil, err
	}

	receipt, err := s.ledger.OpenVoting(ctx, addr)
	s.auditLedger(ctx, account.Email, "open_voting", err, nil)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// CloseVoting closes the voting window. Owner only.
func (s *Service) CloseVoting(ctx context.Context, accountID, presentedAddress string) (*ledger.Receipt, error) {
	account, addr, err := s.authorizeOwner(ctx, accountID, presentedAddress)
	if err != nil {
		return nil, err
	}

	receipt, err := s.ledger.CloseVoting(ctx, addr)
	s.auditLedger(ctx, account.Email, "close_voting", err, nil)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Results reads the full candidate list with counts. Public.
func (s *Service) Results(ctx context.Context) ([]ledger.Candidate, error) {
	results, err := s.ledger.GetResults(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return results, nil
}

// ElectionState is the public summary of the election.
type ElectionState struct {
	VotingOpen     bool
	CandidateCount uint64
}

// State reads whether voting is open and how many candidates exist. Public.
func (s *Service) State(ctx context.Context) (*ElectionState, error) {
	open, err := s.ledger.IsVotingOpen(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	count, err := s.ledger.GetCandidateCount(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &ElectionState{VotingOpen: open, CandidateCount: count}, nil
}
