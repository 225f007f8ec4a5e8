package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Vraj260105/Block-Vote/internal/server/ledger"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passcodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type passwordResetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type walletRequest struct {
	Address string `json:"address"`
}

type voteRequest struct {
	Address     string `json:"address"`
	CandidateID uint64 `json:"candidate_id"`
}

type candidateRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type walletResponse struct {
	HasWallet     bool   `json:"has_wallet"`
	MaskedAddress string `json:"masked_address,omitempty"`
}

type receiptResponse struct {
	Op       string `json:"op"`
	TxHash   string `json:"tx_hash"`
	Sequence uint64 `json:"sequence"`
}

type candidateResponse struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"vote_count"`
}

type stateResponse struct {
	VotingOpen     bool   `json:"voting_open"`
	CandidateCount uint64 `json:"candidate_count"`
}

type voterStatusResponse struct {
	IsRegistered     bool    `json:"is_registered"`
	HasVoted         bool    `json:"has_voted"`
	VotedCandidateID *uint64 `json:"voted_candidate_id,omitempty"`
}

type okResponse struct {
	Status string `json:"status"`
}

var accepted = okResponse{Status: "ok"}

func newReceiptResponse(receipt *ledger.Receipt) receiptResponse {
	return receiptResponse{
		Op:       receipt.Op,
		TxHash:   receipt.TxHash.Hex(),
		Sequence: receipt.Sequence,
	}
}

func (s *Server) handleRegister(ctx *fiber.Ctx) error {
	req := new(credentialsRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	if err := s.authz.Register(ctx.Context(), req.Email, req.Password); err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusAccepted).JSON(accepted)
}

func (s *Server) handleCompleteRegistration(ctx *fiber.Ctx) error {
	req := new(passcodeRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	if err := s.authz.CompleteRegistration(ctx.Context(), req.Email, req.Code); err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(accepted)
}

func (s *Server) handleLogin(ctx *fiber.Ctx) error {
	req := new(credentialsRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	if err := s.authz.Login(ctx.Context(), req.Email, req.Password); err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusAccepted).JSON(accepted)
}

func (s *Server) handleCompleteLogin(ctx *fiber.Ctx) error {
	req := new(passcodeRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	pair, err := s.authz.CompleteLogin(ctx.Context(), req.Email, req.Code)
	if err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleRefresh(ctx *fiber.Ctx) error {
	req := new(refreshRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	pair, err := s.authz.RefreshSession(ctx.Context(), req.RefreshToken)
	if err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleLogout(ctx *fiber.Ctx) error {
	req := new(refreshRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	if err := s.authz.Logout(ctx.Context(), req.RefreshToken); err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(accepted)
}

func (s *Server) handleRequestPasswordReset(ctx *fiber.Ctx) error {
	req := new(credentialsRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	if err := s.authz.RequestPasswordReset(ctx.Context(), req.Email); err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusAccepted).JSON(accepted)
}

func (s *Server) handleResetPassword(ctx *fiber.Ctx) error {
	req := new(passwordResetRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	if err := s.authz.ResetPassword(ctx.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(accepted)
}

func (s *Server) handleWalletStatus(ctx *fiber.Ctx) error {
	info, err := s.authz.WalletStatus(ctx.Context(), sessionAccountID(ctx))
	if err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(walletResponse{HasWallet: info.HasWallet, MaskedAddress: info.MaskedAddress})
}

func (s *Server) handleConnectWallet(ctx *fiber.Ctx) error {
	req := new(walletRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	info, err := s.authz.ConnectWallet(ctx.Context(), sessionAccountID(ctx), req.Address)
	if err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(walletResponse{HasWallet: info.HasWallet, MaskedAddress: info.MaskedAddress})
}

func (s *Server) handleDisconnectWallet(ctx *fiber.Ctx) error {
	if err := s.authz.DisconnectWallet(ctx.Context(), sessionAccountID(ctx)); err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(accepted)
}

func (s *Server) handleDeactivateAccount(ctx *fiber.Ctx) error {
	if err := s.authz.DeactivateAccount(ctx.Context(), sessionAccountID(ctx)); err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(accepted)
}

func (s *Server) handleRegisterToVote(ctx *fiber.Ctx) error {
	req := new(walletRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	receipt, err := s.authz.RegisterToVote(ctx.Context(), sessionAccountID(ctx), req.Address)
	if err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(newReceiptResponse(receipt))
}

func (s *Server) handleCastVote(ctx *fiber.Ctx) error {
	req := new(voteRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	receipt, err := s.authz.CastVote(ctx.Context(), sessionAccountID(ctx), req.Address, req.CandidateID)
	if err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(newReceiptResponse(receipt))
}

func (s *Server) handleVoterStatus(ctx *fiber.Ctx) error {
	status, err := s.authz.VoterStatus(ctx.Context(), sessionAccountID(ctx))
	if err != nil {
		return errorResponse(ctx, err)
	}
	resp := voterStatusResponse{
		IsRegistered: status.IsRegistered,
		HasVoted:     status.HasVoted,
	}
	if status.HasVoted {
		id := status.VotedCandidateID
		resp.VotedCandidateID = &id
	}
	return ctx.JSON(resp)
}

func (s *Server) handleAddCandidate(ctx *fiber.Ctx) error {
	req := new(candidateRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	receipt, err := s.authz.AddCandidate(ctx.Context(), sessionAccountID(ctx), req.Address, req.Name)
	if err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(newReceiptResponse(receipt))
}

func (s *Server) handleOpenVoting(ctx *fiber.Ctx) error {
	req := new(walletRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	receipt, err := s.authz.OpenVoting(ctx.Context(), sessionAccountID(ctx), req.Address)
	if err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(newReceiptResponse(receipt))
}

func (s *Server) handleCloseVoting(ctx *fiber.Ctx) error {
	req := new(walletRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid request"})
	}
	receipt, err := s.authz.CloseVoting(ctx.Context(), sessionAccountID(ctx), req.Address)
	if err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(newReceiptResponse(receipt))
}

func (s *Server) handleResults(ctx *fiber.Ctx) error {
	results, err := s.authz.Results(ctx.Context())
	if err != nil {
		return errorResponse(ctx, err)
	}
	resp := make([]candidateResponse, len(results))
	for i, c := range results {
		resp[i] = candidateResponse{ID: uint64(i), Name: c.Name, VoteCount: c.VoteCount}
	}
	return ctx.JSON(resp)
}

func (s *Server) handleState(ctx *fiber.Ctx) error {
	state, err := s.authz.State(ctx.Context())
	if err != nil {
		return errorResponse(ctx, err)
	}
	return ctx.JSON(stateResponse{VotingOpen: state.VotingOpen, CandidateCount: state.CandidateCount})
}
