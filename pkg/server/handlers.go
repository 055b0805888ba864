package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Layr-Labs/permit2-vault-go/pkg/vault"
)

// handleDepositWithPermit handles allowance registration plus deposit in one call
func (s *Server) handleDepositWithPermit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DepositWithPermitRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.vault.DepositWithPermit(r.Context(), req.User, req.Permit.toPermit2(), bigVal(req.Amount), req.Signature)
	s.finishMutation(w, "deposit with permit", req.User, err)
}

func (s *Server) handleDepositBatchWithPermit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DepositBatchWithPermitRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.vault.DepositBatchWithPermit(r.Context(), req.User, req.Permit.toPermit2(), bigVals(req.Amounts), req.Signature)
	s.finishMutation(w, "batch deposit with permit", req.User, err)
}

// handleDeposit handles deposits under a previously registered allowance
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DepositRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.vault.Deposit(r.Context(), req.User, req.Token, bigVal(req.Amount))
	s.finishMutation(w, "deposit", req.User, err)
}

func (s *Server) handleDepositBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DepositBatchRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.vault.DepositBatch(r.Context(), req.User, req.Tokens, bigVals(req.Amounts))
	s.finishMutation(w, "batch deposit", req.User, err)
}

// handleDepositWithTransferPermit handles one-shot signature transfer deposits
func (s *Server) handleDepositWithTransferPermit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DepositWithTransferPermitRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.vault.DepositWithTransferPermit(r.Context(), req.User, req.Permit.toPermit2(), req.Signature)
	s.finishMutation(w, "transfer permit deposit", req.User, err)
}

func (s *Server) handleDepositBatchWithTransferPermit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DepositBatchWithTransferPermitRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.vault.DepositBatchWithTransferPermit(r.Context(), req.User, req.Permit.toPermit2(), req.Signature)
	s.finishMutation(w, "batch transfer permit deposit", req.User, err)
}

// handleDepositWithWitness handles relayed deposits with the beneficiary
// bound into the signed digest
func (s *Server) handleDepositWithWitness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DepositWithWitnessRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.vault.DepositWithWitness(r.Context(), req.User, req.Permit.toPermit2(), req.Beneficiary, req.Signature)
	s.finishMutation(w, "witness deposit", req.User, err)
}

func (s *Server) handleDepositBatchWithWitness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DepositBatchWithWitnessRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.vault.DepositBatchWithWitness(r.Context(), req.User, req.Permit.toPermit2(), req.Beneficiary, req.Signature)
	s.finishMutation(w, "batch witness deposit", req.User, err)
}

// handleWithdraw handles balance-backed withdrawals
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req WithdrawRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.vault.Withdraw(r.Context(), req.User, req.Token, bigVal(req.Amount), req.Recipient)
	s.finishMutation(w, "withdraw", req.User, err)
}

func (s *Server) handleWithdrawBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req WithdrawBatchRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	err := s.vault.WithdrawBatch(r.Context(), req.User, req.Tokens, bigVals(req.Amounts), req.Recipient)
	s.finishMutation(w, "batch withdraw", req.User, err)
}

// handleBalance handles GET /balance?user=0x..&token=0x..
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userParam := r.URL.Query().Get("user")
	tokenParam := r.URL.Query().Get("token")
	if !common.IsHexAddress(userParam) {
		http.Error(w, "user must be a hex address", http.StatusBadRequest)
		return
	}
	if !common.IsHexAddress(tokenParam) {
		http.Error(w, "token must be a hex address", http.StatusBadRequest)
		return
	}

	user := common.HexToAddress(userParam)
	token := common.HexToAddress(tokenParam)

	balance, err := s.vault.BalanceOf(user, token)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to read balance", "user", user.Hex(), "token", token.Hex(), "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, BalanceResponseV1{
		User:    user,
		Token:   token,
		Balance: (*hexutil.Big)(balance),
	})
}

func (s *Server) handlePermitDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PermitSingleV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	digest, err := s.vault.PermitDigest(r.Context(), req.toPermit2())
	s.finishDigest(w, digest, err)
}

func (s *Server) handlePermitBatchDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PermitBatchV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	digest, err := s.vault.PermitBatchDigest(r.Context(), req.toPermit2())
	s.finishDigest(w, digest, err)
}

func (s *Server) handleTransferPermitDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PermitTransferFromV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	digest, err := s.vault.TransferPermitDigest(r.Context(), req.toPermit2())
	s.finishDigest(w, digest, err)
}

func (s *Server) handleBatchTransferPermitDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PermitBatchTransferFromV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	digest, err := s.vault.BatchTransferPermitDigest(r.Context(), req.toPermit2())
	s.finishDigest(w, digest, err)
}

func (s *Server) handleWitnessTransferDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req WitnessDigestRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	digest, err := s.vault.WitnessTransferDigest(r.Context(), req.Permit.toPermit2(), req.Beneficiary)
	s.finishDigest(w, digest, err)
}

func (s *Server) handleBatchWitnessTransferDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BatchWitnessDigestRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	digest, err := s.vault.BatchWitnessTransferDigest(r.Context(), req.Permit.toPermit2(), req.Beneficiary)
	s.finishDigest(w, digest, err)
}

// finishMutation maps a vault operation result onto the wire: 200 on
// success, a status the client can act on otherwise.
func (s *Server) finishMutation(w http.ResponseWriter, op string, user common.Address, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.logger.Sugar().Infow("Vault operation rejected", "op", op, "user", user.Hex(), "error", err)

	var insufficientErr *vault.InsufficientBalanceError
	var delegationErr *vault.DelegationError

	switch {
	case errors.Is(err, vault.ErrInvalidSpender):
		s.writeError(w, http.StatusUnprocessableEntity, ErrorResponseV1{Error: err.Error()})
	case errors.Is(err, vault.ErrBatchLengthMismatch), errors.Is(err, vault.ErrInvalidAmount):
		s.writeError(w, http.StatusBadRequest, ErrorResponseV1{Error: err.Error()})
	case errors.As(err, &insufficientErr):
		token := insufficientErr.Token
		s.writeError(w, http.StatusConflict, ErrorResponseV1{
			Error:     insufficientErr.Error(),
			Token:     &token,
			Requested: (*hexutil.Big)(insufficientErr.Requested),
			Current:   (*hexutil.Big)(insufficientErr.Current),
		})
	case errors.As(err, &delegationErr):
		s.writeError(w, http.StatusBadGateway, ErrorResponseV1{Error: delegationErr.Error()})
	default:
		s.writeError(w, http.StatusInternalServerError, ErrorResponseV1{Error: "internal error"})
	}
}

func (s *Server) finishDigest(w http.ResponseWriter, digest common.Hash, err error) {
	if err != nil {
		s.logger.Sugar().Errorw("Failed to compute digest", "error", err)
		s.writeError(w, http.StatusBadGateway, ErrorResponseV1{Error: "domain separator unavailable"})
		return
	}
	s.writeJSON(w, DigestResponseV1{Digest: digest})
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Sugar().Errorw("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, payload ErrorResponseV1) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Sugar().Errorw("Failed to encode error response", "error", err)
	}
}
