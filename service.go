package guardianvault

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// Every operation below runs as one read-write badger transaction: load,
// check, mutate, save, commit. Badger serializes conflicting writers and
// commits the vault and its withdrawal request together on execution, so
// funds never move without the executed flag landing too. Events go out
// only after the commit succeeds.

type CreateVaultInput struct {
	GuardianID uint8
	Agent      string
	PerTxLimit uint64
	DailyLimit uint64
	Threshold  uint8
	Signers    []string
}

func (s *Server) CreateVault(ctx context.Context, admin string, in CreateVaultInput) (*Vault, error) {
	now := s.clock()

	vault, err := NewVault(in.GuardianID, admin, in.Agent, in.PerTxLimit, in.DailyLimit, in.Threshold, in.Signers, now)
	if err != nil {
		return nil, err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if _, err := findVault(txn, vault.ID); err == nil {
		return nil, ErrVaultExists
	} else if !errors.Is(err, ErrVaultNotFound) {
		return nil, err
	}

	if err := saveVault(txn, vault); err != nil {
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}

	slog.Info("vault created", "vault", vault.ID, "guardian", vault.GuardianID)

	s.emit(Event{
		Type:      EventVaultCreated,
		Vault:     vault.ID,
		Actor:     admin,
		Timestamp: now,
	})

	return vault, nil
}

func (s *Server) Deposit(ctx context.Context, caller string, vaultID uuid.UUID, amount uint64) (*Vault, error) {
	now := s.clock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	vault, err := findVault(txn, vaultID)
	if err != nil {
		return nil, err
	}

	if err := vault.applyDeposit(amount, now); err != nil {
		return nil, err
	}

	if err := saveVault(txn, vault); err != nil {
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}

	s.emit(Event{
		Type:      EventDeposit,
		Vault:     vault.ID,
		Actor:     caller,
		Amount:    amount,
		Balance:   vault.Balance,
		Timestamp: now,
	})

	return vault, nil
}

func (s *Server) AgentSpend(ctx context.Context, caller string, vaultID uuid.UUID, destination string, amount uint64) (*Vault, error) {
	now := s.clock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	vault, err := findVault(txn, vaultID)
	if err != nil {
		return nil, err
	}

	if err := vault.applyAgentSpend(caller, amount, s.cfg.ReserveFloor, now); err != nil {
		return nil, err
	}

	if _, err := creditAccount(txn, destination, amount, now); err != nil {
		return nil, err
	}

	if err := saveVault(txn, vault); err != nil {
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}

	s.emit(Event{
		Type:        EventAgentSpend,
		Vault:       vault.ID,
		Actor:       caller,
		Destination: destination,
		Amount:      amount,
		Balance:     vault.Balance,
		DailySpent:  vault.DailySpent,
		Timestamp:   now,
	})

	return vault, nil
}

func (s *Server) UpdateConfig(ctx context.Context, caller string, vaultID uuid.UUID, upd ConfigUpdate) (*Vault, error) {
	now := s.clock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	vault, err := findVault(txn, vaultID)
	if err != nil {
		return nil, err
	}

	pending, err := countPendingWithdrawals(txn, vaultID)
	if err != nil {
		return nil, err
	}

	if err := vault.applyConfigUpdate(caller, upd, pending, now); err != nil {
		return nil, err
	}

	if err := saveVault(txn, vault); err != nil {
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}

	s.emit(Event{
		Type:      EventConfigUpdated,
		Vault:     vault.ID,
		Actor:     caller,
		Timestamp: now,
	})

	return vault, nil
}

func (s *Server) SetActive(ctx context.Context, caller string, vaultID uuid.UUID, active bool) (*Vault, error) {
	now := s.clock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	vault, err := findVault(txn, vaultID)
	if err != nil {
		return nil, err
	}

	if err := vault.applySetActive(caller, active, now); err != nil {
		return nil, err
	}

	if err := saveVault(txn, vault); err != nil {
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}

	s.emit(Event{
		Type:      EventActiveChanged,
		Vault:     vault.ID,
		Actor:     caller,
		Timestamp: now,
	})

	return vault, nil
}

func (s *Server) EmergencyWithdraw(ctx context.Context, caller string, vaultID uuid.UUID, destination string) (uint64, error) {
	now := s.clock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	vault, err := findVault(txn, vaultID)
	if err != nil {
		return 0, err
	}

	amount, err := vault.applyEmergencyWithdraw(caller, s.cfg.ReserveFloor, now)
	if err != nil {
		return 0, err
	}

	if _, err := creditAccount(txn, destination, amount, now); err != nil {
		return 0, err
	}

	if err := saveVault(txn, vault); err != nil {
		return 0, err
	}

	if err := txn.Commit(); err != nil {
		return 0, err
	}

	slog.Warn("emergency withdrawal", "vault", vault.ID, "admin", caller, "amount", FormatAmount(amount))

	s.emit(Event{
		Type:        EventEmergencyWithdrawal,
		Vault:       vault.ID,
		Actor:       caller,
		Destination: destination,
		Amount:      amount,
		Balance:     vault.Balance,
		Timestamp:   now,
	})

	return amount, nil
}

func (s *Server) CreateWithdrawal(ctx context.Context, caller string, vaultID uuid.UUID, destination string, amount, nonce uint64) (*WithdrawalRequest, error) {
	now := s.clock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	vault, err := findVault(txn, vaultID)
	if err != nil {
		return nil, err
	}

	req, err := newWithdrawalRequest(vault, caller, destination, amount, nonce, now)
	if err != nil {
		return nil, err
	}

	if _, err := findWithdrawal(txn, vaultID, nonce); err == nil {
		return nil, ErrWithdrawalExists
	} else if !errors.Is(err, ErrWithdrawalNotFound) {
		return nil, err
	}

	if err := saveWithdrawal(txn, req); err != nil {
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}

	s.emit(Event{
		Type:        EventWithdrawalCreated,
		Vault:       vault.ID,
		Actor:       caller,
		Destination: destination,
		Amount:      amount,
		Nonce:       nonce,
		Timestamp:   now,
	})

	return req, nil
}

func (s *Server) ApproveWithdrawal(ctx context.Context, caller string, vaultID uuid.UUID, nonce uint64) (*WithdrawalRequest, error) {
	now := s.clock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	vault, err := findVault(txn, vaultID)
	if err != nil {
		return nil, err
	}

	req, err := findWithdrawal(txn, vaultID, nonce)
	if err != nil {
		return nil, err
	}

	if err := req.applyApproval(vault, caller); err != nil {
		return nil, err
	}

	if err := saveWithdrawal(txn, req); err != nil {
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}

	s.emit(Event{
		Type:      EventWithdrawalApproved,
		Vault:     vault.ID,
		Actor:     caller,
		Nonce:     nonce,
		Approvals: req.ApprovalCount,
		Timestamp: now,
	})

	return req, nil
}

func (s *Server) ExecuteWithdrawal(ctx context.Context, caller string, vaultID uuid.UUID, nonce uint64) (*WithdrawalRequest, error) {
	now := s.clock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	vault, err := findVault(txn, vaultID)
	if err != nil {
		return nil, err
	}

	req, err := findWithdrawal(txn, vaultID, nonce)
	if err != nil {
		return nil, err
	}

	if err := vault.applyExecution(req, s.cfg.ReserveFloor, now); err != nil {
		return nil, err
	}

	if _, err := creditAccount(txn, req.Destination, req.Amount, now); err != nil {
		return nil, err
	}

	if err := saveWithdrawal(txn, req); err != nil {
		return nil, err
	}

	if err := saveVault(txn, vault); err != nil {
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}

	s.emit(Event{
		Type:        EventWithdrawalExecuted,
		Vault:       vault.ID,
		Actor:       caller,
		Destination: req.Destination,
		Amount:      req.Amount,
		Balance:     vault.Balance,
		Nonce:       nonce,
		Timestamp:   now,
	})

	return req, nil
}

func (s *Server) CancelWithdrawal(ctx context.Context, caller string, vaultID uuid.UUID, nonce uint64) (*WithdrawalRequest, error) {
	now := s.clock()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	vault, err := findVault(txn, vaultID)
	if err != nil {
		return nil, err
	}

	req, err := findWithdrawal(txn, vaultID, nonce)
	if err != nil {
		return nil, err
	}

	if err := req.applyCancel(vault, caller); err != nil {
		return nil, err
	}

	if err := saveWithdrawal(txn, req); err != nil {
		return nil, err
	}

	if err := txn.Commit(); err != nil {
		return nil, err
	}

	s.emit(Event{
		Type:      EventWithdrawalCancelled,
		Vault:     vault.ID,
		Actor:     caller,
		Nonce:     nonce,
		Timestamp: now,
	})

	return req, nil
}

func (s *Server) GetVault(ctx context.Context, vaultID uuid.UUID) (*Vault, error) {
	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	return findVault(txn, vaultID)
}

func (s *Server) GetWithdrawal(ctx context.Context, vaultID uuid.UUID, nonce uint64) (*WithdrawalRequest, error) {
	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	return findWithdrawal(txn, vaultID, nonce)
}

func (s *Server) ListWithdrawals(ctx context.Context, vaultID uuid.UUID, limit int) ([]*WithdrawalRequest, error) {
	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	return listWithdrawals(txn, vaultID, limit)
}

func (s *Server) GetAccount(ctx context.Context, id string) (*Account, error) {
	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	return findAccount(txn, id)
}
