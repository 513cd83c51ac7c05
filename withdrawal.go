package guardianvault

import "time"

// The multisig request lifecycle is Pending -> Executed | Cancelled, with
// no transition out of a terminal state. Creating, approving, and
// executing are deliberately separate steps: approvals accumulate
// asynchronously, and whoever notices quorum may trigger execution.

// newWithdrawalRequest proposes a withdrawal exceeding agent authority.
// Any principal may initiate; approval, not initiation, gates the funds.
func newWithdrawalRequest(v *Vault, initiator, destination string, amount, nonce uint64, now time.Time) (*WithdrawalRequest, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	if !v.IsActive {
		return nil, ErrVaultNotActive
	}

	return &WithdrawalRequest{
		Vault:       v.ID,
		Nonce:       nonce,
		Destination: destination,
		Amount:      amount,
		Initiator:   initiator,
		CreatedAt:   now,
	}, nil
}

// applyApproval records one signer's approval. A signer cannot approve
// twice; the cached count stays equal to the bitmap popcount.
func (r *WithdrawalRequest) applyApproval(v *Vault, signer string) error {
	if r.IsExecuted {
		return ErrAlreadyExecuted
	}

	if r.IsCancelled {
		return ErrAlreadyCancelled
	}

	idx, ok := v.SignerIndex(signer)
	if !ok {
		return ErrUnauthorizedSigner
	}

	bit := uint8(1) << idx
	if r.ApprovalBitmap&bit != 0 {
		return ErrAlreadyApproved
	}

	r.ApprovalBitmap |= bit
	r.ApprovalCount++
	return nil
}

// applyExecution moves the funds once quorum is reached. Execution is a
// mechanical action open to any caller; the vault balance decrement and
// the executed flag must commit together.
func (v *Vault) applyExecution(r *WithdrawalRequest, reserve uint64, now time.Time) error {
	if r.IsExecuted {
		return ErrAlreadyExecuted
	}

	if r.IsCancelled {
		return ErrAlreadyCancelled
	}

	if r.ApprovalCount < v.Threshold {
		return ErrThresholdNotMet
	}

	if v.Spendable(reserve) < r.Amount {
		return ErrInsufficientBalance
	}

	withdrawn, err := checkedAdd(v.TotalWithdrawn, r.Amount)
	if err != nil {
		return err
	}

	v.Balance -= r.Amount
	v.TotalWithdrawn = withdrawn
	v.UpdatedAt = now
	r.IsExecuted = true
	return nil
}

// applyCancel closes a pending request. Only the initiator or the vault
// admin may cancel.
func (r *WithdrawalRequest) applyCancel(v *Vault, caller string) error {
	if r.IsExecuted {
		return ErrAlreadyExecuted
	}

	if r.IsCancelled {
		return ErrAlreadyCancelled
	}

	if caller != r.Initiator && caller != v.Admin {
		return ErrUnauthorizedInitiator
	}

	r.IsCancelled = true
	return nil
}
