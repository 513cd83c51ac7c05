package guardianvault

import (
	"time"

	"github.com/zyedidia/generic/mapset"
)

// NewVault builds a fresh vault record for a guardian/admin pairing.
// The record starts active with zeroed counters and an empty day window.
func NewVault(guardianID uint8, admin, agent string, perTxLimit, dailyLimit uint64, threshold uint8, signers []string, now time.Time) (*Vault, error) {
	if guardianID > MaxGuardianID {
		return nil, ErrInvalidGuardianID
	}

	if err := validateSigners(signers, threshold); err != nil {
		return nil, err
	}

	return &Vault{
		ID:         VaultID(guardianID, admin),
		GuardianID: guardianID,
		Admin:      admin,
		Agent:      agent,
		PerTxLimit: perTxLimit,
		DailyLimit: dailyLimit,
		IsActive:   true,
		Threshold:  threshold,
		Signers:    signers,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func validateSigners(signers []string, threshold uint8) error {
	if len(signers) > MaxSigners {
		return ErrTooManySigners
	}

	set := mapset.New[string]()
	for _, s := range signers {
		if set.Has(s) {
			return ErrDuplicateSigner
		}

		set.Put(s)
	}

	if threshold == 0 || int(threshold) > len(signers) {
		return ErrInvalidThreshold
	}

	return nil
}

// applyDeposit credits the vault. Deposits are open to any caller and
// remain open while the vault is frozen.
func (v *Vault) applyDeposit(amount uint64, now time.Time) error {
	if amount == 0 {
		return ErrZeroAmount
	}

	balance, err := checkedAdd(v.Balance, amount)
	if err != nil {
		return err
	}

	deposited, err := checkedAdd(v.TotalDeposited, amount)
	if err != nil {
		return err
	}

	v.Balance = balance
	v.TotalDeposited = deposited
	v.UpdatedAt = now
	return nil
}

// applyConfigUpdate applies an admin config update. Signer-set and
// threshold changes are refused while any withdrawal request is pending,
// so approval bitmaps stay index-stable for their whole lifetime.
func (v *Vault) applyConfigUpdate(caller string, upd ConfigUpdate, pending int, now time.Time) error {
	if caller != v.Admin {
		return ErrUnauthorizedAdmin
	}

	if (upd.Signers != nil || upd.Threshold != nil) && pending > 0 {
		return ErrPendingWithdrawals
	}

	signers := v.Signers
	if upd.Signers != nil {
		signers = upd.Signers
	}

	threshold := v.Threshold
	if upd.Threshold != nil {
		threshold = *upd.Threshold
	}

	if err := validateSigners(signers, threshold); err != nil {
		return err
	}

	if upd.Agent != nil {
		v.Agent = *upd.Agent
	}

	if upd.PerTxLimit != nil {
		v.PerTxLimit = *upd.PerTxLimit
	}

	if upd.DailyLimit != nil {
		v.DailyLimit = *upd.DailyLimit

		// keep dailySpent within the ceiling when the limit is lowered
		// mid-window; the spent amount above the new limit is forgiven
		if v.DailySpent > v.DailyLimit {
			v.DailySpent = v.DailyLimit
		}
	}

	v.Signers = signers
	v.Threshold = threshold
	v.UpdatedAt = now
	return nil
}

// applySetActive freezes or unfreezes the vault. Freezing blocks the
// agent and multisig spend paths only; deposits and the admin emergency
// path stay open.
func (v *Vault) applySetActive(caller string, active bool, now time.Time) error {
	if caller != v.Admin {
		return ErrUnauthorizedAdmin
	}

	v.IsActive = active
	v.UpdatedAt = now
	return nil
}

// applyEmergencyWithdraw drains everything above the reserve floor. The
// admin circuit breaker ignores the active flag, spending limits, and any
// pending multisig state. Returns the drained amount.
func (v *Vault) applyEmergencyWithdraw(caller string, reserve uint64, now time.Time) (uint64, error) {
	if caller != v.Admin {
		return 0, ErrUnauthorizedAdmin
	}

	withdrawable := v.Spendable(reserve)
	if withdrawable == 0 {
		return 0, ErrInsufficientBalance
	}

	withdrawn, err := checkedAdd(v.TotalWithdrawn, withdrawable)
	if err != nil {
		return 0, err
	}

	v.Balance -= withdrawable
	v.TotalWithdrawn = withdrawn
	v.UpdatedAt = now
	return withdrawable, nil
}
