package guardianvault

import "time"

// applyAgentSpend runs the two-tier spending check for an agent transfer:
// an absolute per-call ceiling and a rolling day-window ceiling. The day
// window resets lazily at spend time when the calendar-day index moves;
// no background timer is involved. Nothing is mutated unless every check
// passes.
func (v *Vault) applyAgentSpend(caller string, amount, reserve uint64, now time.Time) error {
	if amount == 0 {
		return ErrZeroAmount
	}

	if !v.IsActive {
		return ErrVaultNotActive
	}

	if caller != v.Agent {
		return ErrUnauthorizedAgent
	}

	if amount > v.PerTxLimit {
		return ErrPerTxLimitExceeded
	}

	day := dayIndex(now)
	spent := v.DailySpent
	if day != v.LastSpendDay {
		spent = 0
	}

	spent, err := checkedAdd(spent, amount)
	if err != nil {
		return err
	}

	if spent > v.DailyLimit {
		return ErrDailyLimitExceeded
	}

	if v.Spendable(reserve) < amount {
		return ErrInsufficientBalance
	}

	withdrawn, err := checkedAdd(v.TotalWithdrawn, amount)
	if err != nil {
		return err
	}

	v.LastSpendDay = day
	v.DailySpent = spent
	v.Balance -= amount
	v.TotalWithdrawn = withdrawn
	v.UpdatedAt = now
	return nil
}
