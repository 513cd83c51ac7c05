package guardianvault

import "errors"

var (
	ErrVaultNotActive        = errors.New("vault is not active")
	ErrUnauthorizedAdmin     = errors.New("unauthorized: not the admin")
	ErrUnauthorizedAgent     = errors.New("unauthorized: not the agent")
	ErrUnauthorizedSigner    = errors.New("unauthorized: not an approved signer")
	ErrUnauthorizedInitiator = errors.New("unauthorized: not the initiator or admin")
	ErrPerTxLimitExceeded    = errors.New("per-transaction spending limit exceeded")
	ErrDailyLimitExceeded    = errors.New("daily spending limit exceeded")
	ErrInsufficientBalance   = errors.New("insufficient vault balance")
	ErrTooManySigners        = errors.New("too many signers (maximum 5)")
	ErrDuplicateSigner       = errors.New("duplicate signer")
	ErrInvalidThreshold      = errors.New("invalid multisig threshold")
	ErrInvalidGuardianID     = errors.New("invalid guardian id (must be 0-9)")
	ErrAlreadyExecuted       = errors.New("withdrawal request already executed")
	ErrAlreadyCancelled      = errors.New("withdrawal request already cancelled")
	ErrThresholdNotMet       = errors.New("multisig threshold not met")
	ErrAlreadyApproved       = errors.New("signer has already approved this request")
	ErrPendingWithdrawals    = errors.New("signer set is frozen while withdrawals are pending")
	ErrOverflow              = errors.New("arithmetic overflow")
	ErrZeroAmount            = errors.New("amount must be greater than zero")
	ErrVaultExists           = errors.New("vault already exists")
	ErrVaultNotFound         = errors.New("vault not found")
	ErrWithdrawalExists      = errors.New("withdrawal request already exists")
	ErrWithdrawalNotFound    = errors.New("withdrawal request not found")
)

var errorNames = []struct {
	err  error
	name string
}{
	{ErrVaultNotActive, "VaultNotActive"},
	{ErrUnauthorizedAdmin, "UnauthorizedAdmin"},
	{ErrUnauthorizedAgent, "UnauthorizedAgent"},
	{ErrUnauthorizedSigner, "UnauthorizedSigner"},
	{ErrUnauthorizedInitiator, "UnauthorizedInitiator"},
	{ErrPerTxLimitExceeded, "PerTxLimitExceeded"},
	{ErrDailyLimitExceeded, "DailyLimitExceeded"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrTooManySigners, "TooManySigners"},
	{ErrDuplicateSigner, "DuplicateSigner"},
	{ErrInvalidThreshold, "InvalidThreshold"},
	{ErrInvalidGuardianID, "InvalidGuardianId"},
	{ErrAlreadyExecuted, "AlreadyExecuted"},
	{ErrAlreadyCancelled, "AlreadyCancelled"},
	{ErrThresholdNotMet, "ThresholdNotMet"},
	{ErrAlreadyApproved, "AlreadyApproved"},
	{ErrPendingWithdrawals, "PendingWithdrawals"},
	{ErrOverflow, "Overflow"},
	{ErrZeroAmount, "ZeroAmount"},
	{ErrVaultExists, "VaultExists"},
	{ErrVaultNotFound, "VaultNotFound"},
	{ErrWithdrawalExists, "WithdrawalExists"},
	{ErrWithdrawalNotFound, "WithdrawalNotFound"},
}

// ErrorName returns the stable taxonomy name of a vault error, or "" if
// the error is not one of the named conditions. Callers branch on these
// names, so they never change.
func ErrorName(err error) string {
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return e.name
		}
	}

	return ""
}
