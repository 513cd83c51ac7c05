package guardianvault

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxSigners caps the multisig signer set of a vault.
const MaxSigners = 5

// MaxGuardianID bounds the guardian namespace (the Ten Guardians, 0-9).
const MaxGuardianID = 9

var vaultNamespace = uuid.MustParse("8f7c1c5e-33a0-4f3b-9d25-6b1f20c7d1aa")

// VaultID derives the deterministic vault id for a guardian/admin pairing.
// Creating the same pairing twice therefore lands on the same record.
func VaultID(guardianID uint8, admin string) uuid.UUID {
	return uuid.NewSHA1(vaultNamespace, []byte(fmt.Sprintf("%d:%s", guardianID, admin)))
}

type Vault struct {
	ID             uuid.UUID `json:"id"`
	GuardianID     uint8     `json:"guardian_id"`
	Admin          string    `json:"admin"`
	Agent          string    `json:"agent"`
	PerTxLimit     uint64    `json:"per_tx_limit"`
	DailyLimit     uint64    `json:"daily_limit"`
	DailySpent     uint64    `json:"daily_spent"`
	LastSpendDay   uint64    `json:"last_spend_day"`
	Balance        uint64    `json:"balance"`
	TotalDeposited uint64    `json:"total_deposited"`
	TotalWithdrawn uint64    `json:"total_withdrawn"`
	IsActive       bool      `json:"is_active"`
	Threshold      uint8     `json:"threshold"`
	Signers        []string  `json:"signers"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SignerIndex resolves a principal to its position in the signer set.
// Approval bitmaps are keyed by this index for the lifetime of a request.
func (v *Vault) SignerIndex(id string) (int, bool) {
	for i, s := range v.Signers {
		if s == id {
			return i, true
		}
	}

	return 0, false
}

// Spendable is the balance above the reserve floor.
func (v *Vault) Spendable(reserve uint64) uint64 {
	if v.Balance <= reserve {
		return 0
	}

	return v.Balance - reserve
}

type WithdrawalRequest struct {
	Vault          uuid.UUID `json:"vault"`
	Nonce          uint64    `json:"nonce"`
	Destination    string    `json:"destination"`
	Amount         uint64    `json:"amount"`
	Initiator      string    `json:"initiator"`
	ApprovalBitmap uint8     `json:"approval_bitmap"`
	ApprovalCount  uint8     `json:"approval_count"`
	IsExecuted     bool      `json:"is_executed"`
	IsCancelled    bool      `json:"is_cancelled"`
	CreatedAt      time.Time `json:"created_at"`
}

// Pending reports whether the request is still open for approvals.
func (r *WithdrawalRequest) Pending() bool {
	return !r.IsExecuted && !r.IsCancelled
}

// Account is the ledger record of a destination principal, credited
// whenever funds leave a vault.
type Account struct {
	ID        string    `json:"id"`
	Balance   uint64    `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConfigUpdate carries the optional fields of an admin config update.
// Nil fields are left unchanged; a nil Signers slice keeps the current set.
type ConfigUpdate struct {
	Agent      *string
	PerTxLimit *uint64
	DailyLimit *uint64
	Threshold  *uint8
	Signers    []string
}
