package guardianvault

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventVaultCreated        EventType = "vault_created"
	EventDeposit             EventType = "deposit"
	EventAgentSpend          EventType = "agent_spend"
	EventWithdrawalCreated   EventType = "withdrawal_created"
	EventWithdrawalApproved  EventType = "withdrawal_approved"
	EventWithdrawalExecuted  EventType = "withdrawal_executed"
	EventWithdrawalCancelled EventType = "withdrawal_cancelled"
	EventEmergencyWithdrawal EventType = "emergency_withdrawal"
	EventConfigUpdated       EventType = "config_updated"
	EventActiveChanged       EventType = "active_changed"
)

// Event is the structured record emitted after every balance-affecting
// operation, for off-process observers. The engine keeps no history of
// its own beyond these.
type Event struct {
	Type        EventType `json:"type"`
	Vault       uuid.UUID `json:"vault"`
	Actor       string    `json:"actor,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Amount      uint64    `json:"amount,omitempty"`
	Balance     uint64    `json:"balance,omitempty"`
	DailySpent  uint64    `json:"daily_spent,omitempty"`
	Nonce       uint64    `json:"nonce,omitempty"`
	Approvals   uint8     `json:"approvals,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// emit hands an event to the sink without blocking the operation that
// produced it. A full sink drops the event; state changes never roll back
// on emission failure.
func (s *Server) emit(e Event) {
	select {
	case s.events <- e:
	default:
		slog.Warn("event sink full, dropped", "type", e.Type, "vault", e.Vault)
	}
}

// LoopEvents drains the event sink until the context ends.
func (s *Server) LoopEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-s.events:
			slog.Info(
				"vault event",
				"type", e.Type,
				"vault", e.Vault,
				"actor", e.Actor,
				"destination", e.Destination,
				"amount", FormatAmount(e.Amount),
				"balance", FormatAmount(e.Balance),
				"daily_spent", FormatAmount(e.DailySpent),
				"nonce", e.Nonce,
				"approvals", e.Approvals,
				"ts", e.Timestamp,
			)
		}
	}
}
