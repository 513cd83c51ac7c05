package guardianvault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateVault(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, Config{})

	admin := newPrincipal()
	agent := newPrincipal()
	signers := []string{newPrincipal(), newPrincipal(), newPrincipal()}

	vault, err := s.CreateVault(ctx, admin, CreateVaultInput{
		GuardianID: 3,
		Agent:      agent,
		PerTxLimit: 100,
		DailyLimit: 150,
		Threshold:  2,
		Signers:    signers,
	})
	require.NoError(t, err)

	assert.Equal(t, VaultID(3, admin), vault.ID)
	assert.Equal(t, admin, vault.Admin)
	assert.Equal(t, agent, vault.Agent)
	assert.True(t, vault.IsActive)
	assert.Zero(t, vault.Balance)
	assert.Zero(t, vault.DailySpent)
	assert.Zero(t, vault.LastSpendDay)
	assert.Zero(t, vault.TotalDeposited)
	assert.Zero(t, vault.TotalWithdrawn)

	_, err = s.CreateVault(ctx, admin, CreateVaultInput{
		GuardianID: 3,
		Agent:      agent,
		Threshold:  2,
		Signers:    signers,
	})
	assert.ErrorIs(t, err, ErrVaultExists)
}

func TestCreateVaultValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, Config{})

	admin := newPrincipal()
	agent := newPrincipal()

	cases := []struct {
		name string
		in   CreateVaultInput
		want error
	}{
		{
			name: "guardian id out of range",
			in: CreateVaultInput{
				GuardianID: 10,
				Agent:      agent,
				Threshold:  1,
				Signers:    []string{newPrincipal()},
			},
			want: ErrInvalidGuardianID,
		},
		{
			name: "too many signers",
			in: CreateVaultInput{
				Agent:     agent,
				Threshold: 1,
				Signers: []string{
					newPrincipal(), newPrincipal(), newPrincipal(),
					newPrincipal(), newPrincipal(), newPrincipal(),
				},
			},
			want: ErrTooManySigners,
		},
		{
			name: "zero threshold",
			in: CreateVaultInput{
				Agent:   agent,
				Signers: []string{newPrincipal()},
			},
			want: ErrInvalidThreshold,
		},
		{
			name: "threshold above signer count",
			in: CreateVaultInput{
				Agent:     agent,
				Threshold: 3,
				Signers:   []string{newPrincipal(), newPrincipal()},
			},
			want: ErrInvalidThreshold,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := s.CreateVault(ctx, admin, c.in)
			assert.ErrorIs(t, err, c.want)
		})
	}

	dup := newPrincipal()
	_, err := s.CreateVault(ctx, admin, CreateVaultInput{
		Agent:     agent,
		Threshold: 1,
		Signers:   []string{dup, dup},
	})
	assert.ErrorIs(t, err, ErrDuplicateSigner)
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, Config{})

	admin := newPrincipal()
	vault, err := s.CreateVault(ctx, admin, CreateVaultInput{
		Agent:     newPrincipal(),
		Threshold: 1,
		Signers:   []string{newPrincipal()},
	})
	require.NoError(t, err)

	depositor := newPrincipal()
	vault, err = s.Deposit(ctx, depositor, vault.ID, 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, vault.Balance)
	assert.EqualValues(t, 1000, vault.TotalDeposited)

	// deposits stay open while frozen
	_, err = s.SetActive(ctx, admin, vault.ID, false)
	require.NoError(t, err)

	vault, err = s.Deposit(ctx, depositor, vault.ID, 500)
	require.NoError(t, err)
	assert.EqualValues(t, 1500, vault.Balance)
	assert.EqualValues(t, 1500, vault.TotalDeposited)

	_, err = s.Deposit(ctx, depositor, vault.ID, 0)
	assert.ErrorIs(t, err, ErrZeroAmount)
}

func TestDepositOverflow(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, Config{})

	admin := newPrincipal()
	vault, err := s.CreateVault(ctx, admin, CreateVaultInput{
		Agent:     newPrincipal(),
		Threshold: 1,
		Signers:   []string{newPrincipal()},
	})
	require.NoError(t, err)

	_, err = s.Deposit(ctx, newPrincipal(), vault.ID, ^uint64(0))
	require.NoError(t, err)

	_, err = s.Deposit(ctx, newPrincipal(), vault.ID, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	vault, err = s.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), vault.Balance)
}

func TestUpdateConfig(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, Config{})

	admin := newPrincipal()
	vault, err := s.CreateVault(ctx, admin, CreateVaultInput{
		Agent:      newPrincipal(),
		PerTxLimit: 100,
		DailyLimit: 150,
		Threshold:  1,
		Signers:    []string{newPrincipal(), newPrincipal()},
	})
	require.NoError(t, err)

	_, err = s.UpdateConfig(ctx, newPrincipal(), vault.ID, ConfigUpdate{})
	assert.ErrorIs(t, err, ErrUnauthorizedAdmin)

	newAgent := newPrincipal()
	perTx := uint64(200)
	vault, err = s.UpdateConfig(ctx, admin, vault.ID, ConfigUpdate{
		Agent:      &newAgent,
		PerTxLimit: &perTx,
	})
	require.NoError(t, err)
	assert.Equal(t, newAgent, vault.Agent)
	assert.EqualValues(t, 200, vault.PerTxLimit)
	assert.EqualValues(t, 150, vault.DailyLimit)

	// threshold must fit the signer set evaluated after the change
	threshold := uint8(3)
	_, err = s.UpdateConfig(ctx, admin, vault.ID, ConfigUpdate{Threshold: &threshold})
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	// lowering the daily limit mid-window clamps the spent counter
	fixClock(s, time.Unix(100*secondsPerDay, 0))
	_, err = s.Deposit(ctx, newPrincipal(), vault.ID, 1000)
	require.NoError(t, err)
	_, err = s.AgentSpend(ctx, newAgent, vault.ID, newPrincipal(), 120)
	require.NoError(t, err)

	daily := uint64(100)
	vault, err = s.UpdateConfig(ctx, admin, vault.ID, ConfigUpdate{DailyLimit: &daily})
	require.NoError(t, err)
	assert.EqualValues(t, 100, vault.DailySpent)

	threshold = 2
	signers := []string{newPrincipal(), newPrincipal(), newPrincipal()}
	vault, err = s.UpdateConfig(ctx, admin, vault.ID, ConfigUpdate{
		Threshold: &threshold,
		Signers:   signers,
	})
	require.NoError(t, err)
	assert.Equal(t, signers, vault.Signers)
	assert.EqualValues(t, 2, vault.Threshold)
}

func TestUpdateConfigFrozenWhilePending(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, Config{})

	admin := newPrincipal()
	signers := []string{newPrincipal(), newPrincipal()}
	vault, err := s.CreateVault(ctx, admin, CreateVaultInput{
		Agent:     newPrincipal(),
		Threshold: 1,
		Signers:   signers,
	})
	require.NoError(t, err)

	_, err = s.Deposit(ctx, newPrincipal(), vault.ID, 1000)
	require.NoError(t, err)

	req, err := s.CreateWithdrawal(ctx, signers[0], vault.ID, newPrincipal(), 500, 1)
	require.NoError(t, err)

	threshold := uint8(2)
	_, err = s.UpdateConfig(ctx, admin, vault.ID, ConfigUpdate{Threshold: &threshold})
	assert.ErrorIs(t, err, ErrPendingWithdrawals)

	_, err = s.UpdateConfig(ctx, admin, vault.ID, ConfigUpdate{Signers: []string{newPrincipal()}})
	assert.ErrorIs(t, err, ErrPendingWithdrawals)

	// limit changes are fine while requests are pending
	daily := uint64(300)
	_, err = s.UpdateConfig(ctx, admin, vault.ID, ConfigUpdate{DailyLimit: &daily})
	require.NoError(t, err)

	_, err = s.CancelWithdrawal(ctx, admin, vault.ID, req.Nonce)
	require.NoError(t, err)

	_, err = s.UpdateConfig(ctx, admin, vault.ID, ConfigUpdate{Threshold: &threshold})
	require.NoError(t, err)
}

func TestEmergencyWithdraw(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, Config{ReserveFloor: 100})

	admin := newPrincipal()
	agent := newPrincipal()
	vault, err := s.CreateVault(ctx, admin, CreateVaultInput{
		Agent:      agent,
		PerTxLimit: 50,
		DailyLimit: 50,
		Threshold:  1,
		Signers:    []string{newPrincipal()},
	})
	require.NoError(t, err)

	destination := newPrincipal()

	_, err = s.EmergencyWithdraw(ctx, admin, vault.ID, destination)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = s.Deposit(ctx, newPrincipal(), vault.ID, 1000)
	require.NoError(t, err)

	_, err = s.EmergencyWithdraw(ctx, newPrincipal(), vault.ID, destination)
	assert.ErrorIs(t, err, ErrUnauthorizedAdmin)

	// the circuit breaker ignores the frozen flag
	_, err = s.SetActive(ctx, admin, vault.ID, false)
	require.NoError(t, err)

	amount, err := s.EmergencyWithdraw(ctx, admin, vault.ID, destination)
	require.NoError(t, err)
	assert.EqualValues(t, 900, amount)

	vault, err = s.GetVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 100, vault.Balance)
	assert.EqualValues(t, 900, vault.TotalWithdrawn)

	account, err := s.GetAccount(ctx, destination)
	require.NoError(t, err)
	assert.EqualValues(t, 900, account.Balance)
}

func TestSetActiveBlocksSpendPaths(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, Config{})
	fixClock(s, time.Unix(100*secondsPerDay+3600, 0))

	admin := newPrincipal()
	agent := newPrincipal()
	signers := []string{newPrincipal()}
	vault, err := s.CreateVault(ctx, admin, CreateVaultInput{
		Agent:      agent,
		PerTxLimit: 100,
		DailyLimit: 150,
		Threshold:  1,
		Signers:    signers,
	})
	require.NoError(t, err)

	_, err = s.Deposit(ctx, newPrincipal(), vault.ID, 1000)
	require.NoError(t, err)

	_, err = s.SetActive(ctx, newPrincipal(), vault.ID, false)
	assert.ErrorIs(t, err, ErrUnauthorizedAdmin)

	_, err = s.SetActive(ctx, admin, vault.ID, false)
	require.NoError(t, err)

	_, err = s.AgentSpend(ctx, agent, vault.ID, newPrincipal(), 50)
	assert.ErrorIs(t, err, ErrVaultNotActive)

	_, err = s.CreateWithdrawal(ctx, signers[0], vault.ID, newPrincipal(), 500, 1)
	assert.ErrorIs(t, err, ErrVaultNotActive)

	_, err = s.SetActive(ctx, admin, vault.ID, true)
	require.NoError(t, err)

	_, err = s.AgentSpend(ctx, agent, vault.ID, newPrincipal(), 50)
	require.NoError(t, err)
}
