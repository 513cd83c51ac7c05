package guardianvault

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	g "github.com/pandodao/generic"
)

var (
	vaultPrefix      = []byte("v:")
	withdrawalPrefix = []byte("w:")
	accountPrefix    = []byte("a:")
)

func saveVault(txn *badger.Txn, vault *Vault) error {
	pk := buildIndexKey(vaultPrefix, vault.ID)
	e := badger.NewEntry(pk, g.Must(json.Marshal(vault)))
	return txn.SetEntry(e)
}

func findVault(txn *badger.Txn, id uuid.UUID) (*Vault, error) {
	pk := buildIndexKey(vaultPrefix, id)

	item, err := txn.Get(pk)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrVaultNotFound
		}

		return nil, fmt.Errorf("find vault: %w", err)
	}

	var vault Vault
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &vault)
	}); err != nil {
		return nil, err
	}

	return &vault, nil
}

// saveWithdrawal writes a request under (vault, nonce). Nonce uniqueness
// is enforced by the key itself.
func saveWithdrawal(txn *badger.Txn, req *WithdrawalRequest) error {
	pk := buildIndexKey(withdrawalPrefix, req.Vault, req.Nonce)
	e := badger.NewEntry(pk, g.Must(json.Marshal(req)))
	return txn.SetEntry(e)
}

func findWithdrawal(txn *badger.Txn, vault uuid.UUID, nonce uint64) (*WithdrawalRequest, error) {
	pk := buildIndexKey(withdrawalPrefix, vault, nonce)

	item, err := txn.Get(pk)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrWithdrawalNotFound
		}

		return nil, fmt.Errorf("find withdrawal: %w", err)
	}

	var req WithdrawalRequest
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &req)
	}); err != nil {
		return nil, err
	}

	return &req, nil
}

func listWithdrawals(txn *badger.Txn, vault uuid.UUID, limit int) ([]*WithdrawalRequest, error) {
	prefix := buildIndexKey(withdrawalPrefix, vault)

	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = limit
	it := txn.NewIterator(opts)
	defer it.Close()

	var requests []*WithdrawalRequest
	for it.Seek(prefix); it.ValidForPrefix(prefix) && len(requests) < limit; it.Next() {
		item := it.Item()

		var req WithdrawalRequest
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &req)
		}); err != nil {
			return nil, err
		}

		requests = append(requests, &req)
	}

	return requests, nil
}

// countPendingWithdrawals scans the vault's requests for non-terminal
// ones. Used to keep signer sets frozen while approvals are in flight.
func countPendingWithdrawals(txn *badger.Txn, vault uuid.UUID) (int, error) {
	prefix := buildIndexKey(withdrawalPrefix, vault)

	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()

	var pending int
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()

		var req WithdrawalRequest
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &req)
		}); err != nil {
			return 0, err
		}

		if req.Pending() {
			pending++
		}
	}

	return pending, nil
}
