package guardianvault

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	g "github.com/pandodao/generic"
)

// The ledger holds one balance record per destination principal. Credits
// happen inside the same badger transaction that debits the vault, so a
// transfer lands as one unit or not at all.

func accountKey(id string) []byte {
	return append(accountPrefix, []byte(id)...)
}

func findAccount(txn *badger.Txn, id string) (*Account, error) {
	pk := accountKey(id)

	item, err := txn.Get(pk)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &Account{ID: id}, nil
		}

		return nil, err
	}

	var account Account
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &account)
	}); err != nil {
		return nil, err
	}

	return &account, nil
}

func creditAccount(txn *badger.Txn, id string, amount uint64, now time.Time) (*Account, error) {
	account, err := findAccount(txn, id)
	if err != nil {
		return nil, err
	}

	balance, err := checkedAdd(account.Balance, amount)
	if err != nil {
		return nil, err
	}

	account.Balance = balance
	account.UpdatedAt = now

	e := badger.NewEntry(accountKey(id), g.Must(json.Marshal(account)))
	if err := txn.SetEntry(e); err != nil {
		return nil, err
	}

	return account, nil
}
