package db

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/tokenledger/walletsync/internal/common"
	"github.com/tokenledger/walletsync/pkg/syncer"
)

type WalletDB struct {
	db  *sql.DB
	rdb *sql.DB
}

// NewWalletDB creates a new DB
func NewWalletDB(db, rdb *sql.DB) *WalletDB {
	return &WalletDB{
		db:  db,
		rdb: rdb,
	}
}

// ListByAddresses reverse-looks-up managed wallets from candidate addresses.
// Candidates are normalized before the query; matching is case-insensitive
// on the stored side too.
func (db *WalletDB) ListByAddresses(addresses []string) ([]*syncer.Wallet, error) {
	if len(addresses) == 0 {
		return []*syncer.Wallet{}, nil
	}

	normalized := make([]string, 0, len(addresses))
	for _, a := range addresses {
		normalized = append(normalized, common.NormalizeAddress(a))
	}

	rows, err := db.rdb.Query(`
	SELECT id, address, network FROM t_wallets WHERE lower(address) = ANY($1) ORDER BY id
	`, pq.Array(normalized))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := []*syncer.Wallet{}
	for rows.Next() {
		var w syncer.Wallet
		err = rows.Scan(&w.ID, &w.Address, &w.Network)
		if err != nil {
			return nil, err
		}

		wallets = append(wallets, &w)
	}

	return wallets, rows.Err()
}
