package db

import (
	"database/sql"

	"github.com/tokenledger/walletsync/pkg/syncer"
)

type TransferDB struct {
	db  *sql.DB
	rdb *sql.DB
}

// NewTransferDB creates a new DB
func NewTransferDB(db, rdb *sql.DB) *TransferDB {
	return &TransferDB{
		db:  db,
		rdb: rdb,
	}
}

// CreateTransferTable creates the transfer table. Records are immutable;
// (token_id, tx_hash, log_index) is the idempotency key for window retries.
func (db *TransferDB) CreateTransferTable() error {
	_, err := db.db.Exec(`
	CREATE TABLE IF NOT EXISTS t_transfers(
		token_id text NOT NULL,
		network text NOT NULL,
		block_number bigint NOT NULL,
		log_index bigint NOT NULL,
		tx_hash text NOT NULL,
		from_addr text NOT NULL,
		to_addr text NOT NULL,
		amount numeric NOT NULL,
		block_time timestamptz NOT NULL,
		data jsonb DEFAULT NULL,
		PRIMARY KEY (token_id, tx_hash, log_index)
	);
	`)

	return err
}

// CreateTransferTableIndexes creates the indexes for the transfer table
func (db *TransferDB) CreateTransferTableIndexes() error {
	_, err := db.db.Exec(`
	CREATE INDEX IF NOT EXISTS idx_transfers_from_addr ON t_transfers (from_addr);
	`)
	if err != nil {
		return err
	}

	_, err = db.db.Exec(`
	CREATE INDEX IF NOT EXISTS idx_transfers_to_addr ON t_transfers (to_addr);
	`)
	if err != nil {
		return err
	}

	_, err = db.db.Exec(`
	CREATE INDEX IF NOT EXISTS idx_transfers_token_id_block_number ON t_transfers (token_id, block_number);
	`)

	return err
}

// AddTransfers writes a window's matched transfers in one transaction. The
// whole batch rolls back on any failure so a partially written window never
// advances the cursor. Conflicts on the idempotency key are ignored: the
// cursor may not have advanced after a crash between persist and advance,
// and the re-read window must not duplicate records.
func (db *TransferDB) AddTransfers(txs []*syncer.Transfer) error {
	dbtx, err := db.db.Begin()
	if err != nil {
		return err
	}

	for _, t := range txs {
		_, err = dbtx.Exec(`
		INSERT INTO t_transfers (token_id, network, block_number, log_index, tx_hash, from_addr, to_addr, amount, block_time, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token_id, tx_hash, log_index) DO NOTHING
		`, t.TokenID, t.Network, t.BlockNumber, t.LogIndex, t.TxHash, t.From, t.To, t.Amount.String(), t.BlockTime, []byte(t.Data))
		if err != nil {
			dbtx.Rollback()
			return err
		}
	}

	return dbtx.Commit()
}

// TransferExists checks whether a record was already ingested
func (db *TransferDB) TransferExists(tokenID, txHash string, logIndex uint) (bool, error) {
	var exists bool
	err := db.rdb.QueryRow(`
	SELECT EXISTS (SELECT 1 FROM t_transfers WHERE token_id = $1 AND tx_hash = $2 AND log_index = $3);
	`, tokenID, txHash, logIndex).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
