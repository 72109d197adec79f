package db

import (
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

type BalanceDB struct {
	db  *sql.DB
	rdb *sql.DB
}

// NewBalanceDB creates a new DB
func NewBalanceDB(db, rdb *sql.DB) *BalanceDB {
	return &BalanceDB{
		db:  db,
		rdb: rdb,
	}
}

// CreateBalanceTable creates the balance table. One logical row per
// (wallet, token) pair, no history.
func (db *BalanceDB) CreateBalanceTable() error {
	_, err := db.db.Exec(`
	CREATE TABLE IF NOT EXISTS t_balances(
		wallet_id text NOT NULL,
		token_id text NOT NULL,
		balance numeric NOT NULL DEFAULT 0,
		pending_recompute integer NOT NULL DEFAULT 0,
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (wallet_id, token_id)
	);
	`)

	return err
}

// SetBalance upserts the balance for a (wallet, token) pair. The pending
// flag is cleared in the same statement: a reader never observes a fresh
// balance with a stale flag.
func (db *BalanceDB) SetBalance(walletID, tokenID string, balance decimal.Decimal) error {
	_, err := db.db.Exec(`
	INSERT INTO t_balances (wallet_id, token_id, balance, pending_recompute, updated_at)
	VALUES ($1, $2, $3, 0, now())
	ON CONFLICT (wallet_id, token_id) DO UPDATE SET
		balance = EXCLUDED.balance,
		pending_recompute = 0,
		updated_at = now()
	`, walletID, tokenID, balance.String())

	return err
}

// Balance returns the stored balance row for a (wallet, token) pair
func (db *BalanceDB) Balance(walletID, tokenID string) (decimal.Decimal, int, error) {
	var balance string
	var pending int

	err := db.rdb.QueryRow(`
	SELECT balance, pending_recompute FROM t_balances WHERE wallet_id = $1 AND token_id = $2
	`, walletID, tokenID).Scan(&balance, &pending)
	if err != nil {
		return decimal.Zero, 0, err
	}

	d, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero, 0, err
	}

	return d, pending, nil
}

// MarkPending flags a (wallet, token) pair for out-of-band recomputation
func (db *BalanceDB) MarkPending(walletID, tokenID string) error {
	_, err := db.db.Exec(`
	INSERT INTO t_balances (wallet_id, token_id, balance, pending_recompute, updated_at)
	VALUES ($1, $2, 0, 1, now())
	ON CONFLICT (wallet_id, token_id) DO UPDATE SET
		pending_recompute = t_balances.pending_recompute + 1,
		updated_at = now()
	`, walletID, tokenID)

	return err
}

// ReconcilePending locks one row flagged for recomputation, recomputes its
// balance through the callback and clears the flag with the write. The row
// lock keeps two sweepers off the same pair; SKIP LOCKED lets them drain
// different rows concurrently.
func (db *BalanceDB) ReconcilePending(recompute func(walletID, tokenID string) (decimal.Decimal, error)) (bool, error) {
	dbtx, err := db.db.Begin()
	if err != nil {
		return false, err
	}

	var walletID, tokenID string
	err = dbtx.QueryRow(`
	SELECT wallet_id, token_id FROM t_balances
	WHERE pending_recompute > 0
	ORDER BY updated_at
	LIMIT 1
	FOR UPDATE SKIP LOCKED
	`).Scan(&walletID, &tokenID)
	if err != nil {
		dbtx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	balance, err := recompute(walletID, tokenID)
	if err != nil {
		dbtx.Rollback()
		return false, err
	}

	_, err = dbtx.Exec(`
	UPDATE t_balances SET balance = $1, pending_recompute = 0, updated_at = now()
	WHERE wallet_id = $2 AND token_id = $3
	`, balance.String(), walletID, tokenID)
	if err != nil {
		dbtx.Rollback()
		return false, err
	}

	return true, dbtx.Commit()
}
