package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB aggregates the store services over one Postgres database. Writes go to
// db, reads can go to a read replica through rdb.
type DB struct {
	db  *sql.DB
	rdb *sql.DB

	TokenDB    *TokenDB
	WalletDB   *WalletDB
	TransferDB *TransferDB
	BalanceDB  *BalanceDB
	CursorDB   *CursorDB
}

// NewDB instantiates the store and creates the tables this pipeline owns
// when they are missing. Token and wallet tables belong to the onboarding
// and wallet-pool services and are expected to exist.
func NewDB(username, password, name, host, rhost string) (*DB, error) {
	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=5432 sslmode=disable", username, password, name, host)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	rconnStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=5432 sslmode=disable", username, password, name, rhost)
	rdb, err := sql.Open("postgres", rconnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := &DB{
		db:         db,
		rdb:        rdb,
		TokenDB:    NewTokenDB(db, rdb),
		WalletDB:   NewWalletDB(db, rdb),
		TransferDB: NewTransferDB(db, rdb),
		BalanceDB:  NewBalanceDB(db, rdb),
		CursorDB:   NewCursorDB(db, rdb),
	}

	for _, create := range []func() error{
		d.TransferDB.CreateTransferTable,
		d.TransferDB.CreateTransferTableIndexes,
		d.BalanceDB.CreateBalanceTable,
		d.CursorDB.CreateCursorTable,
	} {
		err = create()
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// TableExists checks if a table exists in the database
func (d *DB) TableExists(name string) (bool, error) {
	var exists bool
	err := d.db.QueryRow(`
    SELECT EXISTS (
        SELECT 1
        FROM information_schema.tables
        WHERE table_schema = 'public'
        AND table_name = $1
    );
    `, name).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// Close closes both connections
func (d *DB) Close() error {
	err := d.rdb.Close()
	if err != nil {
		return err
	}

	return d.db.Close()
}
