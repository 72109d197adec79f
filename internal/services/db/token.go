package db

import (
	"database/sql"

	"github.com/tokenledger/walletsync/pkg/syncer"
)

type TokenDB struct {
	db  *sql.DB
	rdb *sql.DB
}

// NewTokenDB creates a new DB
func NewTokenDB(db, rdb *sql.DB) *TokenDB {
	return &TokenDB{
		db:  db,
		rdb: rdb,
	}
}

// ListTokens returns the tracked tokens for a network. The table is owned by
// the onboarding process; this pipeline only reads it.
func (db *TokenDB) ListTokens(network string) ([]*syncer.Token, error) {
	rows, err := db.rdb.Query(`
	SELECT id, name, address, network, decimals FROM t_tokens WHERE network = $1 ORDER BY id
	`, network)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []*syncer.Token{}
	for rows.Next() {
		var t syncer.Token
		err = rows.Scan(&t.ID, &t.Name, &t.Address, &t.Network, &t.Decimals)
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, &t)
	}

	return tokens, rows.Err()
}

// Token returns one token by id
func (db *TokenDB) Token(id string) (*syncer.Token, error) {
	var t syncer.Token
	err := db.rdb.QueryRow(`
	SELECT id, name, address, network, decimals FROM t_tokens WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Address, &t.Network, &t.Decimals)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
