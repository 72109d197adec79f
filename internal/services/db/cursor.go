package db

import (
	"database/sql"
	"errors"

	"github.com/tokenledger/walletsync/pkg/syncer"
)

type CursorDB struct {
	db  *sql.DB
	rdb *sql.DB
}

// NewCursorDB creates a new DB
func NewCursorDB(db, rdb *sql.DB) *CursorDB {
	return &CursorDB{
		db:  db,
		rdb: rdb,
	}
}

// CreateCursorTable creates the per-token read cursor table
func (db *CursorDB) CreateCursorTable() error {
	_, err := db.db.Exec(`
	CREATE TABLE IF NOT EXISTS t_transfer_reads(
		token_id text NOT NULL PRIMARY KEY,
		last_read_block bigint NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	);
	`)

	return err
}

// LastReadBlock returns the highest fully processed block for a token, 0 if
// the token was never read.
func (db *CursorDB) LastReadBlock(tokenID string) (int64, error) {
	var block int64
	err := db.rdb.QueryRow(`
	SELECT last_read_block FROM t_transfer_reads WHERE token_id = $1
	`, tokenID).Scan(&block)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	return block, nil
}

// Advance persists toBlock as the new cursor. GREATEST keeps the cursor
// monotonic even if a stale pass writes late.
func (db *CursorDB) Advance(tokenID string, toBlock int64) error {
	_, err := db.db.Exec(`
	INSERT INTO t_transfer_reads (token_id, last_read_block, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (token_id) DO UPDATE SET
		last_read_block = GREATEST(t_transfer_reads.last_read_block, EXCLUDED.last_read_block),
		updated_at = now()
	`, tokenID, toBlock)

	return err
}

// Cursors returns all cursors, for the status surface
func (db *CursorDB) Cursors() ([]*syncer.Cursor, error) {
	rows, err := db.rdb.Query(`
	SELECT token_id, last_read_block, updated_at FROM t_transfer_reads ORDER BY token_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cursors := []*syncer.Cursor{}
	for rows.Next() {
		var c syncer.Cursor
		err = rows.Scan(&c.TokenID, &c.LastReadBlock, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}

		cursors = append(cursors, &c)
	}

	return cursors, rows.Err()
}
