package syncer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Chain is the read-only view of the blockchain the pipeline needs.
type Chain interface {
	// LatestBlock returns the current head block number.
	LatestBlock() (int64, error)
	// BlockTime returns the timestamp of the given block.
	BlockTime(number int64) (time.Time, error)
	// TransferLogs returns the Transfer events emitted by the token contract
	// in the inclusive block window, ordered by (blockNumber, logIndex).
	TransferLogs(token *Token, fromBlock, toBlock int64) ([]*Transfer, error)
	// TokenBalance returns the owner's token balance at the given block.
	TokenBalance(token *Token, owner string, atBlock int64) (decimal.Decimal, error)
}

// CursorStore persists the per-token read cursor.
type CursorStore interface {
	// LastReadBlock returns 0 if the token was never read.
	LastReadBlock(tokenID string) (int64, error)
	// Advance persists toBlock as the new cursor. The cursor never decreases.
	Advance(tokenID string, toBlock int64) error
}

// TransferStore persists matched transfers.
type TransferStore interface {
	// AddTransfers writes the whole batch in one transaction. Re-inserting a
	// previously written (tokenId, txHash, logIndex) is a no-op.
	AddTransfers(txs []*Transfer) error
}

// BalanceStore persists reconciled balances.
type BalanceStore interface {
	// SetBalance upserts the balance and clears pending_recompute in the
	// same statement.
	SetBalance(walletID, tokenID string, balance decimal.Decimal) error
	// ReconcilePending locks one row with pending_recompute > 0, calls
	// recompute for it and stores the result, clearing the flag. Returns
	// false if no row was pending. A recompute error rolls the row back.
	ReconcilePending(recompute func(walletID, tokenID string) (decimal.Decimal, error)) (bool, error)
}

// TokenStore is the read-only token registry.
type TokenStore interface {
	ListTokens(network string) ([]*Token, error)
	Token(id string) (*Token, error)
}

// WalletStore is the read-only view of the managed wallet pool.
type WalletStore interface {
	// ListByAddresses reverse-looks-up managed wallets from candidate
	// addresses. Matching is case-insensitive.
	ListByAddresses(addresses []string) ([]*Wallet, error)
}

// Publisher delivers wallet notifications downstream. Fire and forget: the
// ledger is the source of truth, not the notification.
type Publisher interface {
	Publish(msg *WalletNotification) error
}
