package syncer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Token is reference data owned by the onboarding process, read-only here.
// IDs are network scoped: "<network>.<contract address>".
type Token struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Network  string `json:"network"`
	Decimals int32  `json:"decimals"`
}

// Wallet is a managed wallet from the external pool, read-only here.
// IDs are network scoped: "<network>.<address>".
type Wallet struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Network string `json:"network"`
}

// AddressFromID returns the address part of a network-scoped id.
func AddressFromID(id string) string {
	i := strings.LastIndex(id, ".")
	if i < 0 {
		return id
	}
	return id[i+1:]
}

// Transfer is a single confirmed Transfer event read from the chain.
// Addresses are lowercased at the ingestion boundary.
type Transfer struct {
	TokenID     string          `json:"token_id"`
	Network     string          `json:"network"`
	BlockNumber int64           `json:"block_number"`
	LogIndex    uint            `json:"log_index"`
	TxHash      string          `json:"tx_hash"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Amount      decimal.Decimal `json:"amount"`
	BlockTime   time.Time       `json:"block_time"`
	Data        json.RawMessage `json:"data"`
}

// Key identifies a transfer record: (tokenId, txHash, logIndex) is unique.
func (t *Transfer) Key() string {
	return fmt.Sprintf("%s_%s_%d", t.TokenID, strings.ToLower(t.TxHash), t.LogIndex)
}

// Balance is the authoritative balance row for a (wallet, token) pair.
type Balance struct {
	WalletID         string          `json:"wallet_id"`
	TokenID          string          `json:"token_id"`
	Balance          decimal.Decimal `json:"balance"`
	PendingRecompute int             `json:"pending_recompute"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Cursor is the per-token bookmark of the last fully processed block.
type Cursor struct {
	TokenID       string    `json:"token_id"`
	LastReadBlock int64     `json:"last_read_block"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type NotificationType string

const (
	NotificationDeposit  NotificationType = "deposit"
	NotificationWithdraw NotificationType = "withdraw"
)

// NotificationTransaction is one transfer as seen from the wallet's side.
type NotificationTransaction struct {
	TransactionHash string           `json:"transactionHash"`
	Amount          decimal.Decimal  `json:"amount"`
	Status          string           `json:"status"`
	Type            NotificationType `json:"type"`
}

// WalletNotification is published once per reconciled (token, wallet) pair.
type WalletNotification struct {
	Network      string                    `json:"network"`
	Address      string                    `json:"address"`
	Asset        string                    `json:"asset"`
	Balance      decimal.Decimal           `json:"balance"`
	HappenedAt   time.Time                 `json:"happenedAt"`
	Transactions []NotificationTransaction `json:"transactions"`
}
