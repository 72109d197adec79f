package syncer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tokenledger/walletsync/internal/common"
)

const transactionStatusConfirmed = "confirmed"

// Classify tags a transfer from the wallet's point of view: money in is a
// deposit, money out is a withdrawal.
func Classify(t *Transfer, walletAddress string) NotificationType {
	if common.IsSameHexAddress(t.To, walletAddress) {
		return NotificationDeposit
	}

	return NotificationWithdraw
}

// NewWalletNotification builds the downstream message for one reconciled
// (token, wallet) pair. Every transaction is confirmed by construction: only
// events behind the confirmation depth ever reach the pipeline.
func NewWalletNotification(network string, token *Token, wallet *Wallet, txs []*Transfer, balance decimal.Decimal, happenedAt time.Time) *WalletNotification {
	transactions := make([]NotificationTransaction, 0, len(txs))
	for _, t := range txs {
		transactions = append(transactions, NotificationTransaction{
			TransactionHash: t.TxHash,
			Amount:          t.Amount,
			Status:          transactionStatusConfirmed,
			Type:            Classify(t, wallet.Address),
		})
	}

	return &WalletNotification{
		Network:      network,
		Address:      wallet.Address,
		Asset:        token.Name,
		Balance:      balance,
		HappenedAt:   happenedAt,
		Transactions: transactions,
	}
}
