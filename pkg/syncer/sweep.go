package syncer

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tokenledger/walletsync/internal/common"
)

// Sweeper is the out-of-band correction path for balances flagged with
// pending_recompute by collaborators outside the main pass. It drains one
// flagged row per run, under the store's row lock.
type Sweeper struct {
	network       string
	confirmations int64

	chain    Chain
	balances BalanceStore
	tokens   TokenStore
}

func NewSweeper(network string, confirmations int64, chain Chain, balances BalanceStore, tokens TokenStore) *Sweeper {
	return &Sweeper{
		network:       network,
		confirmations: confirmations,
		chain:         chain,
		balances:      balances,
		tokens:        tokens,
	}
}

// Run reconciles at most one pending balance row. Returns false when no row
// was pending.
func (s *Sweeper) Run() (bool, error) {
	return s.balances.ReconcilePending(func(walletID, tokenID string) (decimal.Decimal, error) {
		token, err := s.tokens.Token(tokenID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		head, err := s.chain.LatestBlock()
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrChainRead, err)
		}

		walletAddress := AddressFromID(walletID)

		balance, err := s.chain.TokenBalance(token, walletAddress, head-s.confirmations)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrChainRead, err)
		}

		log.Default().Printf("UPDATE_BALANCE network=%s tokenAddress=%s walletAddress=%s balance=%s",
			s.network, token.Address, walletAddress, balance.String())

		return balance, nil
	})
}

// Background sweeps forever, waiting interval seconds between runs. A run
// that drained a row is followed immediately by another one.
func (s *Sweeper) Background(interval int) {
	for {
		swept, err := s.Run()
		if err != nil {
			common.Report(err)
		}

		if swept && err == nil {
			continue
		}

		time.Sleep(time.Duration(interval) * time.Second)
	}
}
