package syncer

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tokenledger/walletsync/internal/common"
)

type ErrSync error

var (
	// ErrChainRead is a transient RPC failure. The token's pass is aborted
	// with the cursor untouched and the window is re-read on the next pass.
	ErrChainRead ErrSync = errors.New("chain read failed")

	// ErrPersistence is a store write failure. The window's batch rolls back
	// and the cursor is not advanced.
	ErrPersistence ErrSync = errors.New("persistence failed")
)

// Deps are the collaborators the pipeline drives. All of them are injected
// at construction.
type Deps struct {
	Chain     Chain
	Cursors   CursorStore
	Transfers TransferStore
	Balances  BalanceStore
	Tokens    TokenStore
	Wallets   WalletStore
	Publisher Publisher
}

// Pipeline ingests confirmed transfer events for every tracked token and
// reconciles the balances of the managed wallets they touch.
type Pipeline struct {
	network       string
	confirmations int64
	maxWindow     int64

	deps Deps

	mu sync.Mutex
}

func New(network string, confirmations, maxWindow int64, deps Deps) *Pipeline {
	return &Pipeline{
		network:       network,
		confirmations: confirmations,
		maxWindow:     maxWindow,
		deps:          deps,
	}
}

// Run executes one pass over all tracked tokens, serially. A failure on one
// token is reported and does not abort the others. Overlapping invocations
// are rejected: a pass that is still in flight makes Run return immediately.
func (p *Pipeline) Run() error {
	if !p.mu.TryLock() {
		return nil
	}
	defer p.mu.Unlock()

	tokens, err := p.deps.Tokens.ListTokens(p.network)
	if err != nil {
		return fmt.Errorf("listing tokens: %w", err)
	}

	for _, token := range tokens {
		err := p.syncToken(token)
		if err != nil {
			common.Report(fmt.Errorf("token %s: %w", token.Name, err))
		}
	}

	return nil
}

// Background runs passes forever, waiting interval seconds between them.
func (p *Pipeline) Background(interval int) {
	for {
		err := p.Run()
		if err != nil {
			common.Report(err)
		}

		time.Sleep(time.Duration(interval) * time.Second)
	}
}

// syncToken runs one pass for one token: window -> fetch -> match ->
// persist -> reconcile per wallet -> advance cursor. The cursor only moves
// after the window's matched transfers are durably persisted.
func (p *Pipeline) syncToken(token *Token) error {
	lastRead, err := p.deps.Cursors.LastReadBlock(token.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	head, err := p.deps.Chain.LatestBlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainRead, err)
	}
	lastConfirmed := head - p.confirmations

	fromBlock, toBlock, ok := NextWindow(lastRead, lastConfirmed, p.maxWindow)
	if !ok {
		log.Default().Printf("NOT_ENOUGH_CONFIRMATIONS network=%s token=%s lastReadBlock=%d fromBlock=%d lastConfirmedBlock=%d requiredConfirmations=%d",
			p.network, token.Name, lastRead, fromBlock, lastConfirmed, p.confirmations)
		return nil
	}

	txs, err := p.deps.Chain.TransferLogs(token, fromBlock, toBlock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	blockTime, err := p.deps.Chain.BlockTime(toBlock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	log.Default().Printf("READ_TRANSACTIONS network=%s token=%s transactions=%d fromBlock=%d toBlock=%d currentBlock=%d currentBlockTime=%s",
		p.network, token.Name, len(txs), fromBlock, toBlock, head, blockTime.UTC().Format(time.RFC3339))

	if len(txs) > 0 {
		wallets, err := p.deps.Wallets.ListByAddresses(TransferAddresses(txs))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		matched := FilterByWallets(txs, wallets)

		if len(matched) > 0 {
			for _, t := range matched {
				t.BlockTime = blockTime
			}

			err = p.deps.Transfers.AddTransfers(matched)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}

			log.Default().Printf("WRITE_TRANSACTIONS network=%s token=%s transactions=%d currentBlockTime=%s",
				p.network, token.Name, len(matched), blockTime.UTC().Format(time.RFC3339))
		}

		// per-wallet failures are contained: one bad wallet neither blocks
		// its siblings nor the cursor
		for _, wallet := range wallets {
			err := p.reconcileWallet(token, wallet, matched, toBlock, blockTime)
			if err != nil {
				common.Report(fmt.Errorf("reconcile wallet %s: %w", wallet.Address, err))
			}
		}
	}

	err = p.deps.Cursors.Advance(token.ID, toBlock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return nil
}

// reconcileWallet recomputes one wallet's balance from the chain, persists
// it and notifies downstream. The balance row is the source of truth; a
// failed publish is swallowed.
func (p *Pipeline) reconcileWallet(token *Token, wallet *Wallet, matched []*Transfer, atBlock int64, happenedAt time.Time) error {
	balance, err := p.deps.Chain.TokenBalance(token, wallet.Address, atBlock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	err = p.deps.Balances.SetBalance(wallet.ID, token.ID, balance)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log.Default().Printf("UPDATE_BALANCE network=%s token=%s walletAddress=%s balance=%s",
		p.network, token.Name, wallet.Address, balance.String())

	msg := NewWalletNotification(p.network, token, wallet, FilterByAddress(matched, wallet.Address), balance, happenedAt)

	err = p.deps.Publisher.Publish(msg)
	if err != nil {
		common.Report(fmt.Errorf("publish wallet %s: %v", wallet.Address, err))
		return nil
	}

	hashes := make([]string, 0, len(msg.Transactions))
	for _, t := range msg.Transactions {
		hashes = append(hashes, t.TransactionHash)
	}

	log.Default().Printf("SEND_TRANSACTIONS network=%s address=%s asset=%s balance=%s happenedAt=%s transactions=%d hash=%v",
		msg.Network, msg.Address, msg.Asset, msg.Balance.String(), msg.HappenedAt.UTC().Format(time.RFC3339), len(msg.Transactions), hashes)

	return nil
}
