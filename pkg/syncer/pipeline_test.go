package syncer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	head    int64
	headErr error

	logs     []*Transfer
	logsErr  error
	logCalls int

	balances   map[string]decimal.Decimal
	balanceErr map[string]error

	blockTime time.Time
}

func (c *fakeChain) LatestBlock() (int64, error) {
	return c.head, c.headErr
}

func (c *fakeChain) BlockTime(number int64) (time.Time, error) {
	return c.blockTime, nil
}

func (c *fakeChain) TransferLogs(token *Token, fromBlock, toBlock int64) ([]*Transfer, error) {
	c.logCalls++
	if c.logsErr != nil {
		return nil, c.logsErr
	}

	txs := []*Transfer{}
	for _, t := range c.logs {
		if t.TokenID == token.ID && t.BlockNumber >= fromBlock && t.BlockNumber <= toBlock {
			cp := *t
			txs = append(txs, &cp)
		}
	}
	return txs, nil
}

func (c *fakeChain) TokenBalance(token *Token, owner string, atBlock int64) (decimal.Decimal, error) {
	key := strings.ToLower(owner)
	if err := c.balanceErr[key]; err != nil {
		return decimal.Zero, err
	}
	return c.balances[key], nil
}

type fakeCursors struct {
	cursors    map[string]int64
	advanceErr error
}

func (c *fakeCursors) LastReadBlock(tokenID string) (int64, error) {
	return c.cursors[tokenID], nil
}

func (c *fakeCursors) Advance(tokenID string, toBlock int64) error {
	if c.advanceErr != nil {
		return c.advanceErr
	}
	if toBlock > c.cursors[tokenID] {
		c.cursors[tokenID] = toBlock
	}
	return nil
}

type fakeTransfers struct {
	records map[string]*Transfer
	addErr  error
}

func (s *fakeTransfers) AddTransfers(txs []*Transfer) error {
	if s.addErr != nil {
		return s.addErr
	}
	for _, t := range txs {
		s.records[t.Key()] = t
	}
	return nil
}

type fakeBalances struct {
	rows   map[string]*Balance
	setErr map[string]error
}

func (s *fakeBalances) SetBalance(walletID, tokenID string, balance decimal.Decimal) error {
	if err := s.setErr[walletID]; err != nil {
		return err
	}
	s.rows[walletID+"|"+tokenID] = &Balance{WalletID: walletID, TokenID: tokenID, Balance: balance}
	return nil
}

func (s *fakeBalances) ReconcilePending(recompute func(walletID, tokenID string) (decimal.Decimal, error)) (bool, error) {
	for _, r := range s.rows {
		if r.PendingRecompute > 0 {
			balance, err := recompute(r.WalletID, r.TokenID)
			if err != nil {
				return false, err
			}
			r.Balance = balance
			r.PendingRecompute = 0
			return true, nil
		}
	}
	return false, nil
}

type fakeTokens struct {
	tokens []*Token
}

func (s *fakeTokens) ListTokens(network string) ([]*Token, error) {
	return s.tokens, nil
}

func (s *fakeTokens) Token(id string) (*Token, error) {
	for _, t := range s.tokens {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, errors.New("token not found")
}

type fakeWallets struct {
	wallets []*Wallet
}

func (s *fakeWallets) ListByAddresses(addresses []string) ([]*Wallet, error) {
	matched := []*Wallet{}
	for _, w := range s.wallets {
		for _, a := range addresses {
			if strings.EqualFold(w.Address, a) {
				matched = append(matched, w)
				break
			}
		}
	}
	return matched, nil
}

type fakePublisher struct {
	messages []*WalletNotification
	err      error
}

func (p *fakePublisher) Publish(msg *WalletNotification) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

type fixture struct {
	token     *Token
	chain     *fakeChain
	cursors   *fakeCursors
	transfers *fakeTransfers
	balances  *fakeBalances
	tokens    *fakeTokens
	wallets   *fakeWallets
	publisher *fakePublisher
	pipeline  *Pipeline
}

func newFixture(confirmations, maxWindow int64) *fixture {
	token := &Token{
		ID:       "ropsten.0x1000000000000000000000000000000000000001",
		Name:     "STX",
		Address:  "0x1000000000000000000000000000000000000001",
		Network:  "ropsten",
		Decimals: 18,
	}

	f := &fixture{
		token: token,
		chain: &fakeChain{
			balances:   map[string]decimal.Decimal{},
			balanceErr: map[string]error{},
			blockTime:  time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		cursors:   &fakeCursors{cursors: map[string]int64{}},
		transfers: &fakeTransfers{records: map[string]*Transfer{}},
		balances:  &fakeBalances{rows: map[string]*Balance{}, setErr: map[string]error{}},
		tokens:    &fakeTokens{tokens: []*Token{token}},
		wallets:   &fakeWallets{},
		publisher: &fakePublisher{},
	}

	f.pipeline = New("ropsten", confirmations, maxWindow, Deps{
		Chain:     f.chain,
		Cursors:   f.cursors,
		Transfers: f.transfers,
		Balances:  f.balances,
		Tokens:    f.tokens,
		Wallets:   f.wallets,
		Publisher: f.publisher,
	})

	return f
}

func (f *fixture) addWallet(address string) *Wallet {
	w := &Wallet{ID: "ropsten." + strings.ToLower(address), Address: strings.ToLower(address), Network: "ropsten"}
	f.wallets.wallets = append(f.wallets.wallets, w)
	return w
}

func (f *fixture) addLog(block int64, logIndex uint, txHash, from, to string, amount int64) {
	f.chain.logs = append(f.chain.logs, &Transfer{
		TokenID:     f.token.ID,
		Network:     "ropsten",
		BlockNumber: block,
		LogIndex:    logIndex,
		TxHash:      txHash,
		From:        strings.ToLower(from),
		To:          strings.ToLower(to),
		Amount:      decimal.NewFromInt(amount),
	})
}

func TestPipelineEndToEnd(t *testing.T) {
	f := newFixture(12, 1000)
	f.chain.head = 32 // confirmed = 20

	managed := f.addWallet("0xB000000000000000000000000000000000000002")
	f.addLog(10, 0, "0xdeadbeef", "0xA000000000000000000000000000000000000001", managed.Address, 5)
	f.chain.balances[managed.Address] = decimal.NewFromInt(5)

	err := f.pipeline.Run()
	require.NoError(t, err)

	// transfer persisted once
	require.Len(t, f.transfers.records, 1)
	for _, rec := range f.transfers.records {
		assert.Equal(t, int64(10), rec.BlockNumber)
		assert.Equal(t, f.chain.blockTime, rec.BlockTime)
	}

	// balance reconciled from the chain
	row := f.balances.rows[managed.ID+"|"+f.token.ID]
	require.NotNil(t, row)
	assert.True(t, row.Balance.Equal(decimal.NewFromInt(5)))

	// one deposit notification
	require.Len(t, f.publisher.messages, 1)
	msg := f.publisher.messages[0]
	assert.Equal(t, managed.Address, msg.Address)
	require.Len(t, msg.Transactions, 1)
	assert.Equal(t, NotificationDeposit, msg.Transactions[0].Type)
	assert.True(t, msg.Transactions[0].Amount.Equal(decimal.NewFromInt(5)))

	// cursor advanced to the confirmed block
	assert.Equal(t, int64(20), f.cursors.cursors[f.token.ID])
}

func TestPipelineNotEnoughConfirmations(t *testing.T) {
	f := newFixture(12, 1000)
	f.cursors.cursors[f.token.ID] = 500
	f.chain.head = 410 // confirmed = 398 < 501

	err := f.pipeline.Run()
	require.NoError(t, err)

	assert.Equal(t, int64(500), f.cursors.cursors[f.token.ID])
	assert.Zero(t, f.chain.logCalls, "skipped pass must not query the chain for logs")
	assert.Empty(t, f.publisher.messages)
}

func TestPipelineFetchFailureLeavesCursor(t *testing.T) {
	f := newFixture(12, 1000)
	f.cursors.cursors[f.token.ID] = 100
	f.chain.head = 200
	f.chain.logsErr = errors.New("rpc timeout")

	err := f.pipeline.Run()
	require.NoError(t, err, "token failures are contained, the pass reports and continues")

	assert.Equal(t, int64(100), f.cursors.cursors[f.token.ID])
	assert.Empty(t, f.transfers.records)
}

func TestPipelineZeroMatchesStillAdvances(t *testing.T) {
	f := newFixture(12, 1000)
	f.chain.head = 32
	f.addLog(10, 0, "0xdeadbeef", "0xA000000000000000000000000000000000000001", "0xC000000000000000000000000000000000000003", 5)

	err := f.pipeline.Run()
	require.NoError(t, err)

	assert.Empty(t, f.transfers.records, "unmatched transfers are not persisted")
	assert.Equal(t, int64(20), f.cursors.cursors[f.token.ID], "a fully read window advances even with no matches")
}

func TestPipelinePersistFailureLeavesCursor(t *testing.T) {
	f := newFixture(12, 1000)
	f.chain.head = 32

	managed := f.addWallet("0xB000000000000000000000000000000000000002")
	f.addLog(10, 0, "0xdeadbeef", "0xA000000000000000000000000000000000000001", managed.Address, 5)
	f.transfers.addErr = errors.New("disk full")

	err := f.pipeline.Run()
	require.NoError(t, err)

	assert.Zero(t, f.cursors.cursors[f.token.ID])
	assert.Empty(t, f.publisher.messages)
}

func TestPipelineRetryAfterCrashDoesNotDuplicate(t *testing.T) {
	f := newFixture(12, 1000)
	f.chain.head = 32

	managed := f.addWallet("0xB000000000000000000000000000000000000002")
	f.addLog(10, 0, "0xdeadbeef", "0xA000000000000000000000000000000000000001", managed.Address, 5)
	f.chain.balances[managed.Address] = decimal.NewFromInt(5)

	// crash between persist and advance: transfers written, cursor not moved
	f.cursors.advanceErr = errors.New("connection reset")
	require.NoError(t, f.pipeline.Run())
	require.Len(t, f.transfers.records, 1)
	assert.Zero(t, f.cursors.cursors[f.token.ID])

	// next pass re-reads the same window
	f.cursors.advanceErr = nil
	require.NoError(t, f.pipeline.Run())

	assert.Len(t, f.transfers.records, 1, "re-ingesting the window must not duplicate records")
	assert.Equal(t, int64(20), f.cursors.cursors[f.token.ID])
}

func TestPipelineWalletFailureIsolation(t *testing.T) {
	f := newFixture(12, 1000)
	f.chain.head = 32

	w1 := f.addWallet("0xB000000000000000000000000000000000000001")
	w2 := f.addWallet("0xB000000000000000000000000000000000000002")
	w3 := f.addWallet("0xB000000000000000000000000000000000000003")

	f.addLog(10, 0, "0xaaa1", "0x9000000000000000000000000000000000000009", w1.Address, 1)
	f.addLog(11, 0, "0xaaa2", "0x9000000000000000000000000000000000000009", w2.Address, 2)
	f.addLog(12, 0, "0xaaa3", "0x9000000000000000000000000000000000000009", w3.Address, 3)

	f.chain.balances[w1.Address] = decimal.NewFromInt(1)
	f.chain.balances[w3.Address] = decimal.NewFromInt(3)
	f.chain.balanceErr[w2.Address] = errors.New("rpc timeout")

	err := f.pipeline.Run()
	require.NoError(t, err)

	assert.NotNil(t, f.balances.rows[w1.ID+"|"+f.token.ID])
	assert.Nil(t, f.balances.rows[w2.ID+"|"+f.token.ID], "failed wallet is skipped for this pass")
	assert.NotNil(t, f.balances.rows[w3.ID+"|"+f.token.ID])

	assert.Len(t, f.publisher.messages, 2)

	assert.Equal(t, int64(20), f.cursors.cursors[f.token.ID], "cursor advances once all wallets were attempted")
}

func TestPipelinePublishFailureSwallowed(t *testing.T) {
	f := newFixture(12, 1000)
	f.chain.head = 32

	managed := f.addWallet("0xB000000000000000000000000000000000000002")
	f.addLog(10, 0, "0xdeadbeef", "0xA000000000000000000000000000000000000001", managed.Address, 5)
	f.chain.balances[managed.Address] = decimal.NewFromInt(5)
	f.publisher.err = errors.New("nats down")

	err := f.pipeline.Run()
	require.NoError(t, err)

	assert.NotNil(t, f.balances.rows[managed.ID+"|"+f.token.ID], "balance write happens before publish")
	assert.Equal(t, int64(20), f.cursors.cursors[f.token.ID], "publish failure never blocks cursor advancement")
}

func TestPipelineWindowClamping(t *testing.T) {
	f := newFixture(12, 50)
	f.cursors.cursors[f.token.ID] = 100
	f.chain.head = 512 // confirmed = 500, window clamped to [450, 500]

	managed := f.addWallet("0xB000000000000000000000000000000000000002")
	f.addLog(200, 0, "0xold", "0xA000000000000000000000000000000000000001", managed.Address, 1)
	f.addLog(460, 0, "0xnew", "0xA000000000000000000000000000000000000001", managed.Address, 2)
	f.chain.balances[managed.Address] = decimal.NewFromInt(2)

	err := f.pipeline.Run()
	require.NoError(t, err)

	require.Len(t, f.transfers.records, 1, "blocks outside the clamped window are not read")
	for _, rec := range f.transfers.records {
		assert.Equal(t, int64(460), rec.BlockNumber)
	}
	assert.Equal(t, int64(500), f.cursors.cursors[f.token.ID])
}
