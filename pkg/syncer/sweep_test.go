package syncer

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperRun(t *testing.T) {
	f := newFixture(12, 1000)
	f.chain.head = 32

	wallet := f.addWallet("0xB000000000000000000000000000000000000002")
	f.chain.balances[wallet.Address] = decimal.NewFromInt(7)

	f.balances.rows[wallet.ID+"|"+f.token.ID] = &Balance{
		WalletID:         wallet.ID,
		TokenID:          f.token.ID,
		Balance:          decimal.NewFromInt(1),
		PendingRecompute: 2,
	}

	s := NewSweeper("ropsten", 12, f.chain, f.balances, f.tokens)

	swept, err := s.Run()
	require.NoError(t, err)
	assert.True(t, swept)

	row := f.balances.rows[wallet.ID+"|"+f.token.ID]
	assert.True(t, row.Balance.Equal(decimal.NewFromInt(7)))
	assert.Zero(t, row.PendingRecompute, "the flag clears with the balance write")

	// second sweep finds nothing pending
	swept, err = s.Run()
	require.NoError(t, err)
	assert.False(t, swept)
}

func TestSweeperChainFailureKeepsPending(t *testing.T) {
	f := newFixture(12, 1000)
	f.chain.head = 32

	wallet := f.addWallet("0xB000000000000000000000000000000000000002")
	f.chain.balanceErr[wallet.Address] = errors.New("rpc timeout")

	f.balances.rows[wallet.ID+"|"+f.token.ID] = &Balance{
		WalletID:         wallet.ID,
		TokenID:          f.token.ID,
		PendingRecompute: 1,
	}

	s := NewSweeper("ropsten", 12, f.chain, f.balances, f.tokens)

	swept, err := s.Run()
	assert.False(t, swept)
	assert.Error(t, err)

	row := f.balances.rows[wallet.ID+"|"+f.token.ID]
	assert.Equal(t, 1, row.PendingRecompute, "a failed recompute leaves the flag for the next sweep")
}
