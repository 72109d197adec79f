package syncer

import (
	"github.com/tokenledger/walletsync/internal/common"
)

// TransferAddresses collects the unique from/to addresses of a batch of
// transfers, lowercased, for the managed-wallet reverse lookup.
func TransferAddresses(txs []*Transfer) []string {
	seen := map[string]struct{}{}
	addrs := []string{}

	for _, t := range txs {
		for _, a := range []string{common.NormalizeAddress(t.From), common.NormalizeAddress(t.To)} {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			addrs = append(addrs, a)
		}
	}

	return addrs
}

// FilterByWallets returns the transfers that touch at least one of the given
// wallets on either side. Deposits match on to, withdrawals on from.
func FilterByWallets(txs []*Transfer, wallets []*Wallet) []*Transfer {
	managed := map[string]struct{}{}
	for _, w := range wallets {
		managed[common.NormalizeAddress(w.Address)] = struct{}{}
	}

	matched := []*Transfer{}
	for _, t := range txs {
		_, from := managed[common.NormalizeAddress(t.From)]
		_, to := managed[common.NormalizeAddress(t.To)]
		if from || to {
			matched = append(matched, t)
		}
	}

	return matched
}

// FilterByAddress returns the transfers that touch a single wallet address.
func FilterByAddress(txs []*Transfer, address string) []*Transfer {
	addr := common.NormalizeAddress(address)

	filtered := []*Transfer{}
	for _, t := range txs {
		if common.NormalizeAddress(t.From) == addr || common.NormalizeAddress(t.To) == addr {
			filtered = append(filtered, t)
		}
	}

	return filtered
}
