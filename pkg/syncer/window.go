package syncer

// NextWindow computes the next safe inclusive block window to read.
//
// fromBlock starts right after the last read block, or at 0 on the first
// pass. The window is clamped to maxWindow blocks from the top: a token that
// fell far behind catches up over repeated passes rather than in one huge
// read. An empty window (fromBlock > toBlock) means the chain tip does not
// have enough confirmations yet; the caller skips the pass without error.
func NextWindow(lastReadBlock, lastConfirmedBlock, maxWindow int64) (fromBlock, toBlock int64, ok bool) {
	fromBlock = 0
	if lastReadBlock != 0 {
		fromBlock = lastReadBlock + 1
	}

	toBlock = lastConfirmedBlock

	if toBlock-fromBlock > maxWindow {
		fromBlock = toBlock - maxWindow
		if fromBlock < 0 {
			fromBlock = 0
		}
	}

	return fromBlock, toBlock, fromBlock <= toBlock
}
