package ethrequest

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"

	wscommon "github.com/tokenledger/walletsync/internal/common"
	"github.com/tokenledger/walletsync/pkg/syncer"
)

const (
	ETHChainID = "eth_chainId"

	erc20TransferEvent = "Transfer(address,address,uint256)"

	erc20ABI = `[
		{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"},
		{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
	]`
)

// EthService reads blocks, transfer logs and token balances from an EVM
// node. It implements syncer.Chain.
type EthService struct {
	rpc    *rpc.Client
	client *ethclient.Client
	ctx    context.Context

	abi           abi.ABI
	transferTopic common.Hash
}

func NewEthService(ctx context.Context, endpoint string) (*EthService, error) {
	rpc, err := rpc.Dial(endpoint)
	if err != nil {
		return nil, err
	}

	client := ethclient.NewClient(rpc)

	contractAbi, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}

	return &EthService{
		rpc:           rpc,
		client:        client,
		ctx:           ctx,
		abi:           contractAbi,
		transferTopic: crypto.Keccak256Hash([]byte(erc20TransferEvent)),
	}, nil
}

func (e *EthService) Context() context.Context {
	return e.ctx
}

func (e *EthService) Close() {
	e.client.Close()
}

func (e *EthService) ChainID() (*big.Int, error) {
	var id string
	err := e.rpc.Call(&id, ETHChainID)
	if err != nil {
		return nil, err
	}

	chid, ok := big.NewInt(0).SetString(strip0x(id), 16)
	if !ok {
		return nil, errors.New("invalid chain id")
	}

	return chid, nil
}

func (e *EthService) LatestBlock() (int64, error) {
	blk, err := e.client.HeaderByNumber(e.ctx, nil)
	if err != nil {
		return 0, err
	}

	return blk.Number.Int64(), nil
}

func (e *EthService) BlockTime(number int64) (time.Time, error) {
	blk, err := e.client.HeaderByNumber(e.ctx, big.NewInt(number))
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(int64(blk.Time), 0).UTC(), nil
}

// TransferLogs returns the token's Transfer events in the inclusive window,
// in the node's (blockNumber, logIndex) order, with addresses normalized.
// Block timestamps are stamped by the caller for the whole window.
func (e *EthService) TransferLogs(token *syncer.Token, fromBlock, toBlock int64) ([]*syncer.Transfer, error) {
	err := wscommon.ValidateAddress(token.Address)
	if err != nil {
		return nil, err
	}

	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(fromBlock),
		ToBlock:   big.NewInt(toBlock),
		Addresses: []common.Address{common.HexToAddress(token.Address)},
		Topics:    [][]common.Hash{{e.transferTopic}},
	}

	logs, err := e.client.FilterLogs(e.ctx, query)
	if err != nil {
		return nil, err
	}

	txs := make([]*syncer.Transfer, 0, len(logs))
	for _, l := range logs {
		tx, err := e.parseTransferLog(token, l)
		if err != nil {
			return nil, err
		}

		txs = append(txs, tx)
	}

	return txs, nil
}

func (e *EthService) parseTransferLog(token *syncer.Token, l types.Log) (*syncer.Transfer, error) {
	if len(l.Topics) < 3 {
		return nil, errors.New("malformed transfer log: missing topics")
	}

	var ev struct {
		Value *big.Int
	}

	err := e.abi.UnpackIntoInterface(&ev, "Transfer", l.Data)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}

	return &syncer.Transfer{
		TokenID:     token.ID,
		Network:     token.Network,
		BlockNumber: int64(l.BlockNumber),
		LogIndex:    l.Index,
		TxHash:      l.TxHash.Hex(),
		From:        wscommon.NormalizeAddress(common.HexToAddress(l.Topics[1].Hex()).Hex()),
		To:          wscommon.NormalizeAddress(common.HexToAddress(l.Topics[2].Hex()).Hex()),
		Amount:      wscommon.TokenAmount(ev.Value, token.Decimals),
		Data:        raw,
	}, nil
}

// TokenBalance calls balanceOf at the given block and converts the raw value
// to a token-native decimal amount.
func (e *EthService) TokenBalance(token *syncer.Token, owner string, atBlock int64) (decimal.Decimal, error) {
	err := wscommon.ValidateAddress(token.Address)
	if err != nil {
		return decimal.Zero, err
	}

	err = wscommon.ValidateAddress(owner)
	if err != nil {
		return decimal.Zero, err
	}

	data, err := e.abi.Pack("balanceOf", common.HexToAddress(owner))
	if err != nil {
		return decimal.Zero, err
	}

	contract := common.HexToAddress(token.Address)

	res, err := e.client.CallContract(e.ctx, ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}, big.NewInt(atBlock))
	if err != nil {
		return decimal.Zero, err
	}

	values, err := e.abi.Unpack("balanceOf", res)
	if err != nil {
		return decimal.Zero, err
	}

	balance, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Zero, errors.New("unexpected balanceOf return type")
	}

	return wscommon.TokenAmount(balance, token.Decimals), nil
}

func strip0x(s string) string {
	return strings.Replace(s, "0x", "", 1)
}
