package services

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// weiPerEther as a decimal exponent: 1 ETH = 10^18 wei.
const etherDecimals = 18

// ChainReader reads on-chain balances for linked wallets over JSON-RPC.
// Pure I/O shim: any RPC failure surfaces as ErrUnavailable.
type ChainReader struct {
	client *ethclient.Client
}

func NewChainReader(rpcURL string) (*ChainReader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	return &ChainReader{client: client}, nil
}

// Balance returns the latest native-token balance of address in whole
// coins.
func (r *ChainReader) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, fmt.Errorf("%w: %q is not a hex address", ErrInvalid, address)
	}
	wei, err := r.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: balance query failed: %v", ErrUnavailable, err)
	}
	return decimal.NewFromBigInt(wei, -etherDecimals), nil
}

func (r *ChainReader) Close() {
	r.client.Close()
}
