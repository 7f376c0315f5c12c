package uniswap_v2

import (
	"context"
	"fmt"
	"math/big"

	"triarb/internal/infrastructure/ethereum"
	"triarb/internal/shared/utils"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const UniswapV2ReservesStorageSlot = 8

var ErrInsufficientLiquidity = fmt.Errorf("Insufficient liquidity in pool")

// UniswapV2Client defines the interface for Uniswap V2 operations
type UniswapV2Client interface {
	// ReadStorageSlot reads a storage slot from the contract
	ReadStorageSlot(ctx context.Context, pool common.Address, blockNum *big.Int, slot uint64) ([]byte, error)

	// GetLatestBlockNumber returns the number of the latest block
	GetLatestBlockNumber(ctx context.Context) (uint64, error)

	// LoadReserves reads reserves from Uniswap V2 pair storage
	LoadReserves(ctx context.Context, pool common.Address, blockNum *big.Int) (*big.Int, *big.Int, error)
}

// UniswapV2ClientImpl implements Uniswap V2 operations
type UniswapV2ClientImpl struct {
	client ethereum.EthereumClient
	logger *zap.Logger
}

// NewUniswapV2Client creates a new Uniswap V2 client
func NewUniswapV2Client(client ethereum.EthereumClient, logger *zap.Logger) UniswapV2Client {
	return &UniswapV2ClientImpl{
		client: client,
		logger: logger,
	}
}

// ReadStorageSlot reads a storage slot from the contract
func (c *UniswapV2ClientImpl) ReadStorageSlot(ctx context.Context, pool common.Address, blockNum *big.Int, slot uint64) ([]byte, error) {
	var key common.Hash
	key[31] = byte(slot)
	return c.client.ReadContractStorage(ctx, pool, key, blockNum)
}

// GetLatestBlockNumber returns the number of the latest block
func (c *UniswapV2ClientImpl) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.client.GetLatestBlockNumber(ctx)
}

// LoadReserves reads reserves from Uniswap V2 pair storage
func (c *UniswapV2ClientImpl) LoadReserves(ctx context.Context, pool common.Address, blockNum *big.Int) (*big.Int, *big.Int, error) {
	reserveData, err := c.ReadStorageSlot(ctx, pool, blockNum, UniswapV2ReservesStorageSlot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read reserves: %w", err)
	}

	reserve0, reserve1 := utils.ParseReserves(reserveData)

	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		return nil, nil, fmt.Errorf("%w for pool %s", ErrInsufficientLiquidity, pool.Hex())
	}

	return reserve0, reserve1, nil
}
