package refresh

import (
	"context"
	"math/big"
	"testing"

	"triarb/internal/core/pool"
	"triarb/internal/infrastructure/uniswap_v2"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeEthereumClient implements ethereum.EthereumClient with canned log
// responses, enough to exercise TouchedReserves without a network.
type fakeEthereumClient struct {
	logs []types.Log
	err  error
}

func (f *fakeEthereumClient) GetLatestBlockNumber(ctx context.Context) (uint64, error) { return 0, nil }
func (f *fakeEthereumClient) ReadContractStorage(ctx context.Context, addr common.Address, key common.Hash, bn *big.Int) ([]byte, error) {
	return nil, nil
}
func (f *fakeEthereumClient) CallContract(ctx context.Context, msg geth.CallMsg, bn *big.Int) ([]byte, error) {
	return nil, nil
}
func (f *fakeEthereumClient) FilterLogs(ctx context.Context, q geth.FilterQuery) ([]types.Log, error) {
	return f.logs, f.err
}
func (f *fakeEthereumClient) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return nil, false, nil
}
func (f *fakeEthereumClient) Close() error                                 { return nil }
func (f *fakeEthereumClient) CheckConnectionHealth(ctx context.Context) bool { return true }

func syncData(r0, r1 int64) []byte {
	data := make([]byte, 64)
	new(big.Int).SetInt64(r0).FillBytes(data[0:32])
	new(big.Int).SetInt64(r1).FillBytes(data[32:64])
	return data
}

func TestTouchedReserves_LatestTxIndexWins(t *testing.T) {
	poolAddr := common.HexToAddress("0xAAAA")

	client := &fakeEthereumClient{
		logs: []types.Log{
			{Address: poolAddr, Data: syncData(100, 200), TxIndex: 1, Index: 0},
			{Address: poolAddr, Data: syncData(150, 250), TxIndex: 3, Index: 0}, // latest, should win
			{Address: poolAddr, Data: syncData(999, 999), TxIndex: 2, Index: 5},
		},
	}

	changes, err := TouchedReserves(context.Background(), client, 12345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, ok := changes[poolAddr]
	if !ok {
		t.Fatal("expected an entry for poolAddr")
	}
	if r.Reserve0.Cmp(big.NewInt(150)) != 0 || r.Reserve1.Cmp(big.NewInt(250)) != 0 {
		t.Errorf("expected reserves from the highest tx index (150,250), got (%s,%s)", r.Reserve0, r.Reserve1)
	}
}

func TestTouchedReserves_TieBreaksOnLogIndex(t *testing.T) {
	poolAddr := common.HexToAddress("0xBBBB")

	client := &fakeEthereumClient{
		logs: []types.Log{
			{Address: poolAddr, Data: syncData(1, 1), TxIndex: 5, Index: 0},
			{Address: poolAddr, Data: syncData(2, 2), TxIndex: 5, Index: 3}, // same tx, higher log index wins
		},
	}

	changes, err := TouchedReserves(context.Background(), client, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := changes[poolAddr]
	if r.Reserve0.Cmp(big.NewInt(2)) != 0 {
		t.Errorf("expected reserve0=2 from the higher log index, got %s", r.Reserve0)
	}
}

func TestTouchedReserves_SkipsMalformedLogs(t *testing.T) {
	poolAddr := common.HexToAddress("0xCCCC")

	client := &fakeEthereumClient{
		logs: []types.Log{
			{Address: poolAddr, Data: []byte{0x01, 0x02}, TxIndex: 1}, // too short, must be skipped
		},
	}

	changes, err := TouchedReserves(context.Background(), client, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("expected malformed log to be skipped, got %d entries", len(changes))
	}
}

func TestBulkFetch_EmptyPools(t *testing.T) {
	client := &fakeEthereumClient{}
	uniClient := uniswap_v2.NewUniswapV2Client(client, nil)

	store, err := BulkFetch(context.Background(), uniClient, nil, 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", store.Len())
	}
}

func TestBulkFetch_BatchCountMatchesPoolCount(t *testing.T) {
	pools := make([]pool.Pool, 7)
	for i := range pools {
		pools[i] = pool.Pool{Address: common.BigToAddress(big.NewInt(int64(i + 1)))}
	}

	// A failing storage read surfaces as a batch error; since our fake
	// client returns nil data (parsed as zero reserves), LoadReserves
	// will fail with ErrInsufficientLiquidity for every pool. This test
	// only checks that BulkFetch propagates that failure rather than
	// silently returning a partial store.
	client := &fakeEthereumClient{}
	uniClient := uniswap_v2.NewUniswapV2Client(client, nil)

	_, err := BulkFetch(context.Background(), uniClient, pools, 3)
	if err == nil {
		t.Error("expected an error from zero-reserve pools")
	}
}
