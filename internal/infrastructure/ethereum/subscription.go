package ethereum

import (
	"context"
	"fmt"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// ethclientDial dials a WebSocket JSON-RPC endpoint and returns the raw
// rpc.Client, shared by both the ethclient and gethclient wrappers so the
// connection itself is opened exactly once.
func ethclientDial(ctx context.Context, wssURL string) (*rpc.Client, error) {
	return rpc.DialContext(ctx, wssURL)
}

var ErrSubscriptionFailed = fmt.Errorf("Unable to subscribe to blockchain feed")

// SubscriptionClient is the WS-side collaborator: streaming new block
// headers and pending transaction hashes. It is kept separate from
// EthereumClient because subscriptions require a persistent WebSocket
// connection, distinct from the HTTP connection pool batched reads use.
type SubscriptionClient interface {
	// SubscribeNewHead streams new block headers.
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (geth.Subscription, error)

	// SubscribePendingTransactions streams pending transaction hashes.
	SubscribePendingTransactions(ctx context.Context, ch chan<- common.Hash) (geth.Subscription, error)

	// Close gracefully closes the connection.
	Close() error
}

// WSSubscriptionClient implements SubscriptionClient over a single
// long-lived WebSocket connection, shared by reference across every task
// that subscribes through it (block stream, pending-tx stream).
type WSSubscriptionClient struct {
	client     *ethclient.Client
	gethClient *gethclient.Client
	logger     *zap.Logger
	wssURL     string
}

// NewSubscriptionClient dials wssURL and returns a client ready to stream
// new heads and pending transactions.
func NewSubscriptionClient(ctx context.Context, wssURL string, logger *zap.Logger) (SubscriptionClient, error) {
	rpcClient, err := ethclientDial(ctx, wssURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	logger.Info("Created WebSocket subscription client", zap.String("url", wssURL))

	return &WSSubscriptionClient{
		client:     ethclient.NewClient(rpcClient),
		gethClient: gethclient.New(rpcClient),
		logger:     logger,
		wssURL:     wssURL,
	}, nil
}

func (c *WSSubscriptionClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (geth.Subscription, error) {
	sub, err := c.client.SubscribeNewHead(ctx, ch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscriptionFailed, err)
	}
	return sub, nil
}

func (c *WSSubscriptionClient) SubscribePendingTransactions(ctx context.Context, ch chan<- common.Hash) (geth.Subscription, error) {
	sub, err := c.gethClient.SubscribePendingTransactions(ctx, ch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscriptionFailed, err)
	}
	return sub, nil
}

func (c *WSSubscriptionClient) Close() error {
	c.client.Close()
	c.logger.Info("Closed WebSocket subscription client")
	return nil
}
