package chain

import (
	"context"
	"fmt"

	rpcclient "github.com/cometbft/cometbft/rpc/client"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
)

// HeightClient reads the latest block height from a CometBFT node.
type HeightClient struct {
	rpc rpcclient.StatusClient
}

// NewHeightClient connects to the CometBFT RPC endpoint at remote.
func NewHeightClient(remote string) (*HeightClient, error) {
	if remote == "" {
		return nil, ErrEmptyEndpoint
	}
	client, err := rpchttp.New(remote, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client for %s: %w", remote, err)
	}
	return &HeightClient{rpc: client}, nil
}

// LatestHeight returns the node's latest committed block height.
func (c *HeightClient) LatestHeight(ctx context.Context) (int64, error) {
	status, err := c.rpc.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to query node status: %w", err)
	}
	if status == nil || status.SyncInfo.LatestBlockHeight <= 0 {
		return 0, fmt.Errorf("%w: node reported no blocks", ErrInvalidBlockHeight)
	}
	return status.SyncInfo.LatestBlockHeight, nil
}
