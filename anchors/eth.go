package anchors

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// ErrWriteNotSupported marks the read-only Ethereum client. Writing an
// anchor needs a funded signing backend, which lives outside the engine.
var ErrWriteNotSupported = errors.New(
	"eth anchor client is read-only, use an external writer")

// EthClient reads anchored digests from Ethereum-family chains. The digest
// is expected in the calldata of the anchoring transaction, as written by
// whatever external writer produced the Ref.
type EthClient struct {
	chainID string
	cli     *ethclient.Client
}

// NewEthClient wraps a connected ethclient for the given chain id.
func NewEthClient(chainID string, cli *ethclient.Client) *EthClient {
	return &EthClient{chainID: chainID, cli: cli}
}

func (c *EthClient) Write(context.Context, string) (Ref, error) {
	return Ref{}, ErrWriteNotSupported
}

func (c *EthClient) Read(ctx context.Context, ref Ref) (string, error) {
	if ref.ChainID != c.chainID {
		return "", errors.Errorf("ref chain %q does not match client chain %q",
			ref.ChainID, c.chainID)
	}

	tx, pending, err := c.cli.TransactionByHash(ctx, common.HexToHash(ref.TxID))
	if err != nil {
		return "", errors.WithMessagef(err, "fetch anchor tx %s", ref.TxID)
	}
	if pending {
		return "", errors.Errorf("anchor tx %s is not yet mined", ref.TxID)
	}

	data := tx.Data()
	if len(data) == 0 {
		return "", errors.Errorf("anchor tx %s carries no calldata", ref.TxID)
	}
	return string(data), nil
}
