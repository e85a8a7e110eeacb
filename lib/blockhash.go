package lib

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

// BlockHashCallback asks the host for the hash of a historical block.
type BlockHashCallback struct{ Callback }

// BlockHash returns the hash of the given block number. Without a callback
// a deterministic mock hash is returned, keccak256 of the decimal number.
func (c *BlockHashCallback) BlockHash(number uint64) common.Hash {
	blockNumber := new(big.Int).SetUint64(number)
	if c == nil {
		return crypto.Keccak256Hash([]byte(blockNumber.String()))
	}
	var hash common.Hash
	if err := c.Invoke((*hexutil.Big)(blockNumber), &hash); err != nil {
		log.Error("block hash callback failed", "number", number, "err", err)
		return common.Hash{}
	}
	return hash
}
