package lib

import (
	"errors"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

type Invocation struct {
	Caller   common.Address  `json:"caller"`
	Callee   *common.Address `json:"callee"`
	Value    *hexutil.Big    `json:"value"`
	Input    hexutil.Bytes   `json:"input"`
	Gas      hexutil.Uint64  `json:"gas"`
	ReadOnly bool            `json:"readOnly"`
}

type InvocationResult struct {
	ReturnData      hexutil.Bytes   `json:"returnData"`
	UsedGas         hexutil.Uint64  `json:"usedGas"`
	LeftOverGas     hexutil.Uint64  `json:"leftOverGas"`
	ExecutionError  string          `json:"executionError"`
	Reverted        bool            `json:"reverted"`
	ContractAddress *common.Address `json:"contractAddress"`
}

// EvmContext describes the block an invocation is executed in. Omitted
// values get defaults, see setDefaults.
type EvmContext struct {
	ChainID           hexutil.Uint64     `json:"chainID"`
	Coinbase          common.Address     `json:"coinbase"`
	GasLimit          hexutil.Uint64     `json:"gasLimit"`
	GasPrice          *hexutil.Big       `json:"gasPrice"`
	BlockNumber       *hexutil.Big       `json:"blockNumber"`
	Time              hexutil.Uint64     `json:"time"`
	BaseFee           *hexutil.Big       `json:"baseFee"`
	Random            *common.Hash       `json:"random"`
	BlockHashCallback *BlockHashCallback `json:"blockHashCallback"`
	Tracer            *int               `json:"tracer"`
}

type EvmParams struct {
	HandleParams
	Invocation Invocation `json:"invocation"`
	Context    EvmContext `json:"context"`
}

func (c *EvmContext) setDefaults() {
	if c.GasLimit == 0 {
		c.GasLimit = math.MaxInt64
	}
	if c.GasPrice == nil {
		c.GasPrice = (*hexutil.Big)(new(big.Int))
	}
	if c.BlockNumber == nil {
		c.BlockNumber = (*hexutil.Big)(new(big.Int))
	}
	if c.Time == 0 {
		c.Time = hexutil.Uint64(time.Now().Unix())
	}
	if c.BaseFee == nil {
		c.BaseFee = (*hexutil.Big)(new(big.Int))
	}
}

func (i *Invocation) setDefaults(ctx *EvmContext) {
	if i.Value == nil {
		i.Value = (*hexutil.Big)(new(big.Int))
	}
	if i.Gas == 0 {
		i.Gas = ctx.GasLimit
	}
}

// chainConfig enables all forks up to London from genesis.
func (c *EvmContext) chainConfig() *params.ChainConfig {
	return &params.ChainConfig{
		ChainID:             new(big.Int).SetUint64(uint64(c.ChainID)),
		HomesteadBlock:      common.Big0,
		EIP150Block:         common.Big0,
		EIP155Block:         common.Big0,
		EIP158Block:         common.Big0,
		ByzantiumBlock:      common.Big0,
		ConstantinopleBlock: common.Big0,
		PetersburgBlock:     common.Big0,
		IstanbulBlock:       common.Big0,
		MuirGlacierBlock:    common.Big0,
		BerlinBlock:         common.Big0,
		LondonBlock:         common.Big0,
	}
}

func (c *EvmContext) blockContext(s *Service) vm.BlockContext {
	return vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash: func(number uint64) common.Hash {
			return s.BlockHash(BlockHashParams{Callback: c.BlockHashCallback, Number: hexutil.Uint64(number)})
		},
		Coinbase:    c.Coinbase,
		GasLimit:    uint64(c.GasLimit),
		BlockNumber: c.BlockNumber.ToInt(),
		Time:        uint64(c.Time),
		Difficulty:  common.Big0,
		BaseFee:     c.BaseFee.ToInt(),
		Random:      c.Random,
	}
}

// EvmApply executes the invocation as a message on the given state: the
// caller's nonce is checked and incremented, gas is bought at the context's
// gas price and a missing callee deploys a contract. Read-only invocations
// revert all state changes afterwards. Consensus failures such as
// insufficient funds are returned as error, EVM failures are reported in the
// result.
func (s *Service) EvmApply(params EvmParams) (*InvocationResult, error) {
	ctx := params.Context
	ctx.setDefaults()
	inv := params.Invocation
	inv.setDefaults(&ctx)

	var tracer *evmTracer
	if ctx.Tracer != nil {
		var err error
		if tracer, err = s.tracers.Get(*ctx.Tracer); err != nil {
			return nil, err
		}
		tracer.mu.Lock()
		defer tracer.mu.Unlock()
	}
	return withState(s, params.Handle, func(statedb *state.StateDB) (*InvocationResult, error) {
		return s.apply(statedb, &ctx, &inv, tracer)
	})
}

func (s *Service) apply(statedb *state.StateDB, ctx *EvmContext, inv *Invocation, tracer *evmTracer) (*InvocationResult, error) {
	vmConfig := vm.Config{NoBaseFee: true}
	if tracer != nil {
		vmConfig.Tracer = tracer.hooks
	}
	evm := vm.NewEVM(ctx.blockContext(s), statedb, ctx.chainConfig(), vmConfig)

	gasPrice := ctx.GasPrice.ToInt()
	msg := &core.Message{
		To:        inv.Callee,
		From:      inv.Caller,
		Nonce:     statedb.GetNonce(inv.Caller),
		Value:     inv.Value.ToInt(),
		GasLimit:  uint64(inv.Gas),
		GasPrice:  gasPrice,
		GasFeeCap: gasPrice,
		GasTipCap: gasPrice,
		Data:      inv.Input,
	}
	if inv.ReadOnly {
		snapshot := statedb.Snapshot()
		defer statedb.RevertToSnapshot(snapshot)
	}

	evm.SetTxContext(core.NewEVMTxContext(msg))
	if tracer != nil && tracer.hooks.OnTxStart != nil {
		tx := types.NewTx(&types.LegacyTx{
			Nonce:    msg.Nonce,
			GasPrice: msg.GasPrice,
			Gas:      msg.GasLimit,
			To:       msg.To,
			Value:    msg.Value,
			Data:     msg.Data,
		})
		tracer.hooks.OnTxStart(evm.GetVMContext(), tx, msg.From)
	}
	result, err := core.ApplyMessage(evm, msg, new(core.GasPool).AddGas(uint64(ctx.GasLimit)))
	if tracer != nil && tracer.hooks.OnTxEnd != nil {
		if err != nil {
			tracer.hooks.OnTxEnd(nil, err)
		} else {
			tracer.hooks.OnTxEnd(&types.Receipt{GasUsed: result.UsedGas}, nil)
		}
	}
	if err != nil {
		return nil, err
	}

	res := &InvocationResult{
		ReturnData:  result.ReturnData,
		UsedGas:     hexutil.Uint64(result.UsedGas),
		LeftOverGas: hexutil.Uint64(msg.GasLimit - result.UsedGas),
		Reverted:    errors.Is(result.Err, vm.ErrExecutionReverted),
	}
	if result.Err != nil {
		res.ExecutionError = result.Err.Error()
	}
	if msg.To == nil {
		address := crypto.CreateAddress(msg.From, msg.Nonce)
		res.ContractAddress = &address
		// on success the return data is the deployed code
		if !res.Reverted {
			res.ReturnData = nil
		}
	}
	if res.ReturnData == nil {
		res.ReturnData = hexutil.Bytes{}
	}
	return res, nil
}
