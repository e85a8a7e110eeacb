package lib

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/horizenlabs/evmbridge/handles"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// openState is a StateDB registered with the service. StateDB is not safe for
// concurrent use, so every access holds mu.
type openState struct {
	mu      sync.Mutex
	statedb *state.StateDB
	db      *Database
}

type StateParams struct {
	DatabaseParams
	Root common.Hash `json:"root"`
}

type HandleParams struct {
	Handle int `json:"handle"`
}

type AccountParams struct {
	HandleParams
	Address common.Address `json:"address"`
}

type BalanceParams struct {
	AccountParams
	Amount *hexutil.Big `json:"amount"`
}

type NonceParams struct {
	AccountParams
	Nonce hexutil.Uint64 `json:"nonce"`
}

type CodeParams struct {
	AccountParams
	Code hexutil.Bytes `json:"code"`
}

type SlotParams struct {
	AccountParams
	Slot common.Hash `json:"slot"`
}

type StorageParams struct {
	SlotParams
	Value common.Hash `json:"value"`
}

type SnapshotParams struct {
	HandleParams
	RevisionId int `json:"revisionId"`
}

type DumpParams struct {
	HandleParams
	DumpFile string `json:"dumpFile"`
}

// withState runs fn on the state registered under handle while holding its lock.
func withState[R any](s *Service, handle int, fn func(*state.StateDB) (R, error)) (R, error) {
	st, err := s.statedbs.Get(handle)
	if err != nil {
		var empty R
		return empty, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return fn(st.statedb)
}

func toUint256(amount *hexutil.Big) (*uint256.Int, error) {
	if amount == nil {
		return nil, fmt.Errorf("%w: missing", ErrInvalidAmount)
	}
	if amount.ToInt().Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %v", ErrInvalidAmount, amount)
	}
	value, overflow := uint256.FromBig(amount.ToInt())
	if overflow {
		return nil, fmt.Errorf("%w: %v exceeds 256 bits", ErrInvalidAmount, amount)
	}
	return value, nil
}

// StateOpen creates a new state at the given root hash. A zero root gives an
// empty trie, any other root fails if its nodes cannot be found.
func (s *Service) StateOpen(params StateParams) (int, error) {
	db, err := s.databases.Get(params.DatabaseHandle)
	if err != nil {
		return 0, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return 0, fmt.Errorf("%w: %d", handles.ErrInvalidHandle, params.DatabaseHandle)
	}

	statedb, err := state.New(params.Root, db.database)
	if err != nil {
		log.Error("failed to open state", "root", params.Root, "err", err)
		return 0, err
	}
	handle := s.statedbs.Add(&openState{statedb: statedb, db: db})
	db.states.Add(handle)
	return handle, nil
}

// StateClose releases the state handle. Unknown handles are ignored.
func (s *Service) StateClose(params HandleParams) {
	st, ok := s.statedbs.Remove(params.Handle)
	if !ok {
		return
	}
	st.db.mu.Lock()
	st.db.states.Remove(params.Handle)
	st.db.mu.Unlock()
}

// StateCommit writes all changes to the database and returns the new state
// root. The handle stays valid and continues on top of the committed root.
func (s *Service) StateCommit(params HandleParams) (common.Hash, error) {
	st, err := s.statedbs.Get(params.Handle)
	if err != nil {
		return common.Hash{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	// there is no block number, hash based trie databases do not use it
	root, err := st.statedb.Commit(0, true, false)
	if err != nil {
		return common.Hash{}, err
	}
	if err := st.db.triedb.Commit(root, false); err != nil {
		return common.Hash{}, err
	}
	// a committed StateDB must not be used any further
	statedb, err := state.New(root, st.db.database)
	if err != nil {
		return common.Hash{}, err
	}
	st.statedb = statedb
	return root, nil
}

// StateDump returns all accounts of the last committed root as JSON. With a
// dump file the JSON is written to the file instead and nothing is returned.
func (s *Service) StateDump(params DumpParams) (json.RawMessage, error) {
	dump, err := withState(s, params.Handle, func(statedb *state.StateDB) ([]byte, error) {
		return statedb.Dump(&state.DumpConfig{}), nil
	})
	if err != nil {
		return nil, err
	}
	if params.DumpFile == "" {
		return dump, nil
	}
	return nil, os.WriteFile(params.DumpFile, dump, 0o644)
}

func (s *Service) StateFinalize(params HandleParams) error {
	_, err := withState(s, params.Handle, func(statedb *state.StateDB) (struct{}, error) {
		statedb.Finalise(true)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) StateIntermediateRoot(params HandleParams) (common.Hash, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (common.Hash, error) {
		return statedb.IntermediateRoot(true), nil
	})
}

// StateEmpty tests if the given account is empty: non-existent, or
// nonce == 0, balance == 0 and no code.
func (s *Service) StateEmpty(params AccountParams) (bool, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (bool, error) {
		return statedb.Empty(params.Address), nil
	})
}

func (s *Service) StateExists(params AccountParams) (bool, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (bool, error) {
		return statedb.Exist(params.Address), nil
	})
}

// StateIsEoa tests whether the account is an externally owned account: it is
// not a precompiled contract and holds no code.
func (s *Service) StateIsEoa(params AccountParams) (bool, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (bool, error) {
		if _, ok := vm.PrecompiledContractsCancun[params.Address]; ok {
			return false, nil
		}
		// non-existent accounts report the zero hash, accounts without code
		// the hash of empty code
		codeHash := statedb.GetCodeHash(params.Address)
		return codeHash == types.EmptyCodeHash || codeHash == (common.Hash{}), nil
	})
}

func (s *Service) StateGetBalance(params AccountParams) (*hexutil.Big, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (*hexutil.Big, error) {
		return (*hexutil.Big)(statedb.GetBalance(params.Address).ToBig()), nil
	})
}

func (s *Service) StateAddBalance(params BalanceParams) error {
	amount, err := toUint256(params.Amount)
	if err != nil {
		return err
	}
	_, err = withState(s, params.Handle, func(statedb *state.StateDB) (struct{}, error) {
		if _, overflow := new(uint256.Int).AddOverflow(statedb.GetBalance(params.Address), amount); overflow {
			return struct{}{}, fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
		}
		statedb.AddBalance(params.Address, amount, tracing.BalanceChangeUnspecified)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) StateSubBalance(params BalanceParams) error {
	amount, err := toUint256(params.Amount)
	if err != nil {
		return err
	}
	_, err = withState(s, params.Handle, func(statedb *state.StateDB) (struct{}, error) {
		if balance := statedb.GetBalance(params.Address); balance.Lt(amount) {
			return struct{}{}, fmt.Errorf("%w: have %v, want %v", ErrInsufficientBalance, balance, amount)
		}
		statedb.SubBalance(params.Address, amount, tracing.BalanceChangeUnspecified)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) StateSetBalance(params BalanceParams) error {
	amount, err := toUint256(params.Amount)
	if err != nil {
		return err
	}
	_, err = withState(s, params.Handle, func(statedb *state.StateDB) (struct{}, error) {
		statedb.SetBalance(params.Address, amount, tracing.BalanceChangeUnspecified)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) StateGetNonce(params AccountParams) (hexutil.Uint64, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (hexutil.Uint64, error) {
		return hexutil.Uint64(statedb.GetNonce(params.Address)), nil
	})
}

func (s *Service) StateSetNonce(params NonceParams) error {
	_, err := withState(s, params.Handle, func(statedb *state.StateDB) (struct{}, error) {
		statedb.SetNonce(params.Address, uint64(params.Nonce), tracing.NonceChangeUnspecified)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) StateGetCodeHash(params AccountParams) (common.Hash, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (common.Hash, error) {
		return statedb.GetCodeHash(params.Address), nil
	})
}

func (s *Service) StateGetCode(params AccountParams) (hexutil.Bytes, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (hexutil.Bytes, error) {
		return statedb.GetCode(params.Address), nil
	})
}

// StateSetCode sets the account code, the code hash is updated automatically.
func (s *Service) StateSetCode(params CodeParams) error {
	_, err := withState(s, params.Handle, func(statedb *state.StateDB) (struct{}, error) {
		statedb.SetCode(params.Address, params.Code)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) StateGetStorage(params SlotParams) (common.Hash, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (common.Hash, error) {
		return statedb.GetState(params.Address, params.Slot), nil
	})
}

func (s *Service) StateSetStorage(params StorageParams) error {
	_, err := withState(s, params.Handle, func(statedb *state.StateDB) (struct{}, error) {
		statedb.SetState(params.Address, params.Slot, params.Value)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) StateSnapshot(params HandleParams) (int, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (int, error) {
		return statedb.Snapshot(), nil
	})
}

// StateRevertToSnapshot reverts all changes made since the given snapshot.
// An unknown revision id is reported as an invocation error.
func (s *Service) StateRevertToSnapshot(params SnapshotParams) error {
	_, err := withState(s, params.Handle, func(statedb *state.StateDB) (struct{}, error) {
		statedb.RevertToSnapshot(params.RevisionId)
		return struct{}{}, nil
	})
	return err
}
