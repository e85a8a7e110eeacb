package lib

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
)

type AccessParams struct {
	AccountParams
	Coinbase    common.Address   `json:"coinbase"`
	Destination *common.Address  `json:"destination"`
	AccessList  types.AccessList `json:"accessList"`
}

// AccessSetup resets the access list for a new transaction from the account
// to destination: sender, destination, precompiles and the given access list
// start out warm.
func (s *Service) AccessSetup(params AccessParams) error {
	_, err := withState(s, params.Handle, func(statedb *state.StateDB) (struct{}, error) {
		rules := new(EvmContext).chainConfig().Rules(common.Big0, false, 0)
		statedb.Prepare(rules, params.Address, params.Coinbase, params.Destination, vm.ActivePrecompiles(rules), params.AccessList)
		return struct{}{}, nil
	})
	return err
}

// AccessAccount marks the account as accessed and reports whether it was
// warm already.
func (s *Service) AccessAccount(params AccountParams) (bool, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (bool, error) {
		warm := statedb.AddressInAccessList(params.Address)
		if !warm {
			statedb.AddAddressToAccessList(params.Address)
		}
		return warm, nil
	})
}

// AccessSlot marks the storage slot as accessed and reports whether it was
// warm already.
func (s *Service) AccessSlot(params SlotParams) (bool, error) {
	return withState(s, params.Handle, func(statedb *state.StateDB) (bool, error) {
		_, warm := statedb.SlotInAccessList(params.Address, params.Slot)
		if !warm {
			statedb.AddSlotToAccessList(params.Address, params.Slot)
		}
		return warm, nil
	})
}
