package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// curveABIJSON is the read surface of a deployed bonding-curve market
// contract. The full contract is externally owned; only the views used by
// the engine are bound here.
const curveABIJSON = `[
	{"type":"function","name":"getCurrentPrice","stateMutability":"view","inputs":[{"name":"weight","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalLockedValue","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"initializedAt","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tradingDuration","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"redemptionDuration","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// trackerABIJSON is the read surface of the reward-tracking contract: the
// pool liquidity requirement that gates post-expiry redemption, the raw
// locked value used by award sizing, and the per-item reward ledger tuple.
const trackerABIJSON = `[
	{"type":"function","name":"getNFTLiquidityRequirement","stateMutability":"view","inputs":[{"name":"market","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"lockedValueOf","stateMutability":"view","inputs":[{"name":"market","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"ledgerEntry","stateMutability":"view","inputs":[{"name":"market","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"weight","type":"uint256"},{"name":"purchasePrice","type":"uint256"},{"name":"purchaseTime","type":"uint256"},{"name":"isActive","type":"bool"},{"name":"accrued","type":"uint256"}]}
]`

var (
	curveABI   abi.ABI
	trackerABI abi.ABI
)

func init() {
	var err error
	if curveABI, err = abi.JSON(strings.NewReader(curveABIJSON)); err != nil {
		panic(fmt.Sprintf("chain: parse curve abi: %v", err))
	}
	if trackerABI, err = abi.JSON(strings.NewReader(trackerABIJSON)); err != nil {
		panic(fmt.Sprintf("chain: parse tracker abi: %v", err))
	}
}

// toAddressArg converts a hex market address into the ABI argument form.
func toAddressArg(addr string) common.Address {
	return common.HexToAddress(addr)
}

// bindCurve binds the curve read surface at the given market address.
func bindCurve(addr string, eth *ethclient.Client) *bind.BoundContract {
	return bind.NewBoundContract(common.HexToAddress(addr), curveABI, eth, nil, nil)
}

// bindTracker binds the tracker read surface at the given address.
func bindTracker(addr string, eth *ethclient.Client) *bind.BoundContract {
	return bind.NewBoundContract(common.HexToAddress(addr), trackerABI, eth, nil, nil)
}
