package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BitmapABI covers the tick bitmap reads used to build the live book.
const BitmapABI = `[
  {"type":"function","name":"topNBestTicks","stateMutability":"view",
   "inputs":[{"name":"isBuy","type":"bool"}],
   "outputs":[{"name":"","type":"int256[]"}]},
  {"type":"function","name":"getCurrentTick","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"int256"}]}
]`

// EngineABI covers order placement and its confirmation event.
const EngineABI = `[
  {"type":"function","name":"placeOrder","stateMutability":"nonpayable",
   "inputs":[
     {"name":"tick","type":"int256"},
     {"name":"volume","type":"uint256"},
     {"name":"user","type":"address"},
     {"name":"isBuy","type":"bool"},
     {"name":"isMarket","type":"bool"}],
   "outputs":[]},
  {"type":"event","name":"PlaceOrder","anonymous":false,
   "inputs":[
     {"name":"user","type":"address","indexed":true},
     {"name":"tick","type":"int256","indexed":false},
     {"name":"orderIndex","type":"uint256","indexed":false},
     {"name":"isBuy","type":"bool","indexed":false},
     {"name":"isMarket","type":"bool","indexed":false},
     {"name":"volume","type":"uint256","indexed":false},
     {"name":"remainingVolume","type":"uint256","indexed":false}]}
]`

const (
	methodTopNBestTicks  = "topNBestTicks"
	methodGetCurrentTick = "getCurrentTick"
	methodPlaceOrder     = "placeOrder"
	eventPlaceOrder      = "PlaceOrder"
)

var (
	bitmapABI = mustParse(BitmapABI)
	engineABI = mustParse(EngineABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
