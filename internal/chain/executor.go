package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	pkgerrors "github.com/pkg/errors"

	"github.com/zappabad/liquidbook/internal/logger"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

var (
	// ErrOrderRejected means the transaction was mined but reverted.
	ErrOrderRejected = errors.New("order rejected")
	// ErrPlaceOrderEventNotFound means the receipt carried no PlaceOrder event.
	ErrPlaceOrderEventNotFound = errors.New("PlaceOrder event not found in transaction logs")
	// ErrInvalidOrder is returned before anything is sent.
	ErrInvalidOrder = errors.New("invalid order")
)

// Backend is what the executor needs from a node connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// OrderRequest holds the placeOrder arguments. Volume is in raw integer units.
type OrderRequest struct {
	Tick   core.Tick
	Volume *big.Int
	User   common.Address
	Side   core.Side
	Kind   core.OrderKind
}

// PlaceOrderResult is decoded from the PlaceOrder event.
type PlaceOrderResult struct {
	TxHash          common.Hash
	BlockNumber     uint64
	OrderIndex      *big.Int
	ExecutedTick    core.Tick
	RemainingVolume *big.Int
}

// Executor submits orders to the engine contract.
type Executor struct {
	contract       *bind.BoundContract
	backend        Backend
	auth           *bind.TransactOpts
	receiptTimeout time.Duration
	log            logger.Interface
}

// NewExecutor binds the engine at address. auth signs transactions.
func NewExecutor(address common.Address, backend Backend, auth *bind.TransactOpts, receiptTimeout time.Duration, log logger.Interface) *Executor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Executor{
		contract:       bind.NewBoundContract(address, engineABI, backend, backend, backend),
		backend:        backend,
		auth:           auth,
		receiptTimeout: receiptTimeout,
		log:            log.WithFields(logger.NewField("component", "executor")),
	}
}

// Account returns the signing address.
func (e *Executor) Account() common.Address { return e.auth.From }

// PlaceOrder sends placeOrder, waits for the receipt and decodes the result.
func (e *Executor) PlaceOrder(ctx context.Context, req OrderRequest) (PlaceOrderResult, error) {
	if req.Volume == nil || req.Volume.Sign() <= 0 {
		return PlaceOrderResult{}, fmt.Errorf("%w: volume must be positive", ErrInvalidOrder)
	}
	if req.User == (common.Address{}) {
		req.User = e.auth.From
	}

	opts := *e.auth
	opts.Context = ctx
	tx, err := e.contract.Transact(&opts, methodPlaceOrder,
		big.NewInt(int64(req.Tick)), req.Volume, req.User, req.Side.IsBuy(), req.Kind == core.OrderKindMarket)
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("send %s: %w", methodPlaceOrder, err)
	}
	e.log.InfoContext(ctx, "order sent",
		logger.NewField("tx", tx.Hash().Hex()),
		logger.NewField("tick", int64(req.Tick)),
		logger.NewField("side", req.Side.String()),
		logger.NewField("kind", req.Kind.String()))

	waitCtx := ctx
	if e.receiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, e.receiptTimeout)
		defer cancel()
	}
	receipt, err := bind.WaitMined(waitCtx, e.backend, tx)
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}

	res, err := DecodePlaceOrder(receipt)
	if err != nil {
		e.log.ErrorContext(ctx, err, logger.NewField("tx", tx.Hash().Hex()))
		return PlaceOrderResult{}, err
	}
	return res, nil
}

type placeOrderEvent struct {
	User            common.Address
	Tick            *big.Int
	OrderIndex      *big.Int
	IsBuy           bool
	IsMarket        bool
	Volume          *big.Int
	RemainingVolume *big.Int
}

// DecodePlaceOrder extracts the PlaceOrder event from a receipt. A reverted
// receipt yields ErrOrderRejected and a receipt without the event yields
// ErrPlaceOrderEventNotFound.
func DecodePlaceOrder(receipt *types.Receipt) (PlaceOrderResult, error) {
	if receipt == nil {
		return PlaceOrderResult{}, pkgerrors.WithStack(ErrPlaceOrderEventNotFound)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return PlaceOrderResult{}, pkgerrors.WithStack(fmt.Errorf("%w: tx %s reverted", ErrOrderRejected, receipt.TxHash.Hex()))
	}

	event := engineABI.Events[eventPlaceOrder]
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	for _, lg := range receipt.Logs {
		if lg == nil || len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		var ev placeOrderEvent
		if err := engineABI.UnpackIntoInterface(&ev, eventPlaceOrder, lg.Data); err != nil {
			continue
		}
		if err := abi.ParseTopics(&ev, indexed, lg.Topics[1:]); err != nil {
			continue
		}
		tick, err := toTick(ev.Tick)
		if err != nil {
			continue
		}
		return PlaceOrderResult{
			TxHash:          receipt.TxHash,
			BlockNumber:     blockNumber(receipt),
			OrderIndex:      ev.OrderIndex,
			ExecutedTick:    tick,
			RemainingVolume: ev.RemainingVolume,
		}, nil
	}
	return PlaceOrderResult{}, pkgerrors.WithStack(fmt.Errorf("%w: tx %s", ErrPlaceOrderEventNotFound, receipt.TxHash.Hex()))
}

func blockNumber(r *types.Receipt) uint64 {
	if r.BlockNumber == nil {
		return 0
	}
	return r.BlockNumber.Uint64()
}

// Describe turns a write-path error into a message for the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOrderRejected):
		return "Order rejected: the engine reverted the transaction"
	case errors.Is(err, ErrPlaceOrderEventNotFound):
		return "Order not found: no PlaceOrder event in the receipt"
	case errors.Is(err, ErrInvalidOrder):
		return "Invalid order: " + strings.TrimPrefix(err.Error(), ErrInvalidOrder.Error()+": ")
	case errors.Is(err, context.DeadlineExceeded):
		return "Order pending: timed out waiting for the receipt"
	default:
		return "Order failed: " + err.Error()
	}
}

// NewTransactor builds signing options from a hex private key.
func NewTransactor(hexKey string, chainID int64) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return transactorFor(key, chainID)
}

func transactorFor(key *ecdsa.PrivateKey, chainID int64) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	return auth, nil
}
