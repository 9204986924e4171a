/*

The ledger is the single sequential execution context shared by the vault and the event. Every
operation runs as one atomic transaction in its own block: the head advances by one, the block time
is read from the clock, and any error discards every write the operation made.

*/

package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/bank"
	"github.com/elys-network/lgevault/internal/logger"
	"github.com/elys-network/lgevault/internal/metrics"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Tx is the context handed to an operation: the store transaction, a bank bound to it, and the
// caller and block the operation executes in.
type Tx struct {
	state.Tx
	Bank   *bank.Bank
	Sender types.Address
	Value  sdkmath.Int // Native currency attached by the caller; only payable operations move it
	Block  uint64
	Time   int64 // Unix seconds

	afterCommit []func()
}

// AfterCommit registers fn to run once the transaction has committed. Rejected transactions
// never run their hooks.
func (tx *Tx) AfterCommit(fn func()) {
	tx.afterCommit = append(tx.afterCommit, fn)
}

// Call describes who invokes an operation.
type Call struct {
	Op     string
	Sender types.Address
	Value  sdkmath.Int
}

// OpFunc is the body of an operation. Its result is recorded in the receipt.
type OpFunc func(tx *Tx) (interface{}, error)

// Ledger serialises operations over a Store.
type Ledger struct {
	mu    sync.Mutex
	store state.Store
	clock clockwork.Clock
	log   zerolog.Logger

	subMu  sync.Mutex
	subs   map[uint64]chan types.Receipt
	nextID uint64
}

// New creates a ledger over store. A nil clock means the real clock.
func New(store state.Store, clock clockwork.Clock) *Ledger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ledger{
		store: store,
		clock: clock,
		log:   logger.GetForComponent("ledger"),
		subs:  make(map[uint64]chan types.Receipt),
	}
}

// Store returns the underlying store.
func (l *Ledger) Store() state.Store { return l.store }

// Head returns the last committed block.
func (l *Ledger) Head(ctx context.Context) (types.Head, error) {
	tx, err := l.store.Begin(ctx)
	if err != nil {
		return types.Head{}, err
	}
	defer tx.Rollback()
	return tx.Head()
}

// Execute runs fn as the next block. On success the writes, the new head and the receipt are
// committed together. On failure nothing is persisted and the returned receipt carries the tag.
func (l *Ledger) Execute(ctx context.Context, call Call, fn OpFunc) (types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.LedgerTxDuration.WithLabelValues(call.Op).Observe(time.Since(start).Seconds())
	}()

	value := call.Value
	if value.IsNil() {
		value = sdkmath.ZeroInt()
	}
	if value.IsNegative() {
		return types.Receipt{}, types.ErrInvalidAmount
	}

	stx, err := l.store.Begin(ctx)
	if err != nil {
		return types.Receipt{}, fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer stx.Rollback()

	head, err := stx.Head()
	if err != nil {
		return types.Receipt{}, fmt.Errorf("failed to read head: %w", err)
	}
	next := types.Head{Height: head.Height + 1, Time: l.clock.Now().Unix()}
	if next.Time < head.Time {
		next.Time = head.Time
	}

	tx := &Tx{
		Tx:     stx,
		Bank:   bank.New(stx),
		Sender: call.Sender,
		Value:  value,
		Block:  next.Height,
		Time:   next.Time,
	}
	receipt := types.Receipt{
		ID:     uuid.NewString(),
		Height: next.Height,
		Time:   next.Time,
		Op:     call.Op,
		Sender: call.Sender,
	}

	result, opErr := fn(tx)
	if opErr != nil {
		tag := types.Tag(opErr)
		if tag == "" {
			// Infrastructure failure rather than a rejection; surface it as is.
			metrics.LedgerTxTotal.WithLabelValues(call.Op, "internal").Inc()
			l.log.Error().Err(opErr).Str("op", call.Op).Str("sender", call.Sender.String()).Msg("Ledger operation failed")
			return types.Receipt{}, opErr
		}
		receipt.Error = tag
		metrics.LedgerTxTotal.WithLabelValues(call.Op, tag).Inc()
		l.log.Warn().Str("op", call.Op).Str("sender", call.Sender.String()).Str("tag", tag).Msg(opErr.Error())
		l.publish(receipt)
		return receipt, opErr
	}

	receipt.Success = true
	receipt.Result = result
	receipt.Transfers = tx.Bank.Journal()

	if err := stx.SetHead(next); err != nil {
		return types.Receipt{}, fmt.Errorf("failed to advance head: %w", err)
	}
	if err := stx.AppendReceipt(receipt); err != nil {
		return types.Receipt{}, fmt.Errorf("failed to store receipt: %w", err)
	}
	if err := stx.Commit(); err != nil {
		return types.Receipt{}, err
	}

	for _, fn := range tx.afterCommit {
		fn()
	}
	metrics.LedgerTxTotal.WithLabelValues(call.Op, "ok").Inc()
	metrics.LedgerHeight.Set(float64(next.Height))
	l.log.Info().
		Str("op", call.Op).
		Str("sender", call.Sender.String()).
		Uint64("block", next.Height).
		Int("transfers", len(receipt.Transfers)).
		Msg("Committed ledger transaction")
	l.publish(receipt)
	return receipt, nil
}

// View runs fn read-only against the committed state, as if it executed in the next block.
func (l *Ledger) View(ctx context.Context, fn func(tx *Tx) error) error {
	stx, err := l.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer stx.Rollback()

	head, err := stx.Head()
	if err != nil {
		return err
	}
	now := l.clock.Now().Unix()
	if now < head.Time {
		now = head.Time
	}
	return fn(&Tx{
		Tx:    stx,
		Bank:  bank.New(stx),
		Value: sdkmath.ZeroInt(),
		Block: head.Height + 1,
		Time:  now,
	})
}

// Subscribe delivers every receipt, failed ones included, to the returned channel until cancel is
// called. A subscriber that falls more than buffer receipts behind misses receipts.
func (l *Ledger) Subscribe(buffer int) (<-chan types.Receipt, func()) {
	ch := make(chan types.Receipt, buffer)
	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = ch
	l.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subs, id)
			l.subMu.Unlock()
			close(ch)
		})
	}
}

func (l *Ledger) publish(r types.Receipt) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for _, ch := range l.subs {
		select {
		case ch <- r:
		default:
			metrics.ReceiptsDropped.Inc()
		}
	}
}
