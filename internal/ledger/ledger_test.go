package ledger

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/state"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = types.MustParseAddress("0x3000000000000000000000000000000000000001")

func newLedger(t *testing.T) (*Ledger, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	return New(state.NewMemoryStore(), clock), clock
}

func mint(amount int64) OpFunc {
	return func(tx *Tx) (interface{}, error) {
		return nil, tx.Bank.Mint("magic", tx.Sender, sdkmath.NewInt(amount))
	}
}

func TestExecuteCommitsAndAdvancesHead(t *testing.T) {
	l, clock := newLedger(t)
	ctx := context.Background()

	r, err := l.Execute(ctx, Call{Op: "mint", Sender: alice}, mint(5))
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, uint64(1), r.Height)
	assert.Equal(t, int64(1_700_000_000), r.Time)
	require.Len(t, r.Transfers, 1)
	assert.NotEmpty(t, r.ID)

	clock.Advance(time.Hour)
	r, err = l.Execute(ctx, Call{Op: "mint", Sender: alice}, mint(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r.Height)
	assert.Equal(t, int64(1_700_003_600), r.Time)

	head, err := l.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), head.Height)

	err = l.View(ctx, func(tx *Tx) error {
		assert.Equal(t, uint64(3), tx.Block)
		bal, err := tx.Bank.BalanceOf("magic", alice)
		require.NoError(t, err)
		assert.Equal(t, int64(10), bal.Int64())

		receipts, err := tx.RecentReceipts(10)
		require.NoError(t, err)
		assert.Len(t, receipts, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestRejectedOperationLeavesNoTrace(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	r, err := l.Execute(ctx, Call{Op: "mintThenFail", Sender: alice}, func(tx *Tx) (interface{}, error) {
		if err := tx.Bank.Mint("magic", tx.Sender, sdkmath.NewInt(5)); err != nil {
			return nil, err
		}
		return nil, types.ErrNotOwner
	})
	require.ErrorIs(t, err, types.ErrNotOwner)
	assert.False(t, r.Success)
	assert.Equal(t, "NotOwner", r.Error)

	head, err := l.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), head.Height)

	err = l.View(ctx, func(tx *Tx) error {
		bal, err := tx.Bank.BalanceOf("magic", alice)
		require.NoError(t, err)
		assert.True(t, bal.IsZero())
		return nil
	})
	require.NoError(t, err)
}

func TestNegativeValueRejected(t *testing.T) {
	l, _ := newLedger(t)
	_, err := l.Execute(context.Background(), Call{Op: "pay", Sender: alice, Value: sdkmath.NewInt(-1)}, mint(1))
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestSubscribersSeeEveryReceipt(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	ch, cancel := l.Subscribe(4)
	defer cancel()

	_, err := l.Execute(ctx, Call{Op: "mint", Sender: alice}, mint(1))
	require.NoError(t, err)
	_, _ = l.Execute(ctx, Call{Op: "fail", Sender: alice}, func(*Tx) (interface{}, error) {
		return nil, types.ErrPoolDisabled
	})

	first := <-ch
	assert.True(t, first.Success)
	second := <-ch
	assert.Equal(t, "PoolDisabled", second.Error)

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestBlockTimeNeverGoesBackwards(t *testing.T) {
	store := state.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(time.Unix(2_000, 0))
	_, err := New(store, clock).Execute(context.Background(), Call{Op: "mint", Sender: alice}, mint(1))
	require.NoError(t, err)

	earlier := clockwork.NewFakeClockAt(time.Unix(1_000, 0))
	r, err := New(store, earlier).Execute(context.Background(), Call{Op: "mint", Sender: alice}, mint(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2_000), r.Time)
}
