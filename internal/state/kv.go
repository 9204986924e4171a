package state

import (
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/types"
)

// kvBackend is the minimal surface the memory and badger stores provide. The typed ledger
// records are layered on top of it by kvTx.
type kvBackend interface {
	get(key string) ([]byte, bool, error)
	set(key string, val []byte) error
	// scan visits keys under prefix in ascending (or descending) order until fn returns false.
	scan(prefix string, reverse bool, fn func(key string, val []byte) (bool, error)) error
	commit() error
	rollback() error
}

type kvTx struct {
	kv kvBackend
}

func (t *kvTx) Commit() error   { return t.kv.commit() }
func (t *kvTx) Rollback() error { return t.kv.rollback() }

func (t *kvTx) getInt(key string) (sdkmath.Int, error) {
	raw, ok, err := t.kv.get(key)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	v, ok := sdkmath.NewIntFromString(string(raw))
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("corrupt integer at %s: %q", key, raw)
	}
	return v, nil
}

func (t *kvTx) setInt(key string, v sdkmath.Int) error {
	return t.kv.set(key, []byte(v.String()))
}

func (t *kvTx) getJSON(key string, out interface{}) (bool, error) {
	raw, ok, err := t.kv.get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (t *kvTx) setJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return t.kv.set(key, raw)
}

func poolKey(pid uint64) string { return fmt.Sprintf("%s%020d", PoolPrefix, pid) }

func (t *kvTx) Head() (types.Head, error) {
	var head types.Head
	_, err := t.getJSON(HeadKey, &head)
	return head, err
}

func (t *kvTx) SetHead(head types.Head) error { return t.setJSON(HeadKey, head) }

func (t *kvTx) Balance(denom string, addr types.Address) (sdkmath.Int, error) {
	return t.getInt(BalancePrefix + denom + "/" + string(addr))
}

func (t *kvTx) SetBalance(denom string, addr types.Address, amount sdkmath.Int) error {
	return t.setInt(BalancePrefix+denom+"/"+string(addr), amount)
}

func (t *kvTx) Supply(denom string) (sdkmath.Int, error) {
	return t.getInt(SupplyPrefix + denom)
}

func (t *kvTx) SetSupply(denom string, amount sdkmath.Int) error {
	return t.setInt(SupplyPrefix+denom, amount)
}

func (t *kvTx) TokenAllowance(denom string, owner, spender types.Address) (sdkmath.Int, error) {
	return t.getInt(TokenAllowancePrefix + denom + "/" + string(owner) + "/" + string(spender))
}

func (t *kvTx) SetTokenAllowance(denom string, owner, spender types.Address, amount sdkmath.Int) error {
	return t.setInt(TokenAllowancePrefix+denom+"/"+string(owner)+"/"+string(spender), amount)
}

func (t *kvTx) FeeRule(denom string) (types.FeeRule, error) {
	var rule types.FeeRule
	found, err := t.getJSON(FeeRulePrefix+denom, &rule)
	if err != nil {
		return rule, err
	}
	if !found {
		return rule, ErrNotFound
	}
	return rule, nil
}

func (t *kvTx) SetFeeRule(rule types.FeeRule) error {
	return t.setJSON(FeeRulePrefix+rule.Denom, rule)
}

func (t *kvTx) VaultState() (types.VaultState, error) {
	var vs types.VaultState
	found, err := t.getJSON(VaultStateKey, &vs)
	if err != nil {
		return vs, err
	}
	if !found {
		return vs, ErrNotFound
	}
	return vs, nil
}

func (t *kvTx) SetVaultState(vs types.VaultState) error { return t.setJSON(VaultStateKey, vs) }

func (t *kvTx) PoolCount() (uint64, error) {
	var n uint64
	_, err := t.getJSON(PoolCountKey, &n)
	return n, err
}

func (t *kvTx) Pool(pid uint64) (types.Pool, error) {
	var pool types.Pool
	found, err := t.getJSON(poolKey(pid), &pool)
	if err != nil {
		return pool, err
	}
	if !found {
		return pool, ErrNotFound
	}
	return pool, nil
}

func (t *kvTx) PutPool(pool types.Pool) error {
	n, err := t.PoolCount()
	if err != nil {
		return err
	}
	if pool.ID > n {
		return fmt.Errorf("pool id %d leaves a gap after %d pools", pool.ID, n)
	}
	if err := t.setJSON(poolKey(pool.ID), pool); err != nil {
		return err
	}
	if pool.ID == n {
		return t.setJSON(PoolCountKey, n+1)
	}
	return nil
}

func (t *kvTx) UserInfo(pid uint64, addr types.Address) (types.UserInfo, error) {
	info := types.NewUserInfo()
	_, err := t.getJSON(fmt.Sprintf("%s%020d/%s", UserInfoPrefix, pid, addr), &info)
	return info, err
}

func (t *kvTx) PutUserInfo(pid uint64, addr types.Address, info types.UserInfo) error {
	return t.setJSON(fmt.Sprintf("%s%020d/%s", UserInfoPrefix, pid, addr), info)
}

func (t *kvTx) PoolAllowance(pid uint64, owner, delegate types.Address) (sdkmath.Int, error) {
	return t.getInt(fmt.Sprintf("%s%020d/%s/%s", PoolAllowancePrefix, pid, owner, delegate))
}

func (t *kvTx) SetPoolAllowance(pid uint64, owner, delegate types.Address, amount sdkmath.Int) error {
	return t.setInt(fmt.Sprintf("%s%020d/%s/%s", PoolAllowancePrefix, pid, owner, delegate), amount)
}

func (t *kvTx) LGEState() (types.LGEState, error) {
	var ls types.LGEState
	found, err := t.getJSON(LGEStateKey, &ls)
	if err != nil {
		return ls, err
	}
	if !found {
		return ls, ErrNotFound
	}
	return ls, nil
}

func (t *kvTx) SetLGEState(ls types.LGEState) error { return t.setJSON(LGEStateKey, ls) }

func (t *kvTx) Contribution(addr types.Address) (types.Contribution, error) {
	c := types.NewContribution()
	_, err := t.getJSON(ContributionPrefix+string(addr), &c)
	return c, err
}

func (t *kvTx) PutContribution(addr types.Address, c types.Contribution) error {
	return t.setJSON(ContributionPrefix+string(addr), c)
}

func (t *kvTx) AppendReceipt(r types.Receipt) error {
	return t.setJSON(fmt.Sprintf("%s%020d", ReceiptPrefix, r.Height), r)
}

func (t *kvTx) RecentReceipts(limit int) ([]types.Receipt, error) {
	var receipts []types.Receipt
	if limit <= 0 {
		return receipts, nil
	}
	err := t.kv.scan(ReceiptPrefix, true, func(key string, val []byte) (bool, error) {
		var r types.Receipt
		if err := json.Unmarshal(val, &r); err != nil {
			return false, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		receipts = append(receipts, r)
		return len(receipts) < limit, nil
	})
	return receipts, err
}
