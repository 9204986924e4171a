package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/types"
)

const (
	vaultModule = "vault"
	lgeModule   = "lge"
)

type pgTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *pgTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *pgTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func parseNumeric(raw string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("corrupt numeric value %q", raw)
	}
	return v, nil
}

// queryInt reads a single NUMERIC column, treating a missing row as zero.
func (t *pgTx) queryInt(query string, args ...interface{}) (sdkmath.Int, error) {
	var raw string
	err := t.tx.QueryRowContext(t.ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return sdkmath.ZeroInt(), nil
	}
	if err != nil {
		return sdkmath.Int{}, err
	}
	return parseNumeric(raw)
}

func (t *pgTx) exec(query string, args ...interface{}) error {
	_, err := t.tx.ExecContext(t.ctx, query, args...)
	return err
}

func (t *pgTx) Head() (types.Head, error) {
	var head types.Head
	err := t.tx.QueryRowContext(t.ctx, `SELECT height, block_time FROM ledger_head WHERE id = 1`).
		Scan(&head.Height, &head.Time)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Head{}, nil
	}
	return head, err
}

func (t *pgTx) SetHead(head types.Head) error {
	return t.exec(`
		INSERT INTO ledger_head (id, height, block_time, updated_at) VALUES (1, $1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET height = EXCLUDED.height, block_time = EXCLUDED.block_time, updated_at = CURRENT_TIMESTAMP`,
		head.Height, head.Time)
}

func (t *pgTx) Balance(denom string, addr types.Address) (sdkmath.Int, error) {
	return t.queryInt(`SELECT amount FROM balances WHERE denom = $1 AND address = $2`, denom, string(addr))
}

func (t *pgTx) SetBalance(denom string, addr types.Address, amount sdkmath.Int) error {
	return t.exec(`
		INSERT INTO balances (denom, address, amount) VALUES ($1, $2, $3)
		ON CONFLICT (denom, address) DO UPDATE SET amount = EXCLUDED.amount`,
		denom, string(addr), amount.String())
}

func (t *pgTx) Supply(denom string) (sdkmath.Int, error) {
	return t.queryInt(`SELECT amount FROM supplies WHERE denom = $1`, denom)
}

func (t *pgTx) SetSupply(denom string, amount sdkmath.Int) error {
	return t.exec(`
		INSERT INTO supplies (denom, amount) VALUES ($1, $2)
		ON CONFLICT (denom) DO UPDATE SET amount = EXCLUDED.amount`,
		denom, amount.String())
}

func (t *pgTx) TokenAllowance(denom string, owner, spender types.Address) (sdkmath.Int, error) {
	return t.queryInt(`SELECT amount FROM token_allowances WHERE denom = $1 AND owner = $2 AND spender = $3`,
		denom, string(owner), string(spender))
}

func (t *pgTx) SetTokenAllowance(denom string, owner, spender types.Address, amount sdkmath.Int) error {
	return t.exec(`
		INSERT INTO token_allowances (denom, owner, spender, amount) VALUES ($1, $2, $3, $4)
		ON CONFLICT (denom, owner, spender) DO UPDATE SET amount = EXCLUDED.amount`,
		denom, string(owner), string(spender), amount.String())
}

func (t *pgTx) FeeRule(denom string) (types.FeeRule, error) {
	rule := types.FeeRule{Denom: denom}
	var distributor string
	var exempt []byte
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT fee_percent_x100, distributor, exempt FROM fee_rules WHERE denom = $1`, denom).
		Scan(&rule.FeePercentX100, &distributor, &exempt)
	if errors.Is(err, sql.ErrNoRows) {
		return rule, ErrNotFound
	}
	if err != nil {
		return rule, err
	}
	rule.Distributor = types.Address(distributor)
	if err := json.Unmarshal(exempt, &rule.Exempt); err != nil {
		return rule, fmt.Errorf("failed to decode fee exemptions for %s: %w", denom, err)
	}
	return rule, nil
}

func (t *pgTx) SetFeeRule(rule types.FeeRule) error {
	exempt, err := json.Marshal(rule.Exempt)
	if err != nil {
		return err
	}
	return t.exec(`
		INSERT INTO fee_rules (denom, fee_percent_x100, distributor, exempt) VALUES ($1, $2, $3, $4)
		ON CONFLICT (denom) DO UPDATE SET fee_percent_x100 = EXCLUDED.fee_percent_x100,
			distributor = EXCLUDED.distributor, exempt = EXCLUDED.exempt`,
		rule.Denom, rule.FeePercentX100, string(rule.Distributor), exempt)
}

func (t *pgTx) loadModule(module string, out interface{}) error {
	var doc []byte
	err := t.tx.QueryRowContext(t.ctx, `SELECT doc FROM module_state WHERE module = $1`, module).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(doc, out)
}

func (t *pgTx) storeModule(module string, v interface{}) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return t.exec(`
		INSERT INTO module_state (module, doc, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (module) DO UPDATE SET doc = EXCLUDED.doc, updated_at = CURRENT_TIMESTAMP`,
		module, doc)
}

func (t *pgTx) VaultState() (types.VaultState, error) {
	var vs types.VaultState
	err := t.loadModule(vaultModule, &vs)
	return vs, err
}

func (t *pgTx) SetVaultState(vs types.VaultState) error { return t.storeModule(vaultModule, vs) }

func (t *pgTx) LGEState() (types.LGEState, error) {
	var ls types.LGEState
	err := t.loadModule(lgeModule, &ls)
	return ls, err
}

func (t *pgTx) SetLGEState(ls types.LGEState) error { return t.storeModule(lgeModule, ls) }

func (t *pgTx) PoolCount() (uint64, error) {
	var n uint64
	err := t.tx.QueryRowContext(t.ctx, `SELECT COUNT(*) FROM vault_pools`).Scan(&n)
	return n, err
}

func (t *pgTx) Pool(pid uint64) (types.Pool, error) {
	pool := types.Pool{ID: pid}
	var acc, staked string
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT stake_token, alloc_point, last_reward_block, acc_reward_per_share, withdrawable, total_staked
		FROM vault_pools WHERE pid = $1`, pid).
		Scan(&pool.StakeToken, &pool.AllocPoint, &pool.LastRewardBlock, &acc, &pool.Withdrawable, &staked)
	if errors.Is(err, sql.ErrNoRows) {
		return pool, ErrNotFound
	}
	if err != nil {
		return pool, err
	}
	if pool.AccRewardPerShare, err = parseNumeric(acc); err != nil {
		return pool, err
	}
	if pool.TotalStaked, err = parseNumeric(staked); err != nil {
		return pool, err
	}
	return pool, nil
}

func (t *pgTx) PutPool(pool types.Pool) error {
	n, err := t.PoolCount()
	if err != nil {
		return err
	}
	if pool.ID > n {
		return fmt.Errorf("pool id %d leaves a gap after %d pools", pool.ID, n)
	}
	return t.exec(`
		INSERT INTO vault_pools (pid, stake_token, alloc_point, last_reward_block, acc_reward_per_share, withdrawable, total_staked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pid) DO UPDATE SET alloc_point = EXCLUDED.alloc_point, last_reward_block = EXCLUDED.last_reward_block,
			acc_reward_per_share = EXCLUDED.acc_reward_per_share, withdrawable = EXCLUDED.withdrawable,
			total_staked = EXCLUDED.total_staked`,
		pool.ID, pool.StakeToken, pool.AllocPoint, pool.LastRewardBlock, pool.AccRewardPerShare.String(),
		pool.Withdrawable, pool.TotalStaked.String())
}

func (t *pgTx) UserInfo(pid uint64, addr types.Address) (types.UserInfo, error) {
	var amount, debt string
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT amount, reward_debt FROM vault_stakes WHERE pid = $1 AND address = $2`, pid, string(addr)).
		Scan(&amount, &debt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.NewUserInfo(), nil
	}
	if err != nil {
		return types.UserInfo{}, err
	}
	var info types.UserInfo
	if info.Amount, err = parseNumeric(amount); err != nil {
		return info, err
	}
	if info.RewardDebt, err = parseNumeric(debt); err != nil {
		return info, err
	}
	return info, nil
}

func (t *pgTx) PutUserInfo(pid uint64, addr types.Address, info types.UserInfo) error {
	return t.exec(`
		INSERT INTO vault_stakes (pid, address, amount, reward_debt) VALUES ($1, $2, $3, $4)
		ON CONFLICT (pid, address) DO UPDATE SET amount = EXCLUDED.amount, reward_debt = EXCLUDED.reward_debt`,
		pid, string(addr), info.Amount.String(), info.RewardDebt.String())
}

func (t *pgTx) PoolAllowance(pid uint64, owner, delegate types.Address) (sdkmath.Int, error) {
	return t.queryInt(`SELECT amount FROM vault_allowances WHERE pid = $1 AND owner = $2 AND delegate = $3`,
		pid, string(owner), string(delegate))
}

func (t *pgTx) SetPoolAllowance(pid uint64, owner, delegate types.Address, amount sdkmath.Int) error {
	return t.exec(`
		INSERT INTO vault_allowances (pid, owner, delegate, amount) VALUES ($1, $2, $3, $4)
		ON CONFLICT (pid, owner, delegate) DO UPDATE SET amount = EXCLUDED.amount`,
		pid, string(owner), string(delegate), amount.String())
}

func (t *pgTx) Contribution(addr types.Address) (types.Contribution, error) {
	var amount string
	c := types.NewContribution()
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT amount, claimed FROM lge_contributions WHERE address = $1`, string(addr)).
		Scan(&amount, &c.Claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	c.Amount, err = parseNumeric(amount)
	return c, err
}

func (t *pgTx) PutContribution(addr types.Address, c types.Contribution) error {
	return t.exec(`
		INSERT INTO lge_contributions (address, amount, claimed) VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE SET amount = EXCLUDED.amount, claimed = EXCLUDED.claimed`,
		string(addr), c.Amount.String(), c.Claimed)
}

func (t *pgTx) AppendReceipt(r types.Receipt) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}
	return t.exec(`
		INSERT INTO receipts (height, receipt_id, op, sender, block_time, body) VALUES ($1, $2, $3, $4, $5, $6)`,
		r.Height, r.ID, r.Op, string(r.Sender), r.Time, body)
}

func (t *pgTx) RecentReceipts(limit int) ([]types.Receipt, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT body FROM receipts ORDER BY height DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []types.Receipt
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var r types.Receipt
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, fmt.Errorf("failed to decode receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}
