package vault

import (
	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/elys-network/lgevault/internal/types"
)

func (v *Vault) requireSuperAdmin(tx *ledger.Tx) (types.VaultState, error) {
	vs, err := v.loadState(tx)
	if err != nil {
		return vs, err
	}
	if vs.SuperAdmin.IsZero() || tx.Sender != vs.SuperAdmin {
		return vs, types.ErrNotSuperAdmin
	}
	return vs, nil
}

// GovernanceOpensAt is the first block at which the super admin may act.
func GovernanceOpensAt(vs types.VaultState) uint64 {
	return vs.InitializedBlock + vs.GovernanceGraceBlocks + 1
}

// SetStrategyContractOrDistributionContractAllowance lets spender move amount of the vault's
// token balance. Super admin only, and only once the governance grace period has passed.
func (v *Vault) SetStrategyContractOrDistributionContractAllowance(tx *ledger.Tx, token string, amount sdkmath.Int, spender types.Address) error {
	vs, err := v.requireSuperAdmin(tx)
	if err != nil {
		return err
	}
	if tx.Block < GovernanceOpensAt(vs) {
		return types.ErrGovernanceGracePeriodNotOver
	}
	v.log.Warn().
		Str("token", token).
		Str("amount", amount.String()).
		Str("spender", spender.String()).
		Msg("Super admin granted vault token allowance")
	return tx.Bank.Approve(token, v.Address, spender, amount)
}

// TransferSuperAdmin hands the super admin role over. Super admin only.
func (v *Vault) TransferSuperAdmin(tx *ledger.Tx, newSuperAdmin types.Address) error {
	vs, err := v.requireSuperAdmin(tx)
	if err != nil {
		return err
	}
	vs.SuperAdmin = newSuperAdmin
	return tx.SetVaultState(vs)
}

// BurnSuperAdmin removes the super admin role for good. Super admin only.
func (v *Vault) BurnSuperAdmin(tx *ledger.Tx) error {
	vs, err := v.requireSuperAdmin(tx)
	if err != nil {
		return err
	}
	v.log.Warn().Str("super_admin", vs.SuperAdmin.String()).Msg("Super admin burned")
	vs.SuperAdmin = ""
	return tx.SetVaultState(vs)
}
