package state

// Key prefixes of the key-value backends
const (
	HeadKey              = "head"
	BalancePrefix        = "bal-"
	SupplyPrefix         = "sup-"
	TokenAllowancePrefix = "tal-"
	FeeRulePrefix        = "fee-"
	VaultStateKey        = "vault"
	PoolPrefix           = "pool-"
	PoolCountKey         = "pcount"
	UserInfoPrefix       = "usr-"
	PoolAllowancePrefix  = "pal-"
	LGEStateKey          = "lge"
	ContributionPrefix   = "ctb-"
	ReceiptPrefix        = "rcp-"
)
