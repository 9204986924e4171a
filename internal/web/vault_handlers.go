package web

import (
	"fmt"
	"net/http"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/elys-network/lgevault/internal/vault"
	"github.com/gorilla/mux"
)

type stakeRequest struct {
	Amount string `json:"amount" valid:"float,required"`
	// Deposit: credit the stake to this address. Withdraw: spend this owner's allowance.
	On string `json:"on,omitempty"`
}

type addPoolRequest struct {
	AllocPoint   uint64 `json:"alloc_point"`
	StakeToken   string `json:"stake_token" valid:"required,printableascii"`
	WithUpdate   bool   `json:"with_update"`
	Withdrawable bool   `json:"withdrawable"`
}

type poolAllowanceRequest struct {
	Delegate string `json:"delegate" valid:"required"`
	Amount   string `json:"amount" valid:"float,required"`
}

type withdrawableRequest struct {
	Withdrawable bool `json:"withdrawable"`
}

type devFeeRequest struct {
	Bps uint64 `json:"bps"`
}

type drainPolicyRequest struct {
	Policy string `json:"policy" valid:"in(sequential|snapshot),required"`
}

type tokenAllowanceRequest struct {
	Token   string `json:"token" valid:"required,printableascii"`
	Amount  string `json:"amount" valid:"float,required"`
	Spender string `json:"spender" valid:"required"`
}

// userView is a staker's position in one pool.
type userView struct {
	Pool    uint64         `json:"pool"`
	User    types.Address  `json:"user"`
	Info    types.UserInfo `json:"info"`
	Pending amountView     `json:"pending"`
}

func (ws *WebServer) registerVaultRoutes(r *mux.Router) {
	r.HandleFunc("/state", ws.handleVaultState).Methods("GET")
	r.HandleFunc("/pending", ws.handleVaultPending).Methods("GET")
	r.HandleFunc("/pools", ws.handleListPools).Methods("GET")
	r.HandleFunc("/pools/{pid:[0-9]+}", ws.handleGetPool).Methods("GET")
	r.HandleFunc("/pools/{pid:[0-9]+}/users/{addr}", ws.handleGetUser).Methods("GET")
	r.HandleFunc("/pools/{pid:[0-9]+}/allowances/{owner}/{delegate}", ws.handleGetPoolAllowance).Methods("GET")

	r.HandleFunc("/pools/{pid:[0-9]+}/deposit", ws.requireCaller(ws.handleDeposit)).Methods("POST")
	r.HandleFunc("/pools/{pid:[0-9]+}/withdraw", ws.requireCaller(ws.handleWithdraw)).Methods("POST")
	r.HandleFunc("/pools/{pid:[0-9]+}/emergency-withdraw", ws.requireCaller(ws.handleEmergencyWithdraw)).Methods("POST")
	r.HandleFunc("/pools/{pid:[0-9]+}/update", ws.requireCaller(ws.handleUpdatePool)).Methods("POST")
	r.HandleFunc("/pools/{pid:[0-9]+}/allowance", ws.requireCaller(ws.handleSetPoolAllowance)).Methods("POST")
	r.HandleFunc("/mass-update", ws.requireCaller(ws.handleMassUpdate)).Methods("POST")

	// Admin
	r.HandleFunc("/pools", ws.requireCaller(ws.handleAddPool)).Methods("POST")
	r.HandleFunc("/pools/{pid:[0-9]+}/withdrawable", ws.requireCaller(ws.handleSetWithdrawable)).Methods("POST")
	r.HandleFunc("/dev-fee", ws.requireCaller(ws.handleSetDevFee)).Methods("POST")
	r.HandleFunc("/dev-receiver", ws.requireCaller(ws.handleSetDevReceiver)).Methods("POST")
	r.HandleFunc("/drain-policy", ws.requireCaller(ws.handleSetDrainPolicy)).Methods("POST")
	r.HandleFunc("/ownership", ws.requireCaller(ws.handleTransferOwnership)).Methods("POST")

	// Super admin
	r.HandleFunc("/superadmin/allowance", ws.requireCaller(ws.handleSuperAdminAllowance)).Methods("POST")
	r.HandleFunc("/superadmin/transfer", ws.requireCaller(ws.handleTransferSuperAdmin)).Methods("POST")
	r.HandleFunc("/superadmin/burn", ws.requireCaller(ws.handleBurnSuperAdmin)).Methods("POST")
}

func (ws *WebServer) handleVaultState(w http.ResponseWriter, r *http.Request) {
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		vs, err := ws.app.Vault.State(tx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"state":               vs,
			"governance_opens_at": vault.GovernanceOpensAt(vs),
		}, nil
	})
}

func (ws *WebServer) handleVaultPending(w http.ResponseWriter, r *http.Request) {
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		pending, err := ws.app.Vault.PendingRewards(tx)
		if err != nil {
			return nil, err
		}
		return ws.renderAmount(pending), nil
	})
}

func (ws *WebServer) handleListPools(w http.ResponseWriter, r *http.Request) {
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		pools, err := ws.app.Vault.Pools(tx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"pools": pools, "count": len(pools)}, nil
	})
}

func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pid, err := pathPid(r)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		return ws.app.Vault.PoolInfo(tx, pid)
	})
}

func (ws *WebServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	pid, err := pathPid(r)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	user, err := pathAddress(r, "addr")
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		info, err := ws.app.Vault.UserInfo(tx, pid, user)
		if err != nil {
			return nil, err
		}
		pending, err := ws.app.Vault.PendingMagic(tx, pid, user)
		if err != nil {
			return nil, err
		}
		return userView{Pool: pid, User: user, Info: info, Pending: ws.renderAmount(pending)}, nil
	})
}

func (ws *WebServer) handleGetPoolAllowance(w http.ResponseWriter, r *http.Request) {
	pid, err := pathPid(r)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	owner, err := pathAddress(r, "owner")
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	delegate, err := pathAddress(r, "delegate")
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		allowance, err := ws.app.Vault.Allowance(tx, pid, owner, delegate)
		if err != nil {
			return nil, err
		}
		return ws.renderAmount(allowance), nil
	})
}

// parseStake reads the pool id, the amount and the optional counterparty of a stake request.
func (ws *WebServer) parseStake(w http.ResponseWriter, r *http.Request) (pid uint64, amount sdkmath.Int, on types.Address, ok bool) {
	var req stakeRequest
	var err error
	if pid, err = pathPid(r); err == nil {
		err = decodeRequest(r, w, &req)
	}
	if err == nil {
		amount, err = parseAmount(req.Amount, ws.app.Params().TokenDecimals)
	}
	if err == nil && req.On != "" {
		on, err = types.ParseAddress(req.On)
	}
	if err != nil {
		ws.badRequest(w, err)
		return 0, sdkmath.Int{}, "", false
	}
	return pid, amount, on, true
}

func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	pid, amount, beneficiary, ok := ws.parseStake(w, r)
	if !ok {
		return
	}
	ws.execute(w, r, "deposit", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		if beneficiary != "" {
			return ws.app.Vault.DepositFor(tx, beneficiary, pid, amount)
		}
		return ws.app.Vault.Deposit(tx, pid, amount)
	})
}

func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	pid, amount, owner, ok := ws.parseStake(w, r)
	if !ok {
		return
	}
	ws.execute(w, r, "withdraw", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		if owner != "" {
			return ws.app.Vault.WithdrawFrom(tx, owner, pid, amount)
		}
		return ws.app.Vault.Withdraw(tx, pid, amount)
	})
}

func (ws *WebServer) handleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	pid, err := pathPid(r)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.execute(w, r, "emergencyWithdraw", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return ws.app.Vault.EmergencyWithdraw(tx, pid)
	})
}

func (ws *WebServer) handleUpdatePool(w http.ResponseWriter, r *http.Request) {
	pid, err := pathPid(r)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.execute(w, r, "updatePool", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return ws.app.Vault.UpdatePool(tx, pid)
	})
}

func (ws *WebServer) handleMassUpdate(w http.ResponseWriter, r *http.Request) {
	ws.execute(w, r, "massUpdatePools", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return ws.app.Vault.MassUpdatePools(tx)
	})
}

func (ws *WebServer) handleSetPoolAllowance(w http.ResponseWriter, r *http.Request) {
	pid, err := pathPid(r)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	var req poolAllowanceRequest
	if err := decodeRequest(r, w, &req); err != nil {
		ws.badRequest(w, err)
		return
	}
	delegate, err := types.ParseAddress(req.Delegate)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount, ws.app.Params().TokenDecimals)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.execute(w, r, "setAllowanceForPoolToken", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return nil, ws.app.Vault.SetAllowanceForPoolToken(tx, delegate, pid, amount)
	})
}

func (ws *WebServer) handleAddPool(w http.ResponseWriter, r *http.Request) {
	var req addPoolRequest
	if err := decodeRequest(r, w, &req); err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.execute(w, r, "add", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return ws.app.Vault.Add(tx, req.AllocPoint, req.StakeToken, req.WithUpdate, req.Withdrawable)
	})
}

func (ws *WebServer) handleSetWithdrawable(w http.ResponseWriter, r *http.Request) {
	pid, err := pathPid(r)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	var req withdrawableRequest
	if err := decodeRequest(r, w, &req); err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.execute(w, r, "setPoolWithdrawable", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return nil, ws.app.Vault.SetPoolWithdrawable(tx, pid, req.Withdrawable)
	})
}

func (ws *WebServer) handleSetDevFee(w http.ResponseWriter, r *http.Request) {
	var req devFeeRequest
	if err := decodeRequest(r, w, &req); err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.execute(w, r, "setDevFee", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return nil, ws.app.Vault.SetDevFee(tx, req.Bps)
	})
}

// addressOp decodes {"address": ...} and runs op with it.
func (ws *WebServer) addressOp(w http.ResponseWriter, r *http.Request, op string, fn func(tx *ledger.Tx, addr types.Address) error) {
	var req addressRequest
	if err := decodeRequest(r, w, &req); err != nil {
		ws.badRequest(w, err)
		return
	}
	addr, err := types.ParseAddress(req.Address)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.execute(w, r, op, ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return nil, fn(tx, addr)
	})
}

func (ws *WebServer) handleSetDevReceiver(w http.ResponseWriter, r *http.Request) {
	ws.addressOp(w, r, "setDevFeeReceiver", ws.app.Vault.SetDevFeeReceiver)
}

func (ws *WebServer) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	ws.addressOp(w, r, "transferOwnership", ws.app.Vault.TransferOwnership)
}

func (ws *WebServer) handleTransferSuperAdmin(w http.ResponseWriter, r *http.Request) {
	ws.addressOp(w, r, "transferSuperAdmin", ws.app.Vault.TransferSuperAdmin)
}

func (ws *WebServer) handleSetDrainPolicy(w http.ResponseWriter, r *http.Request) {
	var req drainPolicyRequest
	if err := decodeRequest(r, w, &req); err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.execute(w, r, "setDrainPolicy", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return nil, ws.app.Vault.SetDrainPolicy(tx, types.DrainPolicy(req.Policy))
	})
}

func (ws *WebServer) handleSuperAdminAllowance(w http.ResponseWriter, r *http.Request) {
	var req tokenAllowanceRequest
	if err := decodeRequest(r, w, &req); err != nil {
		ws.badRequest(w, err)
		return
	}
	spender, err := types.ParseAddress(req.Spender)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	amount, err := parseAmount(req.Amount, ws.app.Params().TokenDecimals)
	if err != nil {
		ws.badRequest(w, fmt.Errorf("amount: %w", err))
		return
	}
	ws.execute(w, r, "setStrategyContractOrDistributionContractAllowance", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return nil, ws.app.Vault.SetStrategyContractOrDistributionContractAllowance(tx, req.Token, amount, spender)
	})
}

func (ws *WebServer) handleBurnSuperAdmin(w http.ResponseWriter, r *http.Request) {
	ws.execute(w, r, "burnSuperAdmin", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return nil, ws.app.Vault.BurnSuperAdmin(tx)
	})
}
