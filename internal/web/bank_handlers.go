package web

import (
	"net/http"

	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/gorilla/mux"
)

type transferRequest struct {
	Denom  string `json:"denom" valid:"required,printableascii"`
	To     string `json:"to" valid:"required"`
	From   string `json:"from,omitempty"` // Set to spend an allowance granted by From
	Amount string `json:"amount" valid:"float,required"`
}

type approveRequest struct {
	Denom   string `json:"denom" valid:"required,printableascii"`
	Spender string `json:"spender" valid:"required"`
	Amount  string `json:"amount" valid:"float,required"`
}

func (ws *WebServer) registerBankRoutes(r *mux.Router) {
	r.HandleFunc("/balances/{addr}", ws.handleGetBalance).Methods("GET").Queries("denom", "{denom}")
	r.HandleFunc("/allowances/{owner}/{spender}", ws.handleGetTokenAllowance).Methods("GET").Queries("denom", "{denom}")
	r.HandleFunc("/fee-rule", ws.handleGetFeeRule).Methods("GET").Queries("denom", "{denom}")

	r.HandleFunc("/transfer", ws.requireCaller(ws.handleTransfer)).Methods("POST")
	r.HandleFunc("/approve", ws.requireCaller(ws.handleApprove)).Methods("POST")
}

func (ws *WebServer) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "addr")
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	denom := mux.Vars(r)["denom"]
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		balance, err := tx.Bank.BalanceOf(denom, addr)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"address": addr,
			"denom":   denom,
			"balance": ws.renderAmount(balance),
		}, nil
	})
}

func (ws *WebServer) handleGetTokenAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r, "owner")
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	spender, err := pathAddress(r, "spender")
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	denom := mux.Vars(r)["denom"]
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		allowance, err := tx.Bank.Allowance(denom, owner, spender)
		if err != nil {
			return nil, err
		}
		return ws.renderAmount(allowance), nil
	})
}

func (ws *WebServer) handleGetFeeRule(w http.ResponseWriter, r *http.Request) {
	denom := mux.Vars(r)["denom"]
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		rule, ok, err := tx.Bank.FeeRule(denom)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"denom": denom, "fee_on_transfer": ok, "rule": rule}, nil
	})
}

// handleTransfer moves the caller's tokens, or with from set, tokens the caller may spend for from.
func (ws *WebServer) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeRequest(r, w, &req); err != nil {
		ws.badRequest(w, err)
		return
	}
	to, err := types.ParseAddress(req.To)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	var from types.Address
	if req.From != "" {
		if from, err = types.ParseAddress(req.From); err != nil {
			ws.badRequest(w, err)
			return
		}
	}
	amount, err := parseAmount(req.Amount, ws.app.Params().TokenDecimals)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	op := "transfer"
	if from != "" {
		op = "transferFrom"
	}
	ws.execute(w, r, op, ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		if from != "" {
			return tx.Bank.TransferFrom(req.Denom, tx.Sender, from, to, amount)
		}
		return tx.Bank.Transfer(req.Denom, tx.Sender, to, amount)
	})
}

func (ws *WebServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
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
		ws.badRequest(w, err)
		return
	}
	ws.execute(w, r, "approve", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return nil, tx.Bank.Approve(req.Denom, tx.Sender, spender, amount)
	})
}
