package web

import (
	"net/http"

	"github.com/elys-network/lgevault/internal/ledger"
	"github.com/gorilla/mux"
)

type contributeRequest struct {
	Amount    string `json:"amount" valid:"float,required"`
	Agreement bool   `json:"agreement"`
}

func (ws *WebServer) registerLGERoutes(r *mux.Router) {
	r.HandleFunc("/status", ws.handleLGEStatus).Methods("GET")
	r.HandleFunc("/pair", ws.handlePairReserves).Methods("GET")
	r.HandleFunc("/contributions/{addr}", ws.handleGetContribution).Methods("GET")

	r.HandleFunc("/contribute", ws.requireCaller(ws.handleContribute)).Methods("POST")
	r.HandleFunc("/create-liquidity", ws.requireCaller(ws.handleCreateLiquidity)).Methods("POST")
	r.HandleFunc("/claim", ws.requireCaller(ws.handleClaimLP)).Methods("POST")
	r.HandleFunc("/drain", ws.requireCaller(ws.handleDrain)).Methods("POST")
}

func (ws *WebServer) handleLGEStatus(w http.ResponseWriter, r *http.Request) {
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		return ws.app.LGE.Status(tx)
	})
}

func (ws *WebServer) handlePairReserves(w http.ResponseWriter, r *http.Request) {
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		token, native, err := ws.app.Pair.Reserves(tx.Bank)
		if err != nil {
			return nil, err
		}
		supply, err := tx.Bank.SupplyOf(ws.app.Pair.LPDenom())
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"address":        ws.app.Pair.Address,
			"lp_denom":       ws.app.Pair.LPDenom(),
			"token_reserve":  ws.renderAmount(token),
			"native_reserve": ws.renderAmount(native),
			"lp_supply":      supply,
		}, nil
	})
}

func (ws *WebServer) handleGetContribution(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "addr")
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.view(w, r, func(tx *ledger.Tx) (interface{}, error) {
		c, err := ws.app.LGE.Contribution(tx, addr)
		if err != nil {
			return nil, err
		}
		claimable, err := ws.app.LGE.ClaimableLP(tx, addr)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"address":      addr,
			"contributed":  ws.renderAmount(c.Amount),
			"claimed":      c.Claimed,
			"claimable_lp": claimable,
		}, nil
	})
}

// handleContribute attaches amount of the native currency to the call.
func (ws *WebServer) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := decodeRequest(r, w, &req); err != nil {
		ws.badRequest(w, err)
		return
	}
	value, err := parseAmount(req.Amount, ws.app.Params().TokenDecimals)
	if err != nil {
		ws.badRequest(w, err)
		return
	}
	ws.execute(w, r, "contribute", ledger.Call{Value: value}, func(tx *ledger.Tx) (interface{}, error) {
		return ws.app.LGE.Contribute(tx, req.Agreement)
	})
}

func (ws *WebServer) handleCreateLiquidity(w http.ResponseWriter, r *http.Request) {
	ws.execute(w, r, "createLiquidity", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return ws.app.LGE.CreateLiquidity(tx)
	})
}

func (ws *WebServer) handleClaimLP(w http.ResponseWriter, r *http.Request) {
	ws.execute(w, r, "claimLPTokens", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return ws.app.LGE.ClaimLPTokens(tx)
	})
}

func (ws *WebServer) handleDrain(w http.ResponseWriter, r *http.Request) {
	ws.execute(w, r, "emergencyDrain24hAfterLiquidityGenerationEventIsDone", ledger.Call{}, func(tx *ledger.Tx) (interface{}, error) {
		return ws.app.LGE.EmergencyDrain24hAfterLiquidityGenerationEventIsDone(tx)
	})
}
