package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/asaskevich/govalidator"
	"github.com/elys-network/lgevault/internal/types"
	"github.com/elys-network/lgevault/internal/utils"
	"github.com/gorilla/mux"
)

type addressRequest struct {
	Address string `json:"address" valid:"required"`
}

// decodeRequest reads a JSON body into dst and applies its valid tags. An empty body decodes as {}.
func decodeRequest(r *http.Request, w http.ResponseWriter, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("malformed request body: %w", err)
	}
	if _, err := govalidator.ValidateStruct(dst); err != nil {
		return err
	}
	return nil
}

// parseAmount accepts a base-unit integer ("1500000000000000000") or a decimal in units of the
// given precision ("1.5").
func parseAmount(s string, decimals int32) (sdkmath.Int, error) {
	if strings.Contains(s, ".") {
		return utils.ParseUnits(s, decimals)
	}
	return utils.ParseAmount(s)
}

func pathPid(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["pid"]
	pid, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid pool id %q", raw)
	}
	return pid, nil
}

func pathAddress(r *http.Request, name string) (types.Address, error) {
	return types.ParseAddress(mux.Vars(r)[name])
}

// amountView renders an amount both in base units and in token units.
type amountView struct {
	Amount    sdkmath.Int `json:"amount"`
	Formatted string      `json:"formatted"`
}

func (ws *WebServer) renderAmount(amount sdkmath.Int) amountView {
	formatted, err := utils.FormatUnits(amount, ws.app.Params().TokenDecimals)
	if err != nil {
		formatted = amount.String()
	}
	return amountView{Amount: amount, Formatted: formatted}
}

func (ws *WebServer) badRequest(w http.ResponseWriter, err error) {
	ws.writeErrorResponse(w, http.StatusBadRequest, "BadRequest", err.Error())
}
