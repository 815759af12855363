// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/nucypher/nkms-eth/log"
	"github.com/nucypher/nkms-eth/registrar"
)

var levels = map[string]slog.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
	"crit":  log.LevelCrit,
}

type logLevelRequest struct {
	Level string `json:"level"`
}

type logLevelResponse struct {
	CurrentLevel string `json:"currentLevel"`
}

type errorResponse struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, errCode int, errMsg string) {
	writeJSON(w, errCode, errorResponse{
		ErrorCode:    errCode,
		ErrorMessage: errMsg,
	})
}

func getLogLevelHandler(logLevel *slog.LevelVar) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, logLevelResponse{
			CurrentLevel: logLevel.Level().String(),
		})
	}
}

func postLogLevelHandler(logLevel *slog.LevelVar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logLevelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		level, ok := levels[req.Level]
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid verbosity level")
			return
		}
		logLevel.Set(level)
		logger.Info("log level changed", "level", level)

		writeJSON(w, http.StatusOK, logLevelResponse{
			CurrentLevel: logLevel.Level().String(),
		})
	}
}

type contractResponse struct {
	Name      string           `json:"name"`
	Latest    common.Address   `json:"latest"`
	Addresses []common.Address `json:"addresses"`
}

func listContractsHandler(reg *registrar.Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		names, err := reg.Names()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp := make([]contractResponse, 0, len(names))
		for _, name := range names {
			addrs, err := reg.Addresses(name)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			resp = append(resp, contractResponse{Name: name, Latest: addrs[len(addrs)-1], Addresses: addrs})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getContractHandler(reg *registrar.Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		addrs, err := reg.Addresses(name)
		if err != nil {
			if errors.Is(err, registrar.ErrUnknownContract) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, contractResponse{Name: name, Latest: addrs[len(addrs)-1], Addresses: addrs})
	}
}
