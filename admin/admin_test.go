// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nucypher/nkms-eth/registrar"
)

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLogLevel(t *testing.T) {
	var logLevel slog.LevelVar
	logLevel.Set(slog.LevelInfo)
	h := HTTPHandler(&logLevel, nil)

	tests := []struct {
		name          string
		method        string
		body          string
		expectedCode  int
		expectedLevel string
		expectedError string
	}{
		{"get", http.MethodGet, "", http.StatusOK, "INFO", ""},
		{"post debug", http.MethodPost, `{"level":"debug"}`, http.StatusOK, "DEBUG", ""},
		{"post invalid level", http.MethodPost, `{"level":"loud"}`, http.StatusBadRequest, "", "Invalid verbosity level"},
		{"post invalid body", http.MethodPost, `{`, http.StatusBadRequest, "", "Invalid request body"},
		{"delete", http.MethodDelete, "", http.StatusMethodNotAllowed, "", "method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, "/admin/loglevel", []byte(tt.body))
			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedError != "" {
				var resp errorResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError, resp.ErrorMessage)
				return
			}
			var resp logLevelResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.expectedLevel, resp.CurrentLevel)
		})
	}
	assert.Equal(t, slog.LevelDebug, logLevel.Level())
}

func TestContracts(t *testing.T) {
	reg, err := registrar.NewMem(big.NewInt(1))
	require.NoError(t, err)
	defer reg.Close()

	token := common.HexToAddress("0x0a")
	require.NoError(t, reg.Enroll("NuCypherKMSToken", token))

	var logLevel slog.LevelVar
	h := HTTPHandler(&logLevel, reg)

	rr := do(t, h, http.MethodGet, "/admin/contracts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []contractResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "NuCypherKMSToken", list[0].Name)
	assert.Equal(t, token, list[0].Latest)

	rr = do(t, h, http.MethodGet, "/admin/contracts/NuCypherKMSToken", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/admin/contracts/MinersEscrow", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, HTTPHandler(&logLevel, nil), http.MethodGet, "/admin/contracts", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStartServers(t *testing.T) {
	var logLevel slog.LevelVar
	url, stop, err := StartServer("127.0.0.1:0", &logLevel, nil)
	require.NoError(t, err)
	defer stop()

	resp, err := http.Get(url + "/loglevel")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsURL, stopMetrics, err := StartMetricsServer("127.0.0.1:0")
	require.NoError(t, err)
	defer stopMetrics()

	resp, err = http.Get(metricsURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	_, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	// the registry is a no-op until prometheus is initialized
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, _, err = StartServer("256.0.0.1:0", &logLevel, nil)
	assert.Error(t, err)
}
