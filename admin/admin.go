// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admin serves the operator endpoints: runtime log level, enrolled
// contracts and prometheus metrics.
package admin

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/nucypher/nkms-eth/log"
	"github.com/nucypher/nkms-eth/metrics"
	"github.com/nucypher/nkms-eth/registrar"
)

var logger = log.WithContext("pkg", "admin")

// HTTPHandler routes the admin endpoints. The contracts endpoints are only
// mounted when reg is not nil.
func HTTPHandler(logLevel *slog.LevelVar, reg *registrar.Registrar) http.Handler {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()

	sub.Path("/loglevel").
		Methods(http.MethodGet).
		Name("get-log-level").
		HandlerFunc(getLogLevelHandler(logLevel))
	sub.Path("/loglevel").
		Methods(http.MethodPost).
		Name("post-log-level").
		HandlerFunc(postLogLevelHandler(logLevel))

	if reg != nil {
		sub.Path("/contracts").
			Methods(http.MethodGet).
			Name("list-contracts").
			HandlerFunc(listContractsHandler(reg))
		sub.Path("/contracts/{name}").
			Methods(http.MethodGet).
			Name("get-contract").
			HandlerFunc(getContractHandler(reg))
	}
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return handlers.CompressHandler(router)
}

func serve(addr, name string, handler http.Handler) (*net.TCPAddr, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "listen %s API addr [%v]", name, addr)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes sync.WaitGroup
	goes.Go(func() {
		srv.Serve(listener)
	})
	return listener.Addr().(*net.TCPAddr), func() {
		srv.Close()
		goes.Wait()
	}, nil
}

// StartServer serves the admin endpoints on addr and returns their url with
// a function stopping the server.
func StartServer(addr string, logLevel *slog.LevelVar, reg *registrar.Registrar) (string, func(), error) {
	bound, stop, err := serve(addr, "admin", HTTPHandler(logLevel, reg))
	if err != nil {
		return "", nil, err
	}
	return "http://" + bound.String() + "/admin", stop, nil
}

// StartMetricsServer serves the metrics registry on addr.
func StartMetricsServer(addr string) (string, func(), error) {
	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())

	bound, stop, err := serve(addr, "metrics", handlers.CompressHandler(router))
	if err != nil {
		return "", nil, err
	}
	return "http://" + bound.String() + "/metrics", stop, nil
}
