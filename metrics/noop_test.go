// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	noop := defaultNoopMetrics()

	noop.GetOrCreateCountMeter("count").Add(1)
	noop.GetOrCreateCountVecMeter("countVec", []string{"method"}).AddWithLabel(1, map[string]string{"method": "x"})
	noop.GetOrCreateHistogramMeter("hist", nil).Observe(10)
	gauge := noop.GetOrCreateGaugeMeter("gauge")
	gauge.Add(1)
	gauge.Set(2)

	server := httptest.NewServer(noop.GetOrCreateHandler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL) // nolint:noctx
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
