// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"log/slog"
	"testing"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
)

func TestFromLegacyLevel(t *testing.T) {
	assert.Equal(t, LevelCrit, FromLegacyLevel(0))
	assert.Equal(t, LevelError, FromLegacyLevel(1))
	assert.Equal(t, LevelWarn, FromLegacyLevel(2))
	assert.Equal(t, LevelInfo, FromLegacyLevel(3))
	assert.Equal(t, LevelDebug, FromLegacyLevel(4))
	assert.Equal(t, LevelTrace, FromLegacyLevel(5))
	assert.Equal(t, LevelTrace, FromLegacyLevel(9))
}

func TestWithContextFollowsRoot(t *testing.T) {
	old := ethlog.Root()
	defer ethlog.SetDefault(old)

	// created before the handler is installed
	logger := WithContext("pkg", "sampler")

	var buf bytes.Buffer
	var level slog.LevelVar
	level.Set(LevelInfo)
	SetDefault(NewHandler(&buf, &level, true))

	logger.Info("sampled", "quantity", 3)
	logger.Debug("hidden")
	logger.With("attempt", 1).Warn("retry")

	out := buf.String()
	assert.Contains(t, out, `"pkg":"sampler"`)
	assert.Contains(t, out, `"msg":"sampled"`)
	assert.Contains(t, out, `"attempt":1`)
	assert.NotContains(t, out, "hidden")

	buf.Reset()
	level.Set(LevelDebug)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestTerminalHandlerLevelChange(t *testing.T) {
	var buf bytes.Buffer
	var level slog.LevelVar
	level.Set(LevelWarn)

	h := NewHandler(&buf, &level, false)
	child := h.WithAttrs([]slog.Attr{slog.String("pkg", "registrar")})
	logger := slog.New(child)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	level.Set(LevelInfo)
	logger.Info("enrolled")
	assert.Contains(t, buf.String(), "enrolled")
	assert.Contains(t, buf.String(), "pkg=registrar")
}
