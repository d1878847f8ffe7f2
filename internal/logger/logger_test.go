package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	require.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestComponentLoggerWritesToConsoleAndFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "vault.log")
	require.NoError(t, Setup(Options{Level: "debug", NoColor: true, FilePath: path, Out: &console}))

	l := GetForComponent("rebalancer")
	l.Info().Str("target", "100").Msg("Rebalance decided")

	require.Contains(t, console.String(), "Rebalance decided")
	require.Contains(t, console.String(), "component=rebalancer")

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"component":"rebalancer"`)
	require.Contains(t, string(contents), `"target":"100"`)
}
