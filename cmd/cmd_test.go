package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp("mcp-winhost", "test", "test")
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(append([]string{"mcp-winhost"}, args...))
	return out.String(), err
}

func TestJoinCommand(t *testing.T) {
	out, err := runApp(t, "join", `c:\cats`, `go/meow`)
	require.NoError(t, err)
	assert.Equal(t, `c:\cats\go\meow`+"\n", out)

	out, err = runApp(t, "join", "--sep", "/", "--strip-drive", `c:\cats`, `go\meow`)
	require.NoError(t, err)
	assert.Equal(t, "/cats/go/meow\n", out)

	_, err = runApp(t, "join", `c:\cats`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
}

func TestBuildCommand(t *testing.T) {
	out, err := runApp(t, "build", "--verify", "-o", "ExecutionPolicy=Unrestricted", "1", "-eq", "1")
	require.NoError(t, err)
	assert.Equal(t,
		`powershell.exe -ExecutionPolicy Unrestricted -InputFormat None -NoLogo -NoProfile -NonInteractive `+
			`-Command "try { if ( 1 -eq 1 ) { exit 0 } else { exit 1 } } catch { Write-Host \$_.Exception.Message; exit 1 }"`+"\n",
		out)

	out, err = runApp(t, "build", "--encode", "--excep-fail=false", "Get-Date")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "-EncodedCommand "+pscmd.EncodeCommand("Get-Date")+"\n"))

	_, err = runApp(t, "build")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))

	_, err = runApp(t, "build", "-o", "=x", "Get-Date")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
}

func TestBuildCommand_OptionFlagsKeptUnlessOverridden(t *testing.T) {
	out, err := runApp(t, "build", "-o", "encode=true", "-o", "excep_fail=false", "Get-Date")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "-EncodedCommand "+pscmd.EncodeCommand("Get-Date")+"\n"))

	out, err = runApp(t, "build", "-o", "encode=true", "--encode=false", "-o", "excep_fail=false", "Get-Date")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, `-Command "Get-Date"`+"\n"))

	_, err = runApp(t, "build", "-o", "encode=true", "-o", "EncodedCommand=false", "Get-Date")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
}
