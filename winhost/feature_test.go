package winhost

import (
	"context"
	"testing"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetWindowsFeatures(t *testing.T) {
	tests := []struct {
		name   string
		filter FeatureFilter
		raw    string
	}{
		{"all by default", "", "Get-WindowsFeature | Select -ExpandProperty Name"},
		{"installed", FilterInstalled, `Get-WindowsFeature | Where { \$_.Installed -Eq \$true } | Select -ExpandProperty Name`},
		{"available", FilterAvailable, `Get-WindowsFeature | Where { \$_.Installed -Eq \$false } | Select -ExpandProperty Name`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, transport := newTestClient(t)
			expectCommand(transport, tt.raw, pscmd.NewSpec(), types.RemoteOutcome{Stdout: "feature1\r\nfeature2\nfeature3\n"})

			result, err := client.GetWindowsFeatures(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, []string{"feature1", "feature2", "feature3"}, result)
			transport.AssertExpectations(t)
		})
	}

	t.Run("invalid filter", func(t *testing.T) {
		client, transport := newTestClient(t)

		_, err := client.GetWindowsFeatures(context.Background(), FeatureFilter("bad"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrInvalidArgument))
		transport.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})

	t.Run("old powershell", func(t *testing.T) {
		client, transport := newTestClient(t)
		expectCommand(transport, tests[0].raw, pscmd.NewSpec(), types.RemoteOutcome{ExitCode: 1})

		_, err := client.GetWindowsFeatures(context.Background(), FilterAll)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrRemoteExecution))
		assert.Contains(t, err.Error(), "PowerShell 3")
	})

	t.Run("empty output", func(t *testing.T) {
		client, transport := newTestClient(t)
		expectCommand(transport, tests[0].raw, pscmd.NewSpec(), types.RemoteOutcome{Stdout: "\r\n"})

		result, err := client.GetWindowsFeatures(context.Background(), FilterAll)
		require.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestChangeWindowsFeature(t *testing.T) {
	install := func(c *Client, suppress bool) error {
		return c.InstallWindowsFeature(context.Background(), "Print-Server", suppress)
	}
	remove := func(c *Client, suppress bool) error {
		return c.RemoveWindowsFeature(context.Background(), "Print-Server", suppress)
	}

	ops := []struct {
		name string
		raw  string
		run  func(*Client, bool) error
	}{
		{"install", "(Install-WindowsFeature -Name 'Print-Server' -ErrorAction 'Stop').Success", install},
		{"remove", "(Remove-WindowsFeature -Name 'Print-Server' -ErrorAction 'Stop').Success", remove},
	}

	for _, op := range ops {
		t.Run(op.name+" succeeds", func(t *testing.T) {
			client, transport := newTestClient(t)
			expectCommand(transport, op.raw, pscmd.NewSpec(), types.RemoteOutcome{Stdout: "True\n"})
			assert.NoError(t, op.run(client, false))
			transport.AssertExpectations(t)
		})

		t.Run(op.name+" reports false", func(t *testing.T) {
			client, transport := newTestClient(t)
			expectCommand(transport, op.raw, pscmd.NewSpec(), types.RemoteOutcome{Stdout: "False\n"})
			err := op.run(client, false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrRemoteExecution))
		})

		t.Run(op.name+" throws", func(t *testing.T) {
			client, transport := newTestClient(t)
			expectCommand(transport, op.raw, pscmd.NewSpec(), types.RemoteOutcome{ExitCode: 1})
			err := op.run(client, false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrRemoteExecution))
			assert.Contains(t, err.Error(), "invalid feature name")
		})

		t.Run(op.name+" suppressed", func(t *testing.T) {
			client, transport := newTestClient(t)
			expectCommand(transport, op.raw, pscmd.NewSpec(), types.RemoteOutcome{ExitCode: 1})
			assert.NoError(t, op.run(client, true))

			client, transport = newTestClient(t)
			expectCommand(transport, op.raw, pscmd.NewSpec(), types.RemoteOutcome{Stdout: "False"})
			assert.NoError(t, op.run(client, true))
		})

		t.Run(op.name+" transport error is not suppressed", func(t *testing.T) {
			client, transport := newTestClient(t)
			transport.On("Execute", testHost, mock.Anything).
				Return(types.RemoteOutcome{}, errors.New("ssh: handshake failed"))
			assert.Error(t, op.run(client, true))
		})
	}
}

func TestAssertWindowsFeature(t *testing.T) {
	tests := []struct {
		name  string
		state FeatureState
		raw   string
	}{
		{"installed by default", "", "(Get-WindowsFeature -Name 'WINS').InstallState -Eq 'Installed'"},
		{"available", StateAvailable, "(Get-WindowsFeature -Name 'WINS').InstallState -Eq 'Available'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, transport := newTestClient(t)
			expectCommand(transport, tt.raw, pscmd.NewSpec(), types.RemoteOutcome{Stdout: "True"})
			assert.NoError(t, client.AssertWindowsFeature(context.Background(), "WINS", tt.state))
		})
	}

	t.Run("not in state", func(t *testing.T) {
		client, transport := newTestClient(t)
		expectCommand(transport, tests[0].raw, pscmd.NewSpec(), types.RemoteOutcome{Stdout: "False"})
		err := client.AssertWindowsFeature(context.Background(), "WINS", StateInstalled)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrAssertion))
	})

	t.Run("old powershell", func(t *testing.T) {
		client, transport := newTestClient(t)
		expectCommand(transport, tests[0].raw, pscmd.NewSpec(), types.RemoteOutcome{ExitCode: 1})
		err := client.AssertWindowsFeature(context.Background(), "WINS", StateInstalled)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrRemoteExecution))
	})

	t.Run("invalid state", func(t *testing.T) {
		client, _ := newTestClient(t)
		err := client.AssertWindowsFeature(context.Background(), "WINS", FeatureState("bad"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrInvalidArgument))
	})
}
