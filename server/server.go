package server

import (
	"github.com/cockroachdb/errors"
	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"
	"go.uber.org/zap"

	"github.com/cnosuke/mcp-winhost/config"
	"github.com/cnosuke/mcp-winhost/server/tools"
	"github.com/cnosuke/mcp-winhost/transport"
	"github.com/cnosuke/mcp-winhost/winhost"
)

// NewHostClient - Create the SSH transport and the feature client for the
// configured host. The caller closes the transport.
func NewHostClient(cfg *config.Config) (*winhost.Client, *transport.SSH, error) {
	if cfg.Host.Address == "" {
		return nil, nil, errors.New("host.address is not configured")
	}

	zap.S().Debugw("creating host client",
		"address", cfg.Host.Address,
		"user", cfg.Host.User,
		"powershell", cfg.PowerShell.Executable)

	ssh := transport.NewSSH(cfg.TransportOptions())
	return winhost.New(ssh, cfg.Host.Address), ssh, nil
}

// Run - Execute the MCP server
func Run(cfg *config.Config) error {
	zap.S().Infow("starting MCP Windows host server")

	// Channel to prevent server from terminating
	done := make(chan struct{})

	client, ssh, err := NewHostClient(cfg)
	if err != nil {
		zap.S().Errorw("failed to create host client", "error", err)
		return err
	}
	defer func() {
		if err := ssh.Close(); err != nil {
			zap.S().Warnw("failed to close ssh connections", "error", err)
		}
	}()

	// Create server with stdio transport
	zap.S().Debugw("creating MCP server with stdio transport")
	server := mcp.NewServer(stdio.NewStdioServerTransport())

	// Register all tools
	zap.S().Debugw("registering tools")
	if err := tools.RegisterAllTools(server, client); err != nil {
		zap.S().Errorw("failed to register tools", "error", err)
		return err
	}

	// Start the server
	zap.S().Infow("starting MCP server")
	if err := server.Serve(); err != nil {
		zap.S().Errorw("failed to start server", "error", err)
		return errors.Wrap(err, "failed to start server")
	}

	// Block to prevent program termination
	zap.S().Infow("waiting for requests...", "host", client.Host())
	<-done
	zap.S().Infow("server shutting down")
	return nil
}
