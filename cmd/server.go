package cmd

import (
	"github.com/cnosuke/mcp-winhost/config"
	"github.com/cnosuke/mcp-winhost/logger"
	"github.com/cnosuke/mcp-winhost/server"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
)

// NewServerCommand creates the server command
func NewServerCommand() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Start the MCP server for the configured Windows host",
		Flags:   []cli.Flag{configFlag()},
		Action:  runServer,
	}
}

// runServer starts the server
func runServer(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "failed to load configuration file")
	}

	if err := logger.InitLogger(cfg.Debug, cfg.Log); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	defer logger.Sync()

	return server.Run(cfg)
}
