package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cnosuke/mcp-winhost/config"
	"github.com/cnosuke/mcp-winhost/logger"
	"github.com/cnosuke/mcp-winhost/server"
	"github.com/cnosuke/mcp-winhost/types"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
)

// NewExecCommand creates the exec command
func NewExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Aliases:   []string{"e"},
		Usage:     "Run a PowerShell command on the configured host",
		ArgsUsage: "COMMAND",
		Flags: append(specFlags(),
			configFlag(),
			&cli.StringFlag{
				Name:  "script",
				Usage: "run the PowerShell script file instead of COMMAND",
			},
		),
		Action: runExec,
	}
}

// execResult - Output of the exec command
type execResult struct {
	types.RemoteOutcome
	Verdict string `json:"verdict"`
}

func runExec(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return errors.Wrap(err, "failed to load configuration file")
	}

	if err := logger.InitLogger(cfg.Debug, cfg.Log); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	defer logger.Sync()

	client, ssh, err := server.NewHostClient(cfg)
	if err != nil {
		return err
	}
	defer ssh.Close()

	ctx := context.Background()
	var result execResult

	if path := c.String("script"); path != "" {
		script, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read script %s", path)
		}
		result.RemoteOutcome, err = client.RunScript(ctx, string(script))
		if err != nil {
			return err
		}
		result.Verdict = "raw"
	} else {
		if c.NArg() == 0 {
			return types.InvalidArgumentf("a command or --script is required")
		}
		spec, err := specFromFlags(c)
		if err != nil {
			return err
		}

		outcome, verdict, err := client.RunPowerShell(ctx, strings.Join(c.Args().Slice(), " "), spec)
		if err != nil {
			return err
		}
		result.RemoteOutcome = outcome
		result.Verdict = verdict.String()
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal result to JSON")
	}
	fmt.Fprintln(c.App.Writer, string(jsonBytes))

	if result.ExitCode != 0 {
		return cli.Exit("", result.ExitCode)
	}
	return nil
}
