package cmd

import (
	"fmt"
	"strings"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/types"
	"github.com/cnosuke/mcp-winhost/winpath"
	"github.com/urfave/cli/v2"
)

func specFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "verify",
			Usage: "exit 0 when the command evaluates true and 1 otherwise",
		},
		&cli.BoolFlag{
			Name:  "excep-fail",
			Value: true,
			Usage: "exit 1 when the command throws",
		},
		&cli.BoolFlag{
			Name:  "encode",
			Usage: "send the command base64 encoded with -EncodedCommand",
		},
		&cli.StringSliceFlag{
			Name:    "option",
			Aliases: []string{"o"},
			Usage:   "powershell.exe option as Name=Value, or Name for a bare switch",
		},
	}
}

// specFromFlags reads the command wrapping flags
func specFromFlags(c *cli.Context) (pscmd.Spec, error) {
	raw := make(map[string]string)
	for _, opt := range c.StringSlice("option") {
		name, value, _ := strings.Cut(opt, "=")
		if strings.TrimSpace(name) == "" {
			return pscmd.Spec{}, types.InvalidArgumentf("invalid option %q", opt)
		}
		raw[name] = value
	}

	spec, err := pscmd.ParseSpec(raw)
	if err != nil {
		return pscmd.Spec{}, err
	}
	// Explicit flags win over the same setting given with -o
	if c.IsSet("verify") {
		spec.VerifyCmd = c.Bool("verify")
	}
	if c.IsSet("excep-fail") {
		spec.ExcepFail = c.Bool("excep-fail")
	}
	if c.IsSet("encode") {
		spec.Encode = c.Bool("encode")
	}
	return spec, nil
}

// NewBuildCommand creates the build command
func NewBuildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Print the powershell.exe command line for a command without running it",
		ArgsUsage: "COMMAND",
		Flags: append(specFlags(),
			&cli.StringFlag{
				Name:  "executable",
				Value: pscmd.DefaultExecutable,
				Usage: "PowerShell executable",
			},
		),
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return types.InvalidArgumentf("a command is required")
			}
			spec, err := specFromFlags(c)
			if err != nil {
				return err
			}

			built := pscmd.Build(strings.Join(c.Args().Slice(), " "), spec)
			fmt.Fprintln(c.App.Writer, built.CommandLine(c.String("executable"), pscmd.DefaultOptions))
			return nil
		},
	}
}

// NewJoinCommand creates the join command
func NewJoinCommand() *cli.Command {
	return &cli.Command{
		Name:      "join",
		Usage:     "Join path fragments with mixed separators",
		ArgsUsage: "PATH PATH [PATH...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sep",
				Value: winpath.DefaultSeparator,
				Usage: "separator to emit",
			},
			&cli.BoolFlag{
				Name:  "strip-drive",
				Usage: "remove a leading drive letter",
			},
		},
		Action: func(c *cli.Context) error {
			joined, err := winpath.Join(c.Args().Slice(),
				winpath.WithSeparator(c.String("sep")),
				winpath.WithStripDrive(c.Bool("strip-drive")))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, joined)
			return nil
		},
	}
}
