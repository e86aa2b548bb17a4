package winhost

import (
	"context"
	"strings"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Transport delivers built command text to a host and blocks until the
// remote process has exited.
type Transport interface {
	Execute(ctx context.Context, host string, cmd pscmd.Built) (types.RemoteOutcome, error)
}

// Client runs feature operations against a single host
type Client struct {
	transport Transport
	host      string
}

// New - Create a client bound to host
func New(transport Transport, host string) *Client {
	return &Client{
		transport: transport,
		host:      host,
	}
}

// Host returns the host this client targets
func (c *Client) Host() string {
	return c.host
}

// RunPowerShell builds raw with spec, executes it and classifies the outcome.
// The verdict's error is not applied; the caller decides what a failure means.
func (c *Client) RunPowerShell(ctx context.Context, raw string, spec pscmd.Spec) (types.RemoteOutcome, pscmd.Verdict, error) {
	outcome, err := c.execute(ctx, pscmd.Build(raw, spec))
	if err != nil {
		return outcome, pscmd.VerdictRaw, err
	}

	verdict := pscmd.Decode(spec, outcome)
	zap.S().Debugw("powershell command finished",
		"host", c.host,
		"exit_code", outcome.ExitCode,
		"verdict", verdict.String())

	return outcome, verdict, nil
}

func (c *Client) execute(ctx context.Context, built pscmd.Built) (types.RemoteOutcome, error) {
	zap.S().Debugw("executing powershell command",
		"host", c.host,
		"command", built.Text(),
		"options", built.Options)

	outcome, err := c.transport.Execute(ctx, c.host, built)
	if err != nil {
		return outcome, errors.Wrapf(err, "failed to execute command on %s", c.host)
	}
	if outcome.Host == "" {
		outcome.Host = c.host
	}
	return outcome, nil
}

// encodedSpec is used for templates carrying user supplied names and paths
func encodedSpec() pscmd.Spec {
	spec := pscmd.NewSpec()
	spec.Encode = true
	return spec
}

// quoteLiteral renders s as a single-quoted PowerShell string literal body
func quoteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
