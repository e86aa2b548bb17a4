package winhost

import (
	"context"
	"fmt"
	"strings"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/types"
	"github.com/cockroachdb/errors"
)

const (
	msgRequiresPowerShell3 = "this operation requires PowerShell 3 or greater"
	msgInvalidFeature      = "invalid feature name or incorrect PowerShell version"
)

// FeatureFilter narrows the list returned by GetWindowsFeatures
type FeatureFilter string

const (
	FilterAll       FeatureFilter = "all"
	FilterAvailable FeatureFilter = "available"
	FilterInstalled FeatureFilter = "installed"
)

// FeatureState is the install state checked by AssertWindowsFeature
type FeatureState string

const (
	StateInstalled FeatureState = "installed"
	StateAvailable FeatureState = "available"
)

// ListFeaturesCommand returns the raw command listing feature names
func ListFeaturesCommand(filter FeatureFilter) (string, error) {
	cmd := "Get-WindowsFeature"

	switch filter {
	case FilterAll, "":
	case FilterAvailable:
		cmd += ` | Where { \$_.Installed -Eq \$false }`
	case FilterInstalled:
		cmd += ` | Where { \$_.Installed -Eq \$true }`
	default:
		return "", types.InvalidArgumentf("unknown filter %q: specify all, available or installed", string(filter))
	}

	return cmd + " | Select -ExpandProperty Name", nil
}

// InstallFeatureCommand returns the raw command installing a feature
func InstallFeatureCommand(name string) string {
	return fmt.Sprintf("(Install-WindowsFeature -Name '%s' -ErrorAction 'Stop').Success", quoteLiteral(name))
}

// RemoveFeatureCommand returns the raw command removing a feature
func RemoveFeatureCommand(name string) string {
	return fmt.Sprintf("(Remove-WindowsFeature -Name '%s' -ErrorAction 'Stop').Success", quoteLiteral(name))
}

// FeatureStateCommand returns the raw command comparing a feature's install state
func FeatureStateCommand(name string, state FeatureState) (string, error) {
	cmd := fmt.Sprintf("(Get-WindowsFeature -Name '%s').InstallState -Eq ", quoteLiteral(name))

	switch state {
	case StateAvailable:
		cmd += "'Available'"
	case StateInstalled, "":
		cmd += "'Installed'"
	default:
		return "", types.InvalidArgumentf("unknown feature state %q: specify either available or installed", string(state))
	}

	return cmd, nil
}

// GetWindowsFeatures lists role and feature names. Requires PowerShell 3 or
// greater on the host.
func (c *Client) GetWindowsFeatures(ctx context.Context, filter FeatureFilter) ([]string, error) {
	raw, err := ListFeaturesCommand(filter)
	if err != nil {
		return nil, err
	}

	outcome, err := c.runFeature(ctx, raw, msgRequiresPowerShell3)
	if err != nil {
		return nil, err
	}

	out := strings.TrimRight(outcome.Stdout, " \t\r\n")
	if out == "" {
		return []string{}, nil
	}
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines, nil
}

// InstallWindowsFeature installs a role or feature by name (not display name)
func (c *Client) InstallWindowsFeature(ctx context.Context, name string, suppressFail bool) error {
	return c.changeFeature(ctx, InstallFeatureCommand(name), "install", name, suppressFail)
}

// RemoveWindowsFeature removes a role or feature by name (not display name)
func (c *Client) RemoveWindowsFeature(ctx context.Context, name string, suppressFail bool) error {
	return c.changeFeature(ctx, RemoveFeatureCommand(name), "remove", name, suppressFail)
}

func (c *Client) changeFeature(ctx context.Context, raw, action, name string, suppressFail bool) error {
	outcome, err := c.runFeature(ctx, raw, msgInvalidFeature)
	if suppressFail {
		// Transport errors are never suppressed, only the remote verdict.
		if err != nil && !errors.Is(err, types.ErrRemoteExecution) {
			return err
		}
		return nil
	}
	if err != nil {
		return err
	}
	if !strings.Contains(outcome.Stdout, "True") {
		return types.RemoteExecutionf("failed to %s feature %q on %s", action, name, c.host)
	}
	return nil
}

// AssertWindowsFeature fails with types.ErrAssertion unless the feature is in
// the given state.
func (c *Client) AssertWindowsFeature(ctx context.Context, name string, state FeatureState) error {
	if state == "" {
		state = StateInstalled
	}
	raw, err := FeatureStateCommand(name, state)
	if err != nil {
		return err
	}

	outcome, err := c.runFeature(ctx, raw, msgRequiresPowerShell3)
	if err != nil {
		return err
	}
	if !strings.Contains(outcome.Stdout, "True") {
		return types.Assertionf("feature %q is not %s or does not exist on %s", name, string(state), c.host)
	}
	return nil
}

func (c *Client) runFeature(ctx context.Context, raw, failure string) (types.RemoteOutcome, error) {
	outcome, verdict, err := c.RunPowerShell(ctx, raw, pscmd.NewSpec())
	if err != nil {
		return outcome, err
	}
	if verdict == pscmd.VerdictFailed {
		return outcome, errors.WithDetail(
			types.RemoteExecutionf("%s on %s", failure, c.host),
			strings.TrimSpace(outcome.Stdout))
	}
	return outcome, nil
}
