package winhost

import (
	"context"
	"fmt"

	"github.com/cnosuke/mcp-winhost/types"
)

// PathType restricts what kind of item AssertPath accepts
type PathType string

const (
	PathAny       PathType = "any"
	PathContainer PathType = "container"
	PathLeaf      PathType = "leaf"
)

// testPathType maps a PathType to the Test-Path -Type argument
func testPathType(t PathType) (string, error) {
	switch t {
	case PathAny, "":
		return "Any", nil
	case PathContainer:
		return "Container", nil
	case PathLeaf:
		return "Leaf", nil
	default:
		return "", types.InvalidArgumentf("invalid path type %q: specify any, container or leaf", string(t))
	}
}

// PathExistsCommand returns the raw command that tests for path
func PathExistsCommand(path string, pathType PathType) (string, error) {
	psType, err := testPathType(pathType)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Test-Path -Path '%s' -Type %s", quoteLiteral(path), psType), nil
}

// AssertPath fails with types.ErrAssertion unless path exists on the host as
// the given type.
func (c *Client) AssertPath(ctx context.Context, path string, pathType PathType) error {
	raw, err := PathExistsCommand(path, pathType)
	if err != nil {
		return err
	}

	spec := encodedSpec()
	spec.VerifyCmd = true

	outcome, _, err := c.RunPowerShell(ctx, raw, spec)
	if err != nil {
		return err
	}

	// Exit code 1 here is either "no such path" or a thrown error; both mean
	// the path cannot be asserted.
	if outcome.ExitCode != 0 {
		return types.Assertionf("path %q does not exist on %s", path, c.host)
	}
	return nil
}
