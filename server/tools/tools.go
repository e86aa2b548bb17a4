package tools

import (
	"context"
	"encoding/json"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/types"
	"github.com/cnosuke/mcp-winhost/winhost"
	"github.com/cockroachdb/errors"
	mcp "github.com/metoro-io/mcp-golang"
	"go.uber.org/zap"
)

// HostClient defines the feature operations the tools call
type HostClient interface {
	Host() string
	RunPowerShell(ctx context.Context, raw string, spec pscmd.Spec) (types.RemoteOutcome, pscmd.Verdict, error)
	RunScript(ctx context.Context, script string) (types.RemoteOutcome, error)
	AssertPath(ctx context.Context, path string, pathType winhost.PathType) error
	GetRegistryValue(ctx context.Context, hive winhost.Hive, path, name string) (string, error)
	SetRegistryValue(ctx context.Context, hive winhost.Hive, path, name, data string, dataType winhost.DataType) error
	RemoveRegistryValue(ctx context.Context, hive winhost.Hive, path, name string) error
	NewRegistryKey(ctx context.Context, hive winhost.Hive, path string) error
	RemoveRegistryKey(ctx context.Context, hive winhost.Hive, path string, recurse bool) error
	GetWindowsFeatures(ctx context.Context, filter winhost.FeatureFilter) ([]string, error)
	InstallWindowsFeature(ctx context.Context, name string, suppressFail bool) error
	RemoveWindowsFeature(ctx context.Context, name string, suppressFail bool) error
	AssertWindowsFeature(ctx context.Context, name string, state winhost.FeatureState) error
}

// ToolResult - JSON body returned by every tool
type ToolResult struct {
	OK         bool                 `json:"ok"`
	Host       string               `json:"host,omitempty"`
	Value      interface{}          `json:"value,omitempty"`
	Verdict    string               `json:"verdict,omitempty"`
	Outcome    *types.RemoteOutcome `json:"outcome,omitempty"`
	Error      string               `json:"error,omitempty"`
	ErrorClass string               `json:"error_class,omitempty"`
}

// Tools holds the dependencies shared by the tool handlers
type Tools struct {
	client HostClient
}

// New - Create the tool handlers around client
func New(client HostClient) *Tools {
	return &Tools{client: client}
}

// RegisterAllTools - Register all tools with the server
func RegisterAllTools(mcpServer *mcp.Server, client HostClient) error {
	t := New(client)

	registrations := []struct {
		name        string
		description string
		handler     interface{}
	}{
		{"join_path", "Join two or more Windows path fragments with mixed separators into one path.", t.JoinPath},
		{"build_ps_command", "Show the PowerShell invocation that would be sent for a command, without running it.", t.BuildCommand},
		{"ps_exec", "Run a PowerShell command on the Windows host and classify the exit code.", t.Exec},
		{"ps_script", "Upload a PowerShell script to the Windows host and run it.", t.Script},
		{"path_exists", "Assert that a path exists on the Windows host.", t.PathExists},
		{"registry_get", "Read the data of a registry value.", t.RegistryGet},
		{"registry_set", "Create or update a registry value.", t.RegistrySet},
		{"registry_remove_value", "Remove a registry value.", t.RegistryRemoveValue},
		{"registry_new_key", "Create a registry key, including missing parent keys.", t.RegistryNewKey},
		{"registry_remove_key", "Remove a registry key.", t.RegistryRemoveKey},
		{"windows_features", "List Windows roles and features by name.", t.Features},
		{"windows_feature_install", "Install a Windows role or feature.", t.FeatureInstall},
		{"windows_feature_remove", "Remove a Windows role or feature.", t.FeatureRemove},
		{"windows_feature_assert", "Assert that a Windows feature is installed or available.", t.FeatureAssert},
	}

	for _, r := range registrations {
		zap.S().Debugw("registering tool", "name", r.name)
		if err := mcpServer.RegisterTool(r.name, r.description, r.handler); err != nil {
			return errors.Wrapf(err, "failed to register tool %s", r.name)
		}
	}

	return nil
}

// respond converts a result to a text response
func respond(result ToolResult) (*mcp.ToolResponse, error) {
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		zap.S().Errorw("failed to marshal result to JSON", "error", err)
		return nil, errors.Wrap(err, "failed to marshal result to JSON")
	}
	return mcp.NewToolResponse(mcp.NewTextContent(string(jsonBytes))), nil
}

// respondError reports err in the result body instead of failing the call
func (t *Tools) respondError(tool string, err error) (*mcp.ToolResponse, error) {
	zap.S().Warnw("tool failed",
		"tool", tool,
		"error", err)

	return respond(ToolResult{
		Host:       t.client.Host(),
		Error:      err.Error(),
		ErrorClass: errorClass(err),
	})
}

func (t *Tools) respondOK(value interface{}) (*mcp.ToolResponse, error) {
	return respond(ToolResult{
		OK:    true,
		Host:  t.client.Host(),
		Value: value,
	})
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, types.ErrAssertion):
		return "assertion"
	case errors.Is(err, types.ErrRemoteExecution):
		return "remote_execution"
	default:
		return "transport"
	}
}

func requireString(name, value string) error {
	if value == "" {
		return types.InvalidArgumentf("%s is required", name)
	}
	return nil
}
