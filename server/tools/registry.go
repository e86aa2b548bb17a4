package tools

import (
	"context"

	"github.com/cnosuke/mcp-winhost/winhost"
	mcp "github.com/metoro-io/mcp-golang"
)

// PathExistsArgs - Arguments for the path_exists tool
type PathExistsArgs struct {
	Path string `json:"path" jsonschema:"required,description=Path on the Windows host"`
	Type string `json:"type,omitempty" jsonschema:"enum=any,enum=container,enum=leaf,description=Kind of item expected (default any)"`
}

// RegistryKeyArgs - Arguments addressing a registry key
type RegistryKeyArgs struct {
	Hive    string `json:"hive" jsonschema:"required,enum=hklm,enum=hkcu,enum=hku"`
	Path    string `json:"path" jsonschema:"required,description=Key path below the hive"`
	Recurse bool   `json:"recurse,omitempty" jsonschema:"description=Remove nested subkeys and values too"`
}

// RegistryValueArgs - Arguments addressing a registry value
type RegistryValueArgs struct {
	Hive     string `json:"hive" jsonschema:"required,enum=hklm,enum=hkcu,enum=hku"`
	Path     string `json:"path" jsonschema:"required,description=Key path below the hive"`
	Name     string `json:"name" jsonschema:"required,description=Name of the registry value"`
	Data     string `json:"data,omitempty" jsonschema:"description=Data to write (registry_set only)"`
	DataType string `json:"data_type,omitempty" jsonschema:"enum=string,enum=multi,enum=expand,enum=dword,enum=qword,enum=bin,description=Value type (default string)"`
}

// PathExists handles path_exists
func (t *Tools) PathExists(args PathExistsArgs) (*mcp.ToolResponse, error) {
	if err := requireString("path", args.Path); err != nil {
		return t.respondError("path_exists", err)
	}
	if err := t.client.AssertPath(context.Background(), args.Path, winhost.PathType(args.Type)); err != nil {
		return t.respondError("path_exists", err)
	}
	return t.respondOK(true)
}

// RegistryGet handles registry_get
func (t *Tools) RegistryGet(args RegistryValueArgs) (*mcp.ToolResponse, error) {
	data, err := t.client.GetRegistryValue(context.Background(), winhost.Hive(args.Hive), args.Path, args.Name)
	if err != nil {
		return t.respondError("registry_get", err)
	}
	return t.respondOK(data)
}

// RegistrySet handles registry_set
func (t *Tools) RegistrySet(args RegistryValueArgs) (*mcp.ToolResponse, error) {
	err := t.client.SetRegistryValue(context.Background(),
		winhost.Hive(args.Hive), args.Path, args.Name, args.Data, winhost.DataType(args.DataType))
	if err != nil {
		return t.respondError("registry_set", err)
	}
	return t.respondOK(nil)
}

// RegistryRemoveValue handles registry_remove_value
func (t *Tools) RegistryRemoveValue(args RegistryValueArgs) (*mcp.ToolResponse, error) {
	if err := t.client.RemoveRegistryValue(context.Background(), winhost.Hive(args.Hive), args.Path, args.Name); err != nil {
		return t.respondError("registry_remove_value", err)
	}
	return t.respondOK(nil)
}

// RegistryNewKey handles registry_new_key
func (t *Tools) RegistryNewKey(args RegistryKeyArgs) (*mcp.ToolResponse, error) {
	if err := t.client.NewRegistryKey(context.Background(), winhost.Hive(args.Hive), args.Path); err != nil {
		return t.respondError("registry_new_key", err)
	}
	return t.respondOK(nil)
}

// RegistryRemoveKey handles registry_remove_key
func (t *Tools) RegistryRemoveKey(args RegistryKeyArgs) (*mcp.ToolResponse, error) {
	if err := t.client.RemoveRegistryKey(context.Background(), winhost.Hive(args.Hive), args.Path, args.Recurse); err != nil {
		return t.respondError("registry_remove_key", err)
	}
	return t.respondOK(nil)
}
