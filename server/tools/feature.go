package tools

import (
	"context"

	"github.com/cnosuke/mcp-winhost/winhost"
	mcp "github.com/metoro-io/mcp-golang"
)

// FeaturesArgs - Arguments for the windows_features tool
type FeaturesArgs struct {
	Filter string `json:"filter,omitempty" jsonschema:"enum=all,enum=available,enum=installed,description=Which features to list (default all)"`
}

// FeatureArgs - Arguments for the feature install, remove and assert tools
type FeatureArgs struct {
	Name         string `json:"name" jsonschema:"required,description=Feature name (not the display name)"`
	SuppressFail bool   `json:"suppress_fail,omitempty" jsonschema:"description=Do not report a failed install or removal"`
	State        string `json:"state,omitempty" jsonschema:"enum=installed,enum=available,description=Expected state (windows_feature_assert only)"`
}

// Features handles windows_features
func (t *Tools) Features(args FeaturesArgs) (*mcp.ToolResponse, error) {
	features, err := t.client.GetWindowsFeatures(context.Background(), winhost.FeatureFilter(args.Filter))
	if err != nil {
		return t.respondError("windows_features", err)
	}
	return t.respondOK(features)
}

// FeatureInstall handles windows_feature_install
func (t *Tools) FeatureInstall(args FeatureArgs) (*mcp.ToolResponse, error) {
	if err := requireString("name", args.Name); err != nil {
		return t.respondError("windows_feature_install", err)
	}
	if err := t.client.InstallWindowsFeature(context.Background(), args.Name, args.SuppressFail); err != nil {
		return t.respondError("windows_feature_install", err)
	}
	return t.respondOK(nil)
}

// FeatureRemove handles windows_feature_remove
func (t *Tools) FeatureRemove(args FeatureArgs) (*mcp.ToolResponse, error) {
	if err := requireString("name", args.Name); err != nil {
		return t.respondError("windows_feature_remove", err)
	}
	if err := t.client.RemoveWindowsFeature(context.Background(), args.Name, args.SuppressFail); err != nil {
		return t.respondError("windows_feature_remove", err)
	}
	return t.respondOK(nil)
}

// FeatureAssert handles windows_feature_assert
func (t *Tools) FeatureAssert(args FeatureArgs) (*mcp.ToolResponse, error) {
	if err := requireString("name", args.Name); err != nil {
		return t.respondError("windows_feature_assert", err)
	}
	if err := t.client.AssertWindowsFeature(context.Background(), args.Name, winhost.FeatureState(args.State)); err != nil {
		return t.respondError("windows_feature_assert", err)
	}
	return t.respondOK(true)
}
