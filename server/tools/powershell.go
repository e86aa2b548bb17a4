package tools

import (
	"context"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/winpath"
	mcp "github.com/metoro-io/mcp-golang"
	"go.uber.org/zap"
)

// JoinPathArgs - Arguments for the join_path tool
type JoinPathArgs struct {
	Paths      []interface{} `json:"paths" jsonschema:"required,description=Two or more path fragments"`
	PathSep    string        `json:"path_sep,omitempty" jsonschema:"description=Separator to emit (default backslash)"`
	StripDrive bool          `json:"strip_drive,omitempty" jsonschema:"description=Remove a leading drive letter such as c:"`
}

// CommandArgs - Arguments for the build_ps_command and ps_exec tools
type CommandArgs struct {
	Command string            `json:"command" jsonschema:"required,description=The PowerShell command"`
	Options map[string]string `json:"options,omitempty" jsonschema:"description=verify_cmd / excep_fail / encode flags plus powershell.exe options such as ExecutionPolicy"`
}

// ScriptArgs - Arguments for the ps_script tool
type ScriptArgs struct {
	Script string `json:"script" jsonschema:"required,description=The PowerShell script body"`
}

// BuiltCommand - Value returned by build_ps_command
type BuiltCommand struct {
	Text        string            `json:"text"`
	CommandLine string            `json:"command_line"`
	Options     map[string]string `json:"options,omitempty"`
}

// JoinPath handles join_path
func (t *Tools) JoinPath(args JoinPathArgs) (*mcp.ToolResponse, error) {
	joined, err := winpath.JoinAny(args.Paths,
		winpath.WithSeparator(args.PathSep),
		winpath.WithStripDrive(args.StripDrive))
	if err != nil {
		return t.respondError("join_path", err)
	}
	return t.respondOK(joined)
}

// BuildCommand handles build_ps_command
func (t *Tools) BuildCommand(args CommandArgs) (*mcp.ToolResponse, error) {
	if err := requireString("command", args.Command); err != nil {
		return t.respondError("build_ps_command", err)
	}

	spec, err := pscmd.ParseSpec(args.Options)
	if err != nil {
		return t.respondError("build_ps_command", err)
	}

	built := pscmd.Build(args.Command, spec)
	return t.respondOK(BuiltCommand{
		Text:        built.Text(),
		CommandLine: built.CommandLine(pscmd.DefaultExecutable, pscmd.DefaultOptions),
		Options:     built.Options,
	})
}

// Exec handles ps_exec
func (t *Tools) Exec(args CommandArgs) (*mcp.ToolResponse, error) {
	if err := requireString("command", args.Command); err != nil {
		return t.respondError("ps_exec", err)
	}

	spec, err := pscmd.ParseSpec(args.Options)
	if err != nil {
		return t.respondError("ps_exec", err)
	}

	zap.S().Debugw("executing ps_exec",
		"command", args.Command,
		"verify_cmd", spec.VerifyCmd,
		"excep_fail", spec.ExcepFail,
		"encode", spec.Encode)

	outcome, verdict, err := t.client.RunPowerShell(context.Background(), args.Command, spec)
	if err != nil {
		return t.respondError("ps_exec", err)
	}

	verdictErr := verdict.Err(outcome)
	result := ToolResult{
		OK:      verdictErr == nil && verdict != pscmd.VerdictFalse,
		Host:    t.client.Host(),
		Verdict: verdict.String(),
		Outcome: &outcome,
	}
	if verdictErr != nil {
		result.Error = verdictErr.Error()
		result.ErrorClass = errorClass(verdictErr)
	}
	return respond(result)
}

// Script handles ps_script
func (t *Tools) Script(args ScriptArgs) (*mcp.ToolResponse, error) {
	if err := requireString("script", args.Script); err != nil {
		return t.respondError("ps_script", err)
	}

	outcome, err := t.client.RunScript(context.Background(), args.Script)
	if err != nil {
		return t.respondError("ps_script", err)
	}

	return respond(ToolResult{
		OK:      true,
		Host:    t.client.Host(),
		Verdict: pscmd.VerdictRaw.String(),
		Outcome: &outcome,
	})
}
