// Package pscmd builds PowerShell command text for remote execution and
// classifies the outcome of running it.
//
// A raw command goes through a fixed pipeline: an optional verification wrap
// that turns a boolean expression into an exit code, an optional try/catch
// wrap that maps a thrown error to exit code 1, and finally either quoting for
// -Command or UTF-16LE base64 encoding for -EncodedCommand.
package pscmd

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cnosuke/mcp-winhost/types"
	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/unicode"
)

// Recognized flag names. Anything else in an option map is passed through.
const (
	FlagVerifyCmd      = "verify_cmd"
	FlagExcepFail      = "excep_fail"
	FlagEncode         = "encode"
	FlagEncodedCommand = "EncodedCommand"
)

// Invocation flags placed in front of the payload
const (
	InvocationCommand        = "-Command"
	InvocationEncodedCommand = "-EncodedCommand"
	InvocationFile           = "-File"
)

// Spec describes how a raw command is wrapped
type Spec struct {
	// VerifyCmd exits 0 when the command evaluates true and 1 otherwise
	VerifyCmd bool
	// ExcepFail exits 1 when the command throws
	ExcepFail bool
	// Encode sends the command as base64 UTF-16LE instead of quoted text
	Encode bool
	// Options are forwarded to powershell.exe as -Name Value
	Options map[string]string
}

// NewSpec returns a Spec with the default flags
func NewSpec() Spec {
	return Spec{ExcepFail: true}
}

// ParseSpec reads the recognized flags out of a loosely typed option map and
// keeps every other entry as a pass-through option. Two keys naming the same
// flag or option once normalized are rejected.
func ParseSpec(raw map[string]string) (Spec, error) {
	spec := NewSpec()
	seen := make(map[string]string, len(raw))
	for _, k := range sortedKeys(raw) {
		v := raw[k]
		key := normalizeKey(k)
		canonical := key
		if key == FlagEncodedCommand {
			canonical = FlagEncode
		}
		if prev, ok := seen[canonical]; ok {
			return Spec{}, types.InvalidArgumentf("options %q and %q both set %s", prev, k, canonical)
		}
		seen[canonical] = k

		switch key {
		case FlagVerifyCmd, FlagExcepFail, FlagEncode, FlagEncodedCommand:
			b, err := parseBool(v)
			if err != nil {
				return Spec{}, types.InvalidArgumentf("invalid boolean for %s: %q", key, v)
			}
			switch key {
			case FlagVerifyCmd:
				spec.VerifyCmd = b
			case FlagExcepFail:
				spec.ExcepFail = b
			default:
				spec.Encode = b
			}
		default:
			if spec.Options == nil {
				spec.Options = make(map[string]string)
			}
			spec.Options[key] = v
		}
	}
	return spec, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseBool treats an empty value as true so that a bare flag enables it
func parseBool(v string) (bool, error) {
	if strings.TrimSpace(v) == "" {
		return true, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

func normalizeKey(k string) string {
	return strings.TrimLeft(strings.TrimSpace(k), "-")
}

func isRecognizedFlag(key string) bool {
	switch key {
	case FlagVerifyCmd, FlagExcepFail, FlagEncode, FlagEncodedCommand:
		return true
	}
	return false
}

// Built is the command text ready to hand to a transport
type Built struct {
	// Flag is the invocation flag, -Command, -EncodedCommand or -File
	Flag string `json:"flag"`
	// Payload is the quoted command, the base64 text or the script path
	Payload string `json:"payload"`
	// Options are the pass-through invocation options
	Options map[string]string `json:"options,omitempty"`
}

// Text returns the invocation flag followed by its payload
func (b Built) Text() string {
	if b.Flag == "" {
		return b.Payload
	}
	return b.Flag + " " + b.Payload
}

// Build wraps raw according to spec. It is a pure text transform.
func Build(raw string, spec Spec) Built {
	command := raw

	if spec.VerifyCmd {
		command = fmt.Sprintf("if ( %s ) { exit 0 } else { exit 1 }", command)
	}

	if spec.ExcepFail {
		// The host shell must not expand $_ when the text travels quoted
		varAccessor := `\$_`
		if spec.Encode {
			varAccessor = `$_`
		}
		command = fmt.Sprintf("try { %s } catch { Write-Host %s.Exception.Message; exit 1 }", command, varAccessor)
	}

	built := Built{Options: passThrough(spec.Options)}
	if spec.Encode {
		built.Flag = InvocationEncodedCommand
		built.Payload = EncodeCommand(command)
	} else {
		built.Flag = InvocationCommand
		built.Payload = `"` + command + `"`
	}

	return built
}

// BuildFile runs a script file already present on the host
func BuildFile(path string, options map[string]string) Built {
	return Built{
		Flag:    InvocationFile,
		Payload: path,
		Options: passThrough(options),
	}
}

// passThrough normalizes option keys. Keys that collide after normalization
// resolve in sorted order of the original keys, the last one winning.
func passThrough(options map[string]string) map[string]string {
	out := make(map[string]string, len(options))
	for _, k := range sortedKeys(options) {
		v := options[k]
		key := normalizeKey(k)
		if key == "" || isRecognizedFlag(key) {
			continue
		}
		out[key] = v
	}
	return out
}

// EncodeCommand renders text as base64 of its UTF-16LE bytes, the form
// accepted by powershell.exe -EncodedCommand.
func EncodeCommand(text string) string {
	// The UTF-16 encoder substitutes U+FFFD for invalid UTF-8 rather than failing.
	b, _ := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(text))
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeCommand reverses EncodeCommand
func DecodeCommand(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "failed to decode base64 payload"), types.ErrInvalidArgument)
	}
	if len(raw)%2 != 0 {
		return "", types.InvalidArgumentf("payload has odd byte length %d", len(raw))
	}
	b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "failed to decode UTF-16LE payload"), types.ErrInvalidArgument)
	}
	return string(b), nil
}

// Option is a single powershell.exe invocation option. An empty Value
// renders as a bare switch.
type Option struct {
	Name  string
	Value string
}

// DefaultExecutable is the PowerShell binary invoked on the host
const DefaultExecutable = "powershell.exe"

// DefaultOptions are applied to every invocation unless overridden
var DefaultOptions = []Option{
	{Name: "ExecutionPolicy", Value: "Bypass"},
	{Name: "InputFormat", Value: "None"},
	{Name: "NoLogo"},
	{Name: "NoProfile"},
	{Name: "NonInteractive"},
}

// CommandLine renders the full invocation: executable, defaults overridden by
// pass-through options of the same name, remaining pass-through options in
// name order, and finally the flag and payload.
func (b Built) CommandLine(executable string, defaults []Option) string {
	if executable == "" {
		executable = DefaultExecutable
	}

	args := []string{executable}
	seen := make(map[string]bool, len(defaults))
	for _, opt := range defaults {
		value := opt.Value
		if v, ok := b.Options[opt.Name]; ok {
			value = v
		}
		seen[opt.Name] = true
		args = append(args, renderOption(opt.Name, value))
	}

	extra := make([]string, 0, len(b.Options))
	for k := range b.Options {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		args = append(args, renderOption(k, b.Options[k]))
	}

	if b.Payload != "" {
		args = append(args, b.Text())
	}

	return strings.Join(args, " ")
}

func renderOption(name, value string) string {
	if value == "" {
		return "-" + name
	}
	return "-" + name + " " + quoteArg(value)
}

// quoteArg keeps a value containing whitespace in a single argument
func quoteArg(value string) string {
	if !strings.ContainsAny(value, " \t") {
		return value
	}
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return value
	}
	return `"` + value + `"`
}
