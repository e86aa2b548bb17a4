package pscmd

import (
	"strings"

	"github.com/cnosuke/mcp-winhost/types"
)

// Verdict is the classification of a remote outcome
type Verdict int

const (
	// VerdictRaw makes no claim; exit code and stdout are for the caller
	VerdictRaw Verdict = iota
	// VerdictTrue means a verified expression evaluated true
	VerdictTrue
	// VerdictFalse means a verified expression evaluated false
	VerdictFalse
	// VerdictFailed means the command threw during execution
	VerdictFailed
	// VerdictFalseOrFailed is exit code 1 with both verify_cmd and
	// excep_fail set. The exit code alone cannot tell the two apart.
	VerdictFalseOrFailed
)

func (v Verdict) String() string {
	switch v {
	case VerdictTrue:
		return "true"
	case VerdictFalse:
		return "false"
	case VerdictFailed:
		return "failed"
	case VerdictFalseOrFailed:
		return "false_or_failed"
	default:
		return "raw"
	}
}

// MarshalText implements encoding.TextMarshaler
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Decode classifies the outcome of a command built from spec
func Decode(spec Spec, outcome types.RemoteOutcome) Verdict {
	switch {
	case spec.VerifyCmd && outcome.ExitCode == 0:
		return VerdictTrue
	case spec.VerifyCmd && spec.ExcepFail && outcome.ExitCode == 1:
		return VerdictFalseOrFailed
	case spec.VerifyCmd && outcome.ExitCode == 1:
		return VerdictFalse
	case spec.ExcepFail && outcome.ExitCode == 1:
		return VerdictFailed
	default:
		return VerdictRaw
	}
}

// Err returns an error marked types.ErrRemoteExecution when the verdict may
// stand for a thrown error, nil otherwise. Callers that treat
// VerdictFalseOrFailed as false should check the verdict instead.
func (v Verdict) Err(outcome types.RemoteOutcome) error {
	switch v {
	case VerdictFailed, VerdictFalseOrFailed:
		msg := strings.TrimSpace(outcome.Stdout)
		if msg == "" {
			msg = strings.TrimSpace(outcome.Stderr)
		}
		return types.RemoteExecutionf("command exited with code %d on %s: %s", outcome.ExitCode, outcome.Host, msg)
	}
	return nil
}
