package winhost

import (
	"context"
	"fmt"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/types"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ScriptDir is where RunScript places scripts on the host
const ScriptDir = "C:/Windows/Temp"

// ScriptPath returns the remote path used for a script with the given id
func ScriptPath(id string) string {
	return fmt.Sprintf("%s/mcp_winhost_script_%s.ps1", ScriptDir, id)
}

// WriteScriptCommand returns the raw command writing script to path as UTF-8
// with a byte order mark, which PowerShell needs to read non-ASCII scripts.
func WriteScriptCommand(path, script string) string {
	return fmt.Sprintf("[IO.File]::WriteAllText('%s', '%s', (New-Object System.Text.UTF8Encoding $true))",
		quoteLiteral(path), quoteLiteral(script))
}

// AppendScriptCommand returns the raw command appending chunk to path as
// UTF-8 without a second byte order mark.
func AppendScriptCommand(path, chunk string) string {
	return fmt.Sprintf("[IO.File]::AppendAllText('%s', '%s', (New-Object System.Text.UTF8Encoding $false))",
		quoteLiteral(path), quoteLiteral(chunk))
}

// ScriptChunkSize is the number of characters uploaded per command. A chunk
// of this size stays well under the 32767 character Windows command line
// limit once quoted, wrapped and encoded.
const ScriptChunkSize = 4000

// splitScript cuts script into chunks of at most size runes. An empty script
// yields a single empty chunk so the file is still created.
func splitScript(script string, size int) []string {
	runes := []rune(script)
	if len(runes) == 0 {
		return []string{""}
	}
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// RunScript uploads script to the host and runs it with -File. The outcome
// is returned uninterpreted, whatever the exit code.
func (c *Client) RunScript(ctx context.Context, script string) (types.RemoteOutcome, error) {
	path := ScriptPath(uuid.NewString())

	// Encoded so that quotes and unicode in the script survive the trip
	for i, chunk := range splitScript(script, ScriptChunkSize) {
		raw := AppendScriptCommand(path, chunk)
		if i == 0 {
			raw = WriteScriptCommand(path, chunk)
		}
		outcome, verdict, err := c.RunPowerShell(ctx, raw, encodedSpec())
		if err != nil {
			return outcome, err
		}
		if err := verdict.Err(outcome); err != nil {
			return outcome, errors.Wrapf(err, "failed to upload script to %s", path)
		}
	}

	return c.execute(ctx, pscmd.BuildFile(path, nil))
}
