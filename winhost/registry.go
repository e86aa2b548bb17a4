package winhost

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/types"
)

// Hive is a registry root
type Hive string

const (
	HKLM Hive = "hklm" // HKEY_LOCAL_MACHINE
	HKCU Hive = "hkcu" // HKEY_CURRENT_USER
	HKU  Hive = "hku"  // HKEY_USERS
)

// DataType is the kind of a registry value
type DataType string

const (
	DataString DataType = "string" // REG_SZ
	DataMulti  DataType = "multi"  // REG_MULTI_SZ
	DataExpand DataType = "expand" // REG_EXPAND_SZ
	DataDWord  DataType = "dword"  // REG_DWORD
	DataQWord  DataType = "qword"  // REG_QWORD
	DataBinary DataType = "bin"    // REG_BINARY, comma separated hex bytes such as "be,ef,f0,0d"
)

var binaryDataPattern = regexp.MustCompile(`^(,?[\da-f]{2})+$`)

// HivePath translates a hive to its PowerShell drive prefix
func HivePath(hive Hive) (string, error) {
	switch hive {
	case HKLM:
		return `HKLM:\`, nil
	case HKCU:
		return `HKCU:\`, nil
	case HKU:
		return `HKU:\`, nil
	default:
		return "", types.InvalidArgumentf("invalid registry hive specified: %q", string(hive))
	}
}

func registryPath(hive Hive, path string) (string, error) {
	prefix, err := HivePath(hive)
	if err != nil {
		return "", err
	}
	return quoteLiteral(prefix + path), nil
}

// GetRegistryValueCommand returns the raw command reading a registry value
func GetRegistryValueCommand(hive Hive, path, name string) (string, error) {
	p, err := registryPath(hive, path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(Get-Item -Path '%s').GetValue('%s')", p, quoteLiteral(name)), nil
}

// SetRegistryValueCommand returns the raw command creating or updating a
// registry value.
func SetRegistryValueCommand(hive Hive, path, name, data string, dataType DataType) (string, error) {
	p, err := registryPath(hive, path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "New-ItemProperty -Force -Path '%s' -Name '%s'", p, quoteLiteral(name))

	switch dataType {
	case DataString, "":
		fmt.Fprintf(&b, " -Value '%s' -PropertyType String", quoteLiteral(data))
	case DataMulti:
		fmt.Fprintf(&b, " -Value '%s' -PropertyType MultiString", quoteLiteral(data))
	case DataExpand:
		fmt.Fprintf(&b, " -Value '%s' -PropertyType ExpandString", quoteLiteral(data))
	case DataDWord, DataQWord:
		if _, err := strconv.ParseInt(data, 0, 64); err != nil {
			return "", types.InvalidArgumentf("invalid numeric data for %s: %q", string(dataType), data)
		}
		propertyType := "DWord"
		if dataType == DataQWord {
			propertyType = "QWord"
		}
		fmt.Fprintf(&b, " -Value %s -PropertyType %s", data, propertyType)
	case DataBinary:
		if !binaryDataPattern.MatchString(data) {
			return "", types.InvalidArgumentf("invalid format for binary data: %q", data)
		}
		var hexified []string
		for _, hex := range strings.Split(data, ",") {
			if hex == "" {
				continue
			}
			hexified = append(hexified, "0x"+hex)
		}
		fmt.Fprintf(&b, " -Value ([byte[]](%s)) -PropertyType Binary", strings.Join(hexified, ","))
	default:
		return "", types.InvalidArgumentf("invalid data type specified: %q", string(dataType))
	}

	return b.String(), nil
}

// RemoveRegistryValueCommand returns the raw command removing a registry value
func RemoveRegistryValueCommand(hive Hive, path, name string) (string, error) {
	p, err := registryPath(hive, path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Remove-ItemProperty -Force -Path '%s' -Name '%s'", p, quoteLiteral(name)), nil
}

// NewRegistryKeyCommand returns the raw command creating a registry key
func NewRegistryKeyCommand(hive Hive, path string) (string, error) {
	p, err := registryPath(hive, path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("New-Item -Force -Path '%s'", p), nil
}

// RemoveRegistryKeyCommand returns the raw command removing a registry key
func RemoveRegistryKeyCommand(hive Hive, path string, recurse bool) (string, error) {
	p, err := registryPath(hive, path)
	if err != nil {
		return "", err
	}
	cmd := fmt.Sprintf("Remove-Item -Force -Path '%s'", p)
	if recurse {
		cmd += " -Recurse"
	}
	return cmd, nil
}

// GetRegistryValue returns the data of a registry value as a string, whatever
// the value type.
func (c *Client) GetRegistryValue(ctx context.Context, hive Hive, path, name string) (string, error) {
	raw, err := GetRegistryValueCommand(hive, path, name)
	if err != nil {
		return "", err
	}

	outcome, err := c.runRegistry(ctx, raw)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(outcome.Stdout, " \t\r\n"), nil
}

// SetRegistryValue creates or updates a registry value
func (c *Client) SetRegistryValue(ctx context.Context, hive Hive, path, name, data string, dataType DataType) error {
	raw, err := SetRegistryValueCommand(hive, path, name, data, dataType)
	if err != nil {
		return err
	}
	_, err = c.runRegistry(ctx, raw)
	return err
}

// RemoveRegistryValue removes a registry value
func (c *Client) RemoveRegistryValue(ctx context.Context, hive Hive, path, name string) error {
	raw, err := RemoveRegistryValueCommand(hive, path, name)
	if err != nil {
		return err
	}
	_, err = c.runRegistry(ctx, raw)
	return err
}

// NewRegistryKey creates a registry key along with missing parent keys. An
// existing key is left as is.
func (c *Client) NewRegistryKey(ctx context.Context, hive Hive, path string) error {
	raw, err := NewRegistryKeyCommand(hive, path)
	if err != nil {
		return err
	}
	_, err = c.runRegistry(ctx, raw)
	return err
}

// RemoveRegistryKey removes a registry key. Keys with subkeys or values are
// only removed when recurse is set.
func (c *Client) RemoveRegistryKey(ctx context.Context, hive Hive, path string, recurse bool) error {
	raw, err := RemoveRegistryKeyCommand(hive, path, recurse)
	if err != nil {
		return err
	}
	_, err = c.runRegistry(ctx, raw)
	return err
}

func (c *Client) runRegistry(ctx context.Context, raw string) (types.RemoteOutcome, error) {
	outcome, verdict, err := c.RunPowerShell(ctx, raw, encodedSpec())
	if err != nil {
		return outcome, err
	}
	if verdict == pscmd.VerdictFailed {
		return outcome, types.RemoteExecutionf("registry path or value does not exist on %s: %s",
			c.host, strings.TrimSpace(outcome.Stdout))
	}
	return outcome, nil
}
