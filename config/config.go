package config

import (
	"sort"
	"time"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/transport"
	"github.com/jinzhu/configor"
)

// Config - Application configuration
type Config struct {
	Debug bool   `yaml:"debug" env:"WINHOST_DEBUG"`
	Log   string `yaml:"log" env:"WINHOST_LOG"`

	Host struct {
		// Address of the Windows host, with or without a port
		Address string `yaml:"address" env:"WINHOST_ADDRESS"`
		Port    int    `yaml:"port" env:"WINHOST_PORT" default:"22"`
		User    string `yaml:"user" env:"WINHOST_USER" default:"Administrator"`

		Password   string `yaml:"password" env:"WINHOST_PASSWORD"`
		KeyPath    string `yaml:"key_path" env:"WINHOST_KEY_PATH"`
		Passphrase string `yaml:"passphrase" env:"WINHOST_PASSPHRASE"`

		KnownHosts    string `yaml:"known_hosts" env:"WINHOST_KNOWN_HOSTS"`
		StrictHostKey bool   `yaml:"strict_host_key" env:"WINHOST_STRICT_HOST_KEY"`

		DialTimeout    time.Duration `yaml:"dial_timeout" env:"WINHOST_DIAL_TIMEOUT" default:"10s"`
		CommandTimeout time.Duration `yaml:"command_timeout" env:"WINHOST_COMMAND_TIMEOUT" default:"5m"`
	} `yaml:"host"`

	PowerShell struct {
		Executable string `yaml:"executable" env:"WINHOST_POWERSHELL" default:"powershell.exe"`
		// Options replace the default invocation options when set. An empty
		// value renders a bare switch such as -NoProfile.
		Options map[string]string `yaml:"options"`
	} `yaml:"powershell"`
}

// LoadConfig - Load configuration file
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	// Environment variables override values from the file
	err := configor.New(&configor.Config{
		Debug:      false,
		Verbose:    false,
		Silent:     true,
		AutoReload: false,
	}).Load(cfg, path)

	return cfg, err
}

// InvocationOptions returns the powershell.exe options applied to every command
func (c *Config) InvocationOptions() []pscmd.Option {
	if len(c.PowerShell.Options) == 0 {
		return pscmd.DefaultOptions
	}

	names := make([]string, 0, len(c.PowerShell.Options))
	for name := range c.PowerShell.Options {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]pscmd.Option, 0, len(names))
	for _, name := range names {
		opts = append(opts, pscmd.Option{Name: name, Value: c.PowerShell.Options[name]})
	}
	return opts
}

// TransportOptions converts the host section into SSH transport options
func (c *Config) TransportOptions() transport.Options {
	return transport.Options{
		Port:           c.Host.Port,
		User:           c.Host.User,
		Password:       c.Host.Password,
		KeyPath:        c.Host.KeyPath,
		Passphrase:     c.Host.Passphrase,
		KnownHosts:     c.Host.KnownHosts,
		StrictHostKey:  c.Host.StrictHostKey,
		DialTimeout:    c.Host.DialTimeout,
		CommandTimeout: c.Host.CommandTimeout,
		Executable:     c.PowerShell.Executable,
		DefaultOptions: c.InvocationOptions(),
	}
}
