// Package transport delivers built PowerShell commands to Windows hosts
// running an OpenSSH server.
package transport

import (
	"bytes"
	"context"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cnosuke/mcp-winhost/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultPort is used for hosts given without a port
const DefaultPort = 22

// Options configure the SSH transport
type Options struct {
	Port           int
	User           string
	Password       string
	KeyPath        string
	Passphrase     string
	KnownHosts     string
	StrictHostKey  bool
	DialTimeout    time.Duration
	CommandTimeout time.Duration

	// Executable and DefaultOptions shape the powershell.exe command line
	Executable     string
	DefaultOptions []pscmd.Option
}

// SSH runs commands over one cached connection per host
type SSH struct {
	opts Options

	mu      sync.Mutex
	clients map[string]*ssh.Client
}

// NewSSH - Create an SSH transport. Connections are dialed on first use.
func NewSSH(opts Options) *SSH {
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Executable == "" {
		opts.Executable = pscmd.DefaultExecutable
	}
	if opts.DefaultOptions == nil {
		opts.DefaultOptions = pscmd.DefaultOptions
	}

	return &SSH{
		opts:    opts,
		clients: make(map[string]*ssh.Client),
	}
}

// Execute runs cmd on host and waits for it to exit. A non-zero exit code is
// not an error; errors are reserved for connection problems and cancellation.
func (t *SSH) Execute(ctx context.Context, host string, cmd pscmd.Built) (types.RemoteOutcome, error) {
	commandLine := cmd.CommandLine(t.opts.Executable, t.opts.DefaultOptions)
	outcome := types.RemoteOutcome{
		Host:     host,
		Command:  commandLine,
		ExitCode: -1,
	}

	if t.opts.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.CommandTimeout)
		defer cancel()
	}

	client, err := t.client(host)
	if err != nil {
		return outcome, err
	}

	session, err := client.NewSession()
	if err != nil {
		// The connection is likely gone; redial on the next call
		t.forget(host, client)
		return outcome, errors.Wrapf(err, "failed to open session on %s", host)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	zap.S().Debugw("running remote command",
		"host", host,
		"command", commandLine)

	if err := session.Start(commandLine); err != nil {
		return outcome, errors.Wrapf(err, "failed to start command on %s", host)
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return outcome, errors.Wrapf(ctx.Err(), "command on %s did not finish", host)
	}

	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()

	if err == nil {
		outcome.ExitCode = 0
		return outcome, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.ExitStatus()
		return outcome, nil
	}

	return outcome, errors.Wrapf(err, "command on %s ended without an exit status", host)
}

// Close closes every cached connection
func (t *SSH) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result error
	for host, client := range t.clients {
		if err := client.Close(); err != nil {
			result = errors.CombineErrors(result, errors.Wrapf(err, "failed to close connection to %s", host))
		}
		delete(t.clients, host)
	}
	return result
}

func (t *SSH) client(host string) (*ssh.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[host]; ok {
		return c, nil
	}

	c, err := t.dial(t.address(host))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", host)
	}
	t.clients[host] = c
	return c, nil
}

func (t *SSH) forget(host string, c *ssh.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.clients[host] == c {
		delete(t.clients, host)
		_ = c.Close()
	}
}

func (t *SSH) address(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(t.opts.Port))
}

func (t *SSH) dial(addr string) (*ssh.Client, error) {
	auths, err := t.authMethods()
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := t.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            t.opts.User,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
		Timeout:         t.opts.DialTimeout,
	}

	zap.S().Infow("connecting to host",
		"address", addr,
		"user", t.opts.User,
		"strict_host_key", t.opts.StrictHostKey)

	d := net.Dialer{Timeout: t.opts.DialTimeout}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

func (t *SSH) authMethods() ([]ssh.AuthMethod, error) {
	var auths []ssh.AuthMethod

	if t.opts.KeyPath != "" {
		signer, err := loadSigner(t.opts.KeyPath, t.opts.Passphrase)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load private key")
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}

	if t.opts.Password != "" {
		auths = append(auths, ssh.Password(t.opts.Password))
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			auths = append(auths, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else {
			zap.S().Debugw("ssh agent unavailable", "error", err)
		}
	}

	return auths, nil
}

func (t *SSH) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if !t.opts.StrictHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	if t.opts.KnownHosts == "" {
		return nil, errors.New("strict host key checking requires a known_hosts file")
	}
	cb, err := knownhosts.New(t.opts.KnownHosts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read known_hosts %s", t.opts.KnownHosts)
	}
	return cb, nil
}

// loadSigner reads a private key, decrypting it when a passphrase is given
func loadSigner(path, passphrase string) (ssh.Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(b, []byte(passphrase))
	}

	s, err := ssh.ParsePrivateKey(b)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, errors.Newf("private key %s is encrypted; set a passphrase", path)
		}
		return nil, err
	}
	return s, nil
}
