package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cnosuke/mcp-winhost/pscmd"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/ssh"
)

// fakeHost is a tiny SSH server standing in for a Windows host. Every exec
// request is recorded; commands containing "hang" never exit, any other
// command writes stdout and exits with exitCode.
type fakeHost struct {
	addr     string
	stdout   string
	exitCode uint32

	mu       sync.Mutex
	commands []string
}

func (h *fakeHost) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.commands...)
}

func startFakeHost(t *testing.T, stdout string, exitCode uint32) *fakeHost {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{NoClientAuth: true}
	cfg.AddHostKey(signer)

	h := &fakeHost{addr: ln.Addr().String(), stdout: stdout, exitCode: exitCode}
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go h.serve(conn, cfg)
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		<-done
	})
	return h
}

func (h *fakeHost) serve(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "")
			continue
		}
		ch, in, err := newCh.Accept()
		if err != nil {
			continue
		}
		go h.session(ch, in)
	}
}

func (h *fakeHost) session(ch ssh.Channel, in <-chan *ssh.Request) {
	defer ch.Close()
	for req := range in {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}

		var cmd string
		if len(req.Payload) >= 4 {
			n := binary.BigEndian.Uint32(req.Payload)
			if int(n)+4 <= len(req.Payload) {
				cmd = string(req.Payload[4 : 4+n])
			}
		}
		h.mu.Lock()
		h.commands = append(h.commands, cmd)
		h.mu.Unlock()
		_ = req.Reply(true, nil)

		if strings.Contains(cmd, "hang") {
			continue
		}

		_, _ = ch.Write([]byte(h.stdout))
		_, _ = ch.Stderr().Write([]byte("warning\n"))
		status := make([]byte, 4)
		binary.BigEndian.PutUint32(status, h.exitCode)
		_, _ = ch.SendRequest("exit-status", false, status)
		return
	}
}

func newTestTransport(t *testing.T, opts Options) *SSH {
	t.Helper()
	zap.ReplaceGlobals(zaptest.NewLogger(t))
	t.Setenv("SSH_AUTH_SOCK", "")

	opts.User = "tester"
	opts.DialTimeout = 3 * time.Second
	tr := NewSSH(opts)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestSSH_Execute(t *testing.T) {
	host := startFakeHost(t, "Hello\r\n", 0)
	tr := newTestTransport(t, Options{})

	built := pscmd.Build("Write-Host 'Hello'", pscmd.NewSpec())
	outcome, err := tr.Execute(context.Background(), host.addr, built)
	require.NoError(t, err)

	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, "Hello\r\n", outcome.Stdout)
	assert.Equal(t, "warning\n", outcome.Stderr)
	assert.Equal(t, host.addr, outcome.Host)

	expected := built.CommandLine(pscmd.DefaultExecutable, pscmd.DefaultOptions)
	assert.Equal(t, expected, outcome.Command)
	assert.Equal(t, []string{expected}, host.received())
}

func TestSSH_Execute_NonZeroExit(t *testing.T) {
	host := startFakeHost(t, "Cannot find path\n", 1)
	tr := newTestTransport(t, Options{Executable: "pwsh", DefaultOptions: []pscmd.Option{{Name: "NoProfile"}}})

	spec := pscmd.NewSpec()
	spec.Encode = true
	outcome, err := tr.Execute(context.Background(), host.addr, pscmd.Build("Get-Item nope", spec))
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.ExitCode)
	assert.Equal(t, pscmd.VerdictFailed, pscmd.Decode(spec, outcome))
	assert.True(t, strings.HasPrefix(host.received()[0], "pwsh -NoProfile -EncodedCommand "))
}

func TestSSH_Execute_ReusesConnection(t *testing.T) {
	host := startFakeHost(t, "", 0)
	tr := newTestTransport(t, Options{})

	for i := 0; i < 3; i++ {
		_, err := tr.Execute(context.Background(), host.addr, pscmd.Build("Get-Date", pscmd.NewSpec()))
		require.NoError(t, err)
	}

	assert.Len(t, host.received(), 3)
	tr.mu.Lock()
	assert.Len(t, tr.clients, 1)
	tr.mu.Unlock()
}

func TestSSH_Execute_Timeout(t *testing.T) {
	host := startFakeHost(t, "", 0)
	tr := newTestTransport(t, Options{CommandTimeout: 200 * time.Millisecond})

	_, err := tr.Execute(context.Background(), host.addr, pscmd.Build("hang", pscmd.NewSpec()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSSH_Execute_Cancelled(t *testing.T) {
	host := startFakeHost(t, "", 0)
	tr := newTestTransport(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := tr.Execute(ctx, host.addr, pscmd.Build("hang", pscmd.NewSpec()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSSH_Execute_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	tr := newTestTransport(t, Options{})
	outcome, err := tr.Execute(context.Background(), addr, pscmd.Build("Get-Date", pscmd.NewSpec()))
	require.Error(t, err)
	assert.Equal(t, -1, outcome.ExitCode)
}

func TestSSH_StrictHostKeyRequiresKnownHosts(t *testing.T) {
	tr := newTestTransport(t, Options{StrictHostKey: true})
	_, err := tr.Execute(context.Background(), "127.0.0.1:1", pscmd.Build("Get-Date", pscmd.NewSpec()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known_hosts")
}

func TestSSH_Address(t *testing.T) {
	tr := NewSSH(Options{})
	assert.Equal(t, "win01:22", tr.address("win01"))
	assert.Equal(t, "win01:2222", tr.address("win01:2222"))

	tr = NewSSH(Options{Port: 2200})
	assert.Equal(t, "10.0.0.5:2200", tr.address("10.0.0.5"))
}

func TestLoadSigner(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	dir := t.TempDir()

	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	plain := filepath.Join(dir, "id_plain")
	require.NoError(t, os.WriteFile(plain, pem.EncodeToMemory(block), 0o600))

	signer, err := loadSigner(plain, "")
	require.NoError(t, err)
	assert.Equal(t, ssh.KeyAlgoED25519, signer.PublicKey().Type())

	block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte("secret"))
	require.NoError(t, err)
	encrypted := filepath.Join(dir, "id_encrypted")
	require.NoError(t, os.WriteFile(encrypted, pem.EncodeToMemory(block), 0o600))

	_, err = loadSigner(encrypted, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encrypted")

	_, err = loadSigner(encrypted, "secret")
	assert.NoError(t, err)

	_, err = loadSigner(filepath.Join(dir, "missing"), "")
	assert.Error(t, err)
}
