// Package remote executes shell commands on a Proxmox node over SSH.
//
// The executor maintains one persistent SSH connection and opens a fresh
// session per command; exactly one command is in flight at a time. Both
// output streams and the exit status are captured in full before the
// next command may run.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// Config contains the SSH connection parameters for an Executor.
//
// EchoCommands and CommandPrefix are fixed at construction time; there
// are no process-wide toggles.
type Config struct {
	Host    string
	Port    int
	User    string
	KeyPath string

	// EchoCommands logs every command at info level before it runs.
	EchoCommands bool
	// CommandPrefix is prepended to every command, e.g. "sudo".
	CommandPrefix string
}

// Result holds the captured output of one remote command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandError reports a remote command that finished with an exit
// status other than the one the caller expected. The captured output
// streams ride along for diagnostics.
type CommandError struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command `%s` exited with status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// CommandOutput returns the captured stdout and stderr streams.
func (e *CommandError) CommandOutput() (stdout, stderr string) {
	return e.Stdout, e.Stderr
}

// Executor runs commands on a single remote host.
type Executor struct {
	client *ssh.Client
	cfg    Config
	log    *logrus.Entry
}

// Connect establishes the SSH connection described by cfg.
func Connect(cfg Config, log *logrus.Entry) (*Executor, error) {
	if cfg.Port == 0 {
		cfg.Port = 22
	}

	keyPath := cfg.KeyPath
	if strings.HasPrefix(keyPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		keyPath = filepath.Join(home, keyPath[2:])
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key %s: %w", keyPath, err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}

	sshConfig := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.WithField("addr", addr).Debug("establishing SSH connection")

	client, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return &Executor{
		client: client,
		cfg:    cfg,
		log:    log,
	}, nil
}

// Close tears down the SSH connection.
func (e *Executor) Close() error {
	if e.client == nil {
		return nil
	}
	e.log.Debug("closing SSH connection")
	return e.client.Close()
}

// Execute runs a single command and expects it to exit with status zero.
func (e *Executor) Execute(ctx context.Context, command string) (Result, error) {
	return e.ExecuteStatus(ctx, command, 0)
}

// ExecuteStatus runs a single command and fails with a *CommandError
// when the exit status differs from expected. The Result is populated
// in either case.
func (e *Executor) ExecuteStatus(ctx context.Context, command string, expected int) (Result, error) {
	cmd := e.fullCommand(command)

	if e.cfg.EchoCommands {
		e.log.Infof("running command: `%s`", cmd)
	} else {
		e.log.WithField("cmd", cmd).Debug("executing remote command")
	}

	session, err := e.client.NewSession()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	res := Result{}
	err = session.Run(cmd)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if err != nil {
		exitErr, ok := err.(*ssh.ExitError)
		if !ok {
			res.ExitCode = -1
			return res, fmt.Errorf("command execution failed: %w", err)
		}
		res.ExitCode = exitErr.ExitStatus()
	}

	if res.ExitCode != expected {
		e.log.WithFields(logrus.Fields{
			"cmd":       cmd,
			"exit_code": res.ExitCode,
		}).Warn("remote command failed")
		return res, &CommandError{
			Command:  cmd,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			ExitCode: res.ExitCode,
		}
	}

	return res, nil
}

func (e *Executor) fullCommand(command string) string {
	if e.cfg.CommandPrefix == "" {
		return command
	}
	return e.cfg.CommandPrefix + " " + command
}
