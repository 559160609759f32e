package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"framebridge/internal/config"
	"framebridge/internal/ipc"
)

type commandContext struct {
	socketFlag *string
	configFlag *string
	localFlag  *bool
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string, localFlag, jsonFlag *bool) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
		localFlag:  localFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil {
		if socket := strings.TrimSpace(*c.socketFlag); socket != "" {
			return socket
		}
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.SocketPath()
	}
	return ""
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) forceLocal() bool {
	return c.localFlag != nil && *c.localFlag
}

// withBackend runs fn against the daemon when its socket answers, otherwise
// against an in-process bridge.
func (c *commandContext) withBackend(cmd *cobra.Command, fn func(context.Context, backend) error) error {
	b, err := c.openBackend()
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(commandCtx(cmd), b)
}

func (c *commandContext) openBackend() (backend, error) {
	if !c.forceLocal() {
		client, err := ipc.Dial(c.socketPath())
		if err == nil {
			return remoteBackend{client}, nil
		}
		if !daemonAbsent(err) {
			return nil, wrapDialError(err, c.socketPath())
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return newLocalBackend(cfg)
}

// withClient requires a running daemon.
func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return wrapDialError(err, socket)
	}
	defer client.Close()
	return fn(client)
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func daemonAbsent(err error) bool {
	return errors.Is(err, syscall.ENOENT) || os.IsNotExist(err) || errors.Is(err, syscall.ECONNREFUSED)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `framebridge start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
