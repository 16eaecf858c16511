package docker

import (
	"context"
	"log/slog"
)

// execClient is the part of DockerClient the engine uses.
type execClient interface {
	ExecAsRoot(ctx context.Context, containerName string, cmd []string) error
	Close() error
}

// HostEngine implements Engine. Compose commands always go through the CLI; execs use
// the SDK except on ssh:// hosts, which only the CLI can reach.
type HostEngine struct {
	cli       *ComposeCLI
	newClient func(host string) (execClient, error)
	logger    *slog.Logger
}

// NewHostEngine creates an engine driver. certPath is passed to both the CLI and the
// SDK client for tcp:// hosts.
func NewHostEngine(cli *ComposeCLI, certPath string, logger *slog.Logger) *HostEngine {
	if cli == nil {
		cli = NewComposeCLI(nil, certPath, logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HostEngine{
		cli: cli,
		newClient: func(host string) (execClient, error) {
			return NewDockerClient(host, certPath)
		},
		logger: logger.With("component", "engine"),
	}
}

func (e *HostEngine) ComposePull(ctx context.Context, host, composeFile string) error {
	return e.cli.ComposePull(ctx, host, composeFile)
}

func (e *HostEngine) ComposeUp(ctx context.Context, host, composeFile string) error {
	return e.cli.ComposeUp(ctx, host, composeFile)
}

func (e *HostEngine) ExecAsRoot(ctx context.Context, host, container string, cmd []string) error {
	if HostScheme(host) == "ssh" {
		return e.cli.ExecAsRoot(ctx, host, container, cmd)
	}

	c, err := e.newClient(host)
	if err != nil {
		return err
	}
	defer c.Close()

	e.logger.Debug("exec as root", "host", host, "container", container, "cmd", cmd)
	return c.ExecAsRoot(ctx, container, cmd)
}
