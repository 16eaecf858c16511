package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// =============================================================================
// Compose CLI
// =============================================================================

// ComposeCLI invokes the docker CLI with DOCKER_HOST pointed at a destination engine.
type ComposeCLI struct {
	runner   Runner
	binary   string
	certPath string
	logger   *slog.Logger
}

// NewComposeCLI creates a CLI driver. certPath, when set, is a directory holding
// ca.pem, cert.pem and key.pem used for tcp:// engines.
func NewComposeCLI(runner Runner, certPath string, logger *slog.Logger) *ComposeCLI {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ComposeCLI{
		runner:   runner,
		binary:   "docker",
		certPath: certPath,
		logger:   logger.With("component", "compose-cli"),
	}
}

// Env returns the environment that targets host.
func (c *ComposeCLI) Env(host string) []string {
	env := []string{"DOCKER_HOST=" + host}
	if c.certPath != "" && isTCP(host) {
		env = append(env, "DOCKER_TLS_VERIFY=1", "DOCKER_CERT_PATH="+c.certPath)
	}
	return env
}

// ComposePull runs `docker compose -f <file> pull`.
func (c *ComposeCLI) ComposePull(ctx context.Context, host, composeFile string) error {
	return c.run(ctx, "ComposePull", host, composeFile, "compose", "-f", composeFile, "pull")
}

// ComposeUp runs `docker compose -f <file> up -d`.
func (c *ComposeCLI) ComposeUp(ctx context.Context, host, composeFile string) error {
	return c.run(ctx, "ComposeUp", host, composeFile, "compose", "-f", composeFile, "up", "-d")
}

// ExecAsRoot runs `docker exec -u root <container> <cmd...>`.
func (c *ComposeCLI) ExecAsRoot(ctx context.Context, host, container string, cmd []string) error {
	args := append([]string{"exec", "-u", "root", container}, cmd...)
	return c.run(ctx, "ExecAsRoot", host, container, args...)
}

func (c *ComposeCLI) run(ctx context.Context, op, host, id string, args ...string) error {
	c.logger.Debug("running docker command",
		"op", op,
		"host", host,
		"args", strings.Join(args, " "),
	)

	out, err := c.runner.Run(ctx, c.Env(host), c.binary, args...)
	if err != nil {
		entity := "container"
		if args[0] == "compose" {
			entity = "compose"
		}
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		} else {
			msg = fmt.Sprintf("%v: %s", err, msg)
		}
		return NewDockerError(op, entity, id, msg, ErrCommandFailed)
	}
	return nil
}
