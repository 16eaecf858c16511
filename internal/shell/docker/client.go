package docker

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/tlsconfig"
)

// =============================================================================
// Docker SDK Client
// =============================================================================

// DockerClient is a Docker SDK client bound to a single engine.
type DockerClient struct {
	cli  *client.Client
	host string
}

// NewDockerClient creates a client for host. For tcp:// hosts a non-empty certPath
// enables mutual TLS with ca.pem, cert.pem and key.pem from that directory.
// ssh:// hosts are not supported by the SDK and return ErrUnsupportedHost.
func NewDockerClient(host, certPath string) (*DockerClient, error) {
	if HostScheme(host) == "ssh" {
		return nil, NewDockerError("NewDockerClient", "engine", host, "ssh hosts require the docker CLI", ErrUnsupportedHost)
	}

	var opts []client.Opt
	if certPath != "" && isTCP(host) {
		tlsc, err := tlsconfig.Client(tlsconfig.Options{
			CAFile:   filepath.Join(certPath, "ca.pem"),
			CertFile: filepath.Join(certPath, "cert.pem"),
			KeyFile:  filepath.Join(certPath, "key.pem"),
		})
		if err != nil {
			return nil, NewDockerError("NewDockerClient", "engine", host, fmt.Sprintf("failed to load TLS material: %v", err), ErrConnectionFailed)
		}
		opts = append(opts, client.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsc},
		}))
	}
	opts = append(opts,
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewDockerError("NewDockerClient", "engine", host, fmt.Sprintf("failed to create client: %v", err), ErrConnectionFailed)
	}
	return &DockerClient{cli: cli, host: host}, nil
}

// Close closes the Docker client connection.
func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// =============================================================================
// Exec Operations
// =============================================================================

// ExecAsRoot runs cmd as root inside containerName and waits for it to exit.
// A non-zero exit code is reported as ErrCommandFailed with the command's stderr.
func (d *DockerClient) ExecAsRoot(ctx context.Context, containerName string, cmd []string) error {
	created, err := d.cli.ContainerExecCreate(ctx, containerName, container.ExecOptions{
		User:         "root",
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("ExecAsRoot", "container", containerName, "container not found", ErrContainerNotFound)
		}
		if strings.Contains(err.Error(), "is not running") {
			return NewDockerError("ExecAsRoot", "container", containerName, "container is not running", ErrContainerNotRunning)
		}
		return NewDockerError("ExecAsRoot", "container", containerName, fmt.Sprintf("failed to create exec: %v", err), ErrCommandFailed)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return NewDockerError("ExecAsRoot", "container", containerName, fmt.Sprintf("failed to attach exec: %v", err), ErrCommandFailed)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return NewDockerError("ExecAsRoot", "container", containerName, fmt.Sprintf("failed to read exec output: %v", err), ErrCommandFailed)
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return NewDockerError("ExecAsRoot", "container", containerName, fmt.Sprintf("failed to inspect exec: %v", err), ErrCommandFailed)
	}
	if inspect.ExitCode != 0 {
		return NewDockerError("ExecAsRoot", "container", containerName,
			fmt.Sprintf("%s exited with code %d: %s", strings.Join(cmd, " "), inspect.ExitCode, strings.TrimSpace(stderr.String())),
			ErrCommandFailed)
	}
	return nil
}
