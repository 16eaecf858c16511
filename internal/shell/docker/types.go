// Package docker drives container engines: compose through the docker CLI and
// in-container commands through the Docker SDK.
package docker

import (
	"context"
	"strings"
)

// =============================================================================
// Engine Interface
// =============================================================================

// Engine runs deployment commands against the engine at host. host is a connection
// string such as unix:///var/run/docker.sock, tcp://10.0.0.5:2376 or ssh://root@10.0.0.5.
type Engine interface {
	// ComposePull pulls every image referenced by the compose file.
	ComposePull(ctx context.Context, host, composeFile string) error

	// ComposeUp creates or updates the stack in detached mode.
	ComposeUp(ctx context.Context, host, composeFile string) error

	// ExecAsRoot runs cmd as root inside a running container.
	ExecAsRoot(ctx context.Context, host, container string, cmd []string) error
}

// =============================================================================
// Host Schemes
// =============================================================================

// HostScheme returns the scheme of an engine connection string, or "" if it has none.
func HostScheme(host string) string {
	scheme, _, ok := strings.Cut(host, "://")
	if !ok {
		return ""
	}
	return strings.ToLower(scheme)
}

// isTCP reports whether host is reached over TCP and may need TLS material.
func isTCP(host string) bool {
	switch HostScheme(host) {
	case "tcp", "https":
		return true
	}
	return false
}
