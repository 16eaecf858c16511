package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/berth/internal/core/compose"
	"github.com/artpar/berth/internal/shell/docker"
	"github.com/artpar/berth/internal/shell/workspace"
)

const (
	// ComposeFileName is the descriptor file written into each working directory.
	ComposeFileName = "docker-compose.yaml"

	// DefaultOwner is used when a request names no owner.
	DefaultOwner = "1000:1000"
)

// Request describes one deployment.
type Request struct {
	// ServiceID names the deployment; it is also the container the permission fix targets.
	ServiceID string
	// Kind groups working directories on disk.
	Kind       string
	Descriptor compose.Descriptor
	// Host is the engine connection string.
	Host string
	// FixPaths are chowned to Owner inside the container after it starts. Empty skips the step.
	FixPaths []string
	Owner    string
}

// Result describes a completed deployment.
type Result struct {
	ComposeFile string
}

// Executor runs serialize, pull, up and permission-fix in order and stops at the
// first failure. Nothing is retried or rolled back.
type Executor struct {
	workspace *workspace.Workspace
	engine    docker.Engine
	logger    *slog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(ws *workspace.Workspace, engine docker.Engine, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		workspace: ws,
		engine:    engine,
		logger:    logger.With("component", "deploy"),
	}
}

// Apply deploys req. Cancelling ctx does not interrupt engine commands once started.
func (e *Executor) Apply(ctx context.Context, req Request) (*Result, error) {
	ctx = context.WithoutCancel(ctx)

	composeFile, err := e.serialize(req)
	if err != nil {
		return nil, e.fail(req, StageSerialize, err)
	}

	steps := []struct {
		stage Stage
		run   func() error
	}{
		{StagePull, func() error { return e.engine.ComposePull(ctx, req.Host, composeFile) }},
		{StageUp, func() error { return e.engine.ComposeUp(ctx, req.Host, composeFile) }},
		{StagePermissionFix, func() error { return e.fixPermissions(ctx, req) }},
	}
	for _, step := range steps {
		start := time.Now()
		e.logger.Info("stage started", "service_id", req.ServiceID, "host", req.Host, "stage", step.stage)
		if err := step.run(); err != nil {
			return nil, e.fail(req, step.stage, err)
		}
		e.logger.Info("stage finished",
			"service_id", req.ServiceID,
			"host", req.Host,
			"stage", step.stage,
			"duration", time.Since(start),
		)
	}

	return &Result{ComposeFile: composeFile}, nil
}

func (e *Executor) serialize(req Request) (string, error) {
	data, err := compose.Marshal(req.Descriptor)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	if _, err := compose.Validate(data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	dir, err := e.workspace.EnsureDirectory(req.Kind, req.ServiceID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	path, err := e.workspace.WriteFile(dir, ComposeFileName, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	e.logger.Debug("descriptor written", "service_id", req.ServiceID, "path", path, "images", req.Descriptor.Images())
	return path, nil
}

func (e *Executor) fixPermissions(ctx context.Context, req Request) error {
	if len(req.FixPaths) == 0 {
		return nil
	}
	owner := req.Owner
	if owner == "" {
		owner = DefaultOwner
	}
	cmd := append([]string{"chown", "-R", owner}, req.FixPaths...)
	return e.engine.ExecAsRoot(ctx, req.Host, req.ServiceID, cmd)
}

func (e *Executor) fail(req Request, stage Stage, err error) error {
	e.logger.Error("deployment failed",
		"service_id", req.ServiceID,
		"host", req.Host,
		"stage", stage,
		"error", err,
	)
	return &ExecutionError{Stage: stage, ServiceID: req.ServiceID, Err: err}
}
