package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Destination Engine
// =============================================================================

var (
	ErrEngineRequired  = errors.New("destination engine address is required")
	ErrNetworkRequired = errors.New("destination network is required")
)

// DefaultEngineSocket is the engine address used for the local Docker daemon.
const DefaultEngineSocket = "/var/run/docker.sock"

// DestinationEngine is a remote container engine plus the pre-existing network every
// service on it shares. The network is managed outside this system.
type DestinationEngine struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeamID    string    `json:"team_id"`
	Engine    string    `json:"engine"`
	Network   string    `json:"network"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDestinationEngine creates a destination with a generated ID.
func NewDestinationEngine(name, teamID, engine, network string) (*DestinationEngine, error) {
	if engine == "" {
		return nil, ErrEngineRequired
	}
	if network == "" {
		return nil, ErrNetworkRequired
	}
	now := time.Now()
	return &DestinationEngine{
		ID:        "dst_" + uuid.New().String()[:8],
		Name:      name,
		TeamID:    teamID,
		Engine:    engine,
		Network:   network,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Host returns the connection string used to target the engine.
func (d DestinationEngine) Host() string {
	return EngineHost(d.Engine)
}

// EngineHost converts a stored engine address into a connection string.
// Bare socket paths get the unix scheme; anything carrying a scheme is returned as-is.
//
// Example:
//
//	EngineHost("/var/run/docker.sock")    // returns "unix:///var/run/docker.sock"
//	EngineHost("ssh://root@10.0.0.5")     // returns "ssh://root@10.0.0.5"
func EngineHost(engine string) string {
	engine = strings.TrimSpace(engine)
	if engine == "" {
		return "unix://" + DefaultEngineSocket
	}
	if strings.Contains(engine, "://") {
		return engine
	}
	if strings.HasPrefix(engine, "/") {
		return "unix://" + engine
	}
	return "tcp://" + engine
}
