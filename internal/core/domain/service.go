package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Service Errors
// =============================================================================

var (
	ErrServiceKindRequired    = errors.New("service kind is required")
	ErrServiceVersionRequired = errors.New("service version is required")
	ErrDestinationRequired    = errors.New("service has no destination engine")
	ErrStoragePathInvalid     = errors.New("persistent storage path must be absolute")
)

// =============================================================================
// Service
// =============================================================================

// Secret is a named value injected into the service environment at deploy time.
// Names are not unique; later entries win.
type Secret struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Service is an auxiliary service deployed to a destination engine.
// It is loaded read-only per request and never mutated by deployment logic.
type Service struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	TeamID            string             `json:"team_id"`
	Kind              string             `json:"kind"`
	Version           string             `json:"version"`
	Destination       *DestinationEngine `json:"destination,omitempty"`
	Secrets           []Secret           `json:"secrets,omitempty"`
	PersistentStorage []string           `json:"persistent_storage,omitempty"`
	Config            map[string]string  `json:"config,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewService creates a service with a generated ID.
func NewService(name, teamID, kind, version string, destination *DestinationEngine) (*Service, error) {
	if kind == "" {
		return nil, ErrServiceKindRequired
	}
	if version == "" {
		return nil, ErrServiceVersionRequired
	}
	if destination == nil {
		return nil, ErrDestinationRequired
	}
	now := time.Now()
	return &Service{
		ID:          "svc_" + uuid.New().String()[:8],
		Name:        name,
		TeamID:      teamID,
		Kind:        kind,
		Version:     version,
		Destination: destination,
		Config:      make(map[string]string),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Validate checks the fields deployment relies on.
func (s *Service) Validate() error {
	if s.Kind == "" {
		return ErrServiceKindRequired
	}
	if s.Version == "" {
		return ErrServiceVersionRequired
	}
	if s.Destination == nil {
		return ErrDestinationRequired
	}
	if s.Destination.Network == "" {
		return ErrNetworkRequired
	}
	for _, p := range s.PersistentStorage {
		if len(p) == 0 || p[0] != '/' {
			return ErrStoragePathInvalid
		}
	}
	return nil
}
