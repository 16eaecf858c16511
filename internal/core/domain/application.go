// Package domain contains the core domain types and validation logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Application
// =============================================================================

var (
	ErrApplicationNameRequired = errors.New("application name is required")
	ErrTeamRequired            = errors.New("team is required")
)

// Application is a routable unit that may have at most one custom domain bound to it.
type Application struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeamID    string    `json:"team_id"`
	FQDN      string    `json:"fqdn,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewApplication creates an application with a generated ID.
func NewApplication(name, teamID, fqdn string) (*Application, error) {
	if name == "" {
		return nil, ErrApplicationNameRequired
	}
	if teamID == "" {
		return nil, ErrTeamRequired
	}
	now := time.Now()
	return &Application{
		ID:        "app_" + uuid.New().String()[:8],
		Name:      name,
		TeamID:    teamID,
		FQDN:      fqdn,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
