package store

import (
	"context"

	"github.com/artpar/berth/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface.
type Store interface {
	// Application operations
	CreateApplication(ctx context.Context, app *domain.Application) error
	GetApplication(ctx context.Context, id string) (*domain.Application, error)
	SetApplicationDomain(ctx context.Context, id, fqdn string) error

	// IsDomainBound reports whether fqdn, or its www. variant, is stored on an
	// application other than applicationID.
	IsDomainBound(ctx context.Context, applicationID, fqdn string) (bool, error)

	// Destination operations
	CreateDestination(ctx context.Context, dest *domain.DestinationEngine) error
	GetDestination(ctx context.Context, id string) (*domain.DestinationEngine, error)

	// Service operations. Secrets and persistent storage are written and read with the
	// service, in list order.
	CreateService(ctx context.Context, svc *domain.Service) error
	GetService(ctx context.Context, id, teamID string) (*domain.Service, error)

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}
