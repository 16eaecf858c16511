package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/berth/internal/core/crypto"
	coredns "github.com/artpar/berth/internal/core/dns"
	"github.com/artpar/berth/internal/core/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db        *sqlx.DB
	secretKey []byte
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithSecretKey enables encryption of secret values at rest. key must be 32 bytes,
// as returned by crypto.DeriveKey.
func WithSecretKey(key []byte) Option {
	return func(s *SQLiteStore) {
		s.secretKey = key
	}
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string, opts ...Option) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}
	// SQLite serializes writers; one connection also keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStoreError("Ping", "", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

// =============================================================================
// Application Operations
// =============================================================================

type applicationRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	TeamID    string         `db:"team_id"`
	FQDN      sql.NullString `db:"fqdn"`
	Domain    sql.NullString `db:"domain"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
}

func (s *SQLiteStore) CreateApplication(ctx context.Context, app *domain.Application) error {
	query := `
		INSERT INTO applications (id, name, team_id, fqdn, domain, created_at, updated_at)
		VALUES (:id, :name, :team_id, :fqdn, :domain, :created_at, :updated_at)`

	fqdn, bare := domainColumns(app.FQDN)
	row := map[string]any{
		"id":         app.ID,
		"name":       app.Name,
		"team_id":    app.TeamID,
		"fqdn":       fqdn,
		"domain":     bare,
		"created_at": app.CreatedAt.Format(time.RFC3339),
		"updated_at": app.UpdatedAt.Format(time.RFC3339),
	}

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: applications.id") {
			return NewStoreError("CreateApplication", "application", app.ID, "application already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: applications.domain") {
			return NewStoreError("CreateApplication", "application", app.ID, "domain already in use", ErrDuplicateDomain)
		}
		return NewStoreError("CreateApplication", "application", app.ID, err.Error(), err)
	}
	return nil
}

func (s *SQLiteStore) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	var row applicationRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM applications WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetApplication", "application", id, "application not found", ErrNotFound)
		}
		return nil, NewStoreError("GetApplication", "application", id, err.Error(), err)
	}

	return &domain.Application{
		ID:        row.ID,
		Name:      row.Name,
		TeamID:    row.TeamID,
		FQDN:      row.FQDN.String,
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}, nil
}

// SetApplicationDomain stores fqdn on the application. An empty fqdn clears it.
func (s *SQLiteStore) SetApplicationDomain(ctx context.Context, id, fqdn string) error {
	fqdnCol, bare := domainColumns(fqdn)
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET fqdn = ?, domain = ?, updated_at = ? WHERE id = ?`,
		fqdnCol, bare, time.Now().Format(time.RFC3339), id)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: applications.domain") {
			return NewStoreError("SetApplicationDomain", "application", id, "domain already in use", ErrDuplicateDomain)
		}
		return NewStoreError("SetApplicationDomain", "application", id, err.Error(), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NewStoreError("SetApplicationDomain", "application", id, "application not found", ErrNotFound)
	}
	return nil
}

// IsDomainBound matches on the canonical domain, so scheme, port and letter case in
// either the stored or the candidate value do not matter.
func (s *SQLiteStore) IsDomainBound(ctx context.Context, applicationID, fqdn string) (bool, error) {
	bare := coredns.DisplayDomain(coredns.CanonicalDomain(fqdn))
	if bare == "" {
		return false, nil
	}

	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM applications WHERE id != ? AND domain IN (?, ?)`,
		applicationID, bare, "www."+bare)
	if err != nil {
		return false, NewStoreError("IsDomainBound", "application", applicationID, err.Error(), err)
	}
	return count > 0, nil
}

// domainColumns returns the fqdn and canonical domain column values; both are NULL
// when fqdn is empty so the unique index ignores the row.
func domainColumns(fqdn string) (any, any) {
	fqdn = strings.TrimSpace(fqdn)
	if fqdn == "" {
		return nil, nil
	}
	bare := coredns.CanonicalDomain(fqdn)
	if bare == "" {
		return fqdn, nil
	}
	return fqdn, bare
}

// =============================================================================
// Destination Operations
// =============================================================================

type destinationRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	TeamID    string `db:"team_id"`
	Engine    string `db:"engine"`
	Network   string `db:"network"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (s *SQLiteStore) CreateDestination(ctx context.Context, dest *domain.DestinationEngine) error {
	query := `
		INSERT INTO destinations (id, name, team_id, engine, network, created_at, updated_at)
		VALUES (:id, :name, :team_id, :engine, :network, :created_at, :updated_at)`

	row := destinationRow{
		ID:        dest.ID,
		Name:      dest.Name,
		TeamID:    dest.TeamID,
		Engine:    dest.Engine,
		Network:   dest.Network,
		CreatedAt: dest.CreatedAt.Format(time.RFC3339),
		UpdatedAt: dest.UpdatedAt.Format(time.RFC3339),
	}

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: destinations.id") {
			return NewStoreError("CreateDestination", "destination", dest.ID, "destination already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateDestination", "destination", dest.ID, err.Error(), err)
	}
	return nil
}

func (s *SQLiteStore) GetDestination(ctx context.Context, id string) (*domain.DestinationEngine, error) {
	return getDestination(ctx, s.db, id)
}

func getDestination(ctx context.Context, exec executor, id string) (*domain.DestinationEngine, error) {
	var row destinationRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM destinations WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetDestination", "destination", id, "destination not found", ErrNotFound)
		}
		return nil, NewStoreError("GetDestination", "destination", id, err.Error(), err)
	}

	return &domain.DestinationEngine{
		ID:        row.ID,
		Name:      row.Name,
		TeamID:    row.TeamID,
		Engine:    row.Engine,
		Network:   row.Network,
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}, nil
}

// =============================================================================
// Service Operations
// =============================================================================

type serviceRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	TeamID        string         `db:"team_id"`
	Kind          string         `db:"kind"`
	Version       string         `db:"version"`
	DestinationID sql.NullString `db:"destination_id"`
	Config        string         `db:"config"`
	CreatedAt     string         `db:"created_at"`
	UpdatedAt     string         `db:"updated_at"`
}

type secretRow struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}

// CreateService inserts the service with its secrets and persistent storage in one
// transaction.
func (s *SQLiteStore) CreateService(ctx context.Context, svc *domain.Service) error {
	configJSON, err := json.Marshal(svc.Config)
	if err != nil {
		return NewStoreError("CreateService", "service", svc.ID, "failed to serialize config", ErrInvalidData)
	}
	if svc.Config == nil {
		configJSON = []byte("{}")
	}

	var destinationID any
	if svc.Destination != nil {
		destinationID = svc.Destination.ID
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("CreateService", "service", svc.ID, "failed to begin transaction", ErrTxFailed)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO services (id, name, team_id, kind, version, destination_id, config, created_at, updated_at)
		VALUES (:id, :name, :team_id, :kind, :version, :destination_id, :config, :created_at, :updated_at)`
	row := map[string]any{
		"id":             svc.ID,
		"name":           svc.Name,
		"team_id":        svc.TeamID,
		"kind":           svc.Kind,
		"version":        svc.Version,
		"destination_id": destinationID,
		"config":         string(configJSON),
		"created_at":     svc.CreatedAt.Format(time.RFC3339),
		"updated_at":     svc.UpdatedAt.Format(time.RFC3339),
	}
	if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: services.id") {
			return NewStoreError("CreateService", "service", svc.ID, "service already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("CreateService", "service", svc.ID, "destination does not exist", ErrForeignKey)
		}
		return NewStoreError("CreateService", "service", svc.ID, err.Error(), err)
	}

	for _, secret := range svc.Secrets {
		value, err := s.sealSecret(secret.Value)
		if err != nil {
			return NewStoreError("CreateService", "service", svc.ID, "failed to encrypt secret "+secret.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO service_secrets (service_id, name, value) VALUES (?, ?, ?)`,
			svc.ID, secret.Name, value); err != nil {
			return NewStoreError("CreateService", "service", svc.ID, err.Error(), err)
		}
	}

	for _, path := range svc.PersistentStorage {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO service_persistent_storage (service_id, path) VALUES (?, ?)`,
			svc.ID, path); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return NewStoreError("CreateService", "service", svc.ID, "duplicate persistent storage path "+path, ErrInvalidData)
			}
			return NewStoreError("CreateService", "service", svc.ID, err.Error(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("CreateService", "service", svc.ID, "failed to commit transaction", ErrTxFailed)
	}
	return nil
}

// GetService loads a service owned by teamID together with its destination, secrets
// and persistent storage. A service owned by another team is reported as not found.
func (s *SQLiteStore) GetService(ctx context.Context, id, teamID string) (*domain.Service, error) {
	var row serviceRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM services WHERE id = ? AND team_id = ?`, id, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetService", "service", id, "service not found", ErrNotFound)
		}
		return nil, NewStoreError("GetService", "service", id, err.Error(), err)
	}

	svc := &domain.Service{
		ID:        row.ID,
		Name:      row.Name,
		TeamID:    row.TeamID,
		Kind:      row.Kind,
		Version:   row.Version,
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(row.Config), &svc.Config); err != nil {
		return nil, NewStoreError("GetService", "service", id, "failed to parse config", ErrInvalidData)
	}

	if row.DestinationID.Valid {
		dest, err := getDestination(ctx, s.db, row.DestinationID.String)
		if err != nil {
			return nil, err
		}
		svc.Destination = dest
	}

	var secrets []secretRow
	if err := s.db.SelectContext(ctx, &secrets,
		`SELECT name, value FROM service_secrets WHERE service_id = ? ORDER BY id`, id); err != nil {
		return nil, NewStoreError("GetService", "service", id, err.Error(), err)
	}
	for _, sr := range secrets {
		value, err := s.openSecret(sr.Value)
		if err != nil {
			return nil, NewStoreError("GetService", "service", id, "failed to decrypt secret "+sr.Name, err)
		}
		svc.Secrets = append(svc.Secrets, domain.Secret{Name: sr.Name, Value: value})
	}

	if err := s.db.SelectContext(ctx, &svc.PersistentStorage,
		`SELECT path FROM service_persistent_storage WHERE service_id = ? ORDER BY id`, id); err != nil {
		return nil, NewStoreError("GetService", "service", id, err.Error(), err)
	}

	return svc, nil
}

func (s *SQLiteStore) sealSecret(value string) (string, error) {
	if s.secretKey == nil {
		return value, nil
	}
	return crypto.SealString(value, s.secretKey)
}

func (s *SQLiteStore) openSecret(value string) (string, error) {
	if !crypto.IsSealed(value) {
		return value, nil
	}
	if s.secretKey == nil {
		return "", ErrSecretUnreadable
	}
	plain, err := crypto.OpenString(value, s.secretKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecretUnreadable, err)
	}
	return plain, nil
}

// =============================================================================
// Helpers
// =============================================================================

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
