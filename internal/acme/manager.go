// Package acme handles automatic TLS certificate management via ACME.
package acme

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"os"

	"github.com/caddyserver/certmagic"
	certmagicsqlite "github.com/rsclarke/certmagic-sqlite"
	"go.uber.org/zap"
)

// Manager obtains and renews the serving certificate for one domain,
// persisting certificates in the shared SQLite database. Challenges use
// certmagic's built-in HTTP-01/TLS-ALPN solvers, so the HTTPS listener
// must be reachable on the standard ports for issuance to succeed.
type Manager struct {
	Domain  string
	Email   string
	Staging bool
	DB      *sql.DB
	Logger  *zap.Logger

	config  *certmagic.Config
	storage *certmagicsqlite.SQLiteStorage
}

// SetLogger configures the global certmagic loggers. Call this before any
// listener that may receive challenge traffic starts.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	certmagic.Default.Logger = logger
	certmagic.DefaultACME.Logger = logger
}

// NewManager creates a new ACME manager.
func NewManager(domain, email string, database *sql.DB, staging bool, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	SetLogger(logger)

	return &Manager{
		Domain:  domain,
		Email:   email,
		Staging: staging,
		DB:      database,
		Logger:  logger,
	}
}

// Manage obtains (or loads) the certificate for the domain and keeps it
// renewed for the life of the process.
func (m *Manager) Manage(ctx context.Context) error {
	hostname, _ := os.Hostname()
	storage, err := certmagicsqlite.NewWithDB(m.DB, certmagicsqlite.WithOwnerID(hostname))
	if err != nil {
		return fmt.Errorf("create certmagic storage: %w", err)
	}
	m.storage = storage

	m.config = certmagic.NewDefault()
	m.config.Storage = m.storage
	m.config.Logger = m.Logger

	caURL := certmagic.LetsEncryptProductionCA
	if m.Staging {
		caURL = certmagic.LetsEncryptStagingCA
	}

	issuer := certmagic.NewACMEIssuer(m.config, certmagic.ACMEIssuer{
		CA:     caURL,
		Email:  m.Email,
		Agreed: true,
		Logger: m.Logger,
	})
	m.config.Issuers = []certmagic.Issuer{issuer}

	if err := m.config.ManageSync(ctx, []string{m.Domain}); err != nil {
		return fmt.Errorf("manage certificate for %s: %w", m.Domain, err)
	}
	return nil
}

// TLSConfig returns the serving TLS configuration backed by the managed
// certificate. Call after Manage has succeeded.
func (m *Manager) TLSConfig() *tls.Config {
	cfg := m.config.TLSConfig()
	cfg.NextProtos = append([]string{"h2", "http/1.1"}, cfg.NextProtos...)
	return cfg
}
