package postgres

import (
	"context"

	"github.com/edulytics/portal/config"
	"github.com/edulytics/portal/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory owns the PostgreSQL pools and builds repositories on them
type RepositoryFactory struct {
	db      *DB
	auditDB *DB // Optional: separate DB for audit logs
	logger  *zap.Logger
}

// NewRepositoryFactory opens the main pool and, when configured, the audit pool
func NewRepositoryFactory(main config.DatabaseConfig, audit *config.DatabaseConfig, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(main, logger)
	if err != nil {
		return nil, err
	}

	f := &RepositoryFactory{db: db, logger: logger}

	if audit != nil {
		auditDB, err := NewDB(*audit, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		f.auditDB = auditDB
	}

	return f, nil
}

// NewRepositoryFactoryFromDB builds a factory over an existing pool
func NewRepositoryFactoryFromDB(db *DB, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, logger: logger}
}

func (f *RepositoryFactory) audit() *DB {
	if f.auditDB != nil {
		return f.auditDB
	}
	return f.db
}

// InitSchema creates the profile and audit tables on their pools
func (f *RepositoryFactory) InitSchema(ctx context.Context) error {
	if err := f.db.InitSchema(ctx); err != nil {
		return err
	}
	return f.audit().InitAuditSchema(ctx)
}

// InitAuditSchema creates only the audit table, for audit-only deployments
func (f *RepositoryFactory) InitAuditSchema(ctx context.Context) error {
	return f.audit().InitAuditSchema(ctx)
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Profiles:  NewProfileStore(f.db, f.logger),
		AuditLogs: NewAuditRepository(f.audit(), f.logger),
	}
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection(s)
func (f *RepositoryFactory) Close() error {
	if f.auditDB != nil {
		_ = f.auditDB.Close()
	}
	return f.db.Close()
}
