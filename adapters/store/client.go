package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/all2prosperity/audio-svc/domain/entities"
	"github.com/all2prosperity/audio-svc/domain/repositories"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the database driver and connection string
type Config struct {
	Driver string
	DSN    string
}

// GormStore wraps the gorm connection and exposes one repository per table
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger

	roles     *RoleRepository
	userRoles *UserRoleRepository
	sessions  *SessionRepository
	sections  *SectionRepository
}

var _ repositories.Store = (*GormStore)(nil)

// Open connects to the database and migrates the schema
func Open(config Config, logger *zap.Logger) (*GormStore, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(config.DSN)
	case DriverPostgres:
		dialector = postgres.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)
	if config.Driver != DriverPostgres {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&entities.Role{}, &entities.UserRole{}, &entities.Session{}, &entities.Section{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	logger.Info("Successfully connected to database",
		zap.String("driver", dialector.Name()))

	return NewGormStore(db, logger), nil
}

// NewGormStore wraps an already migrated connection
func NewGormStore(db *gorm.DB, logger *zap.Logger) *GormStore {
	return &GormStore{
		db:        db,
		logger:    logger,
		roles:     &RoleRepository{db: db},
		userRoles: &UserRoleRepository{db: db},
		sessions:  &SessionRepository{db: db},
		sections:  &SectionRepository{db: db},
	}
}

func (s *GormStore) Roles() repositories.RoleRepository         { return s.roles }
func (s *GormStore) UserRoles() repositories.UserRoleRepository { return s.userRoles }
func (s *GormStore) Sessions() repositories.SessionRepository   { return s.sessions }
func (s *GormStore) Sections() repositories.SectionRepository   { return s.sections }

// Close closes the database connection
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
		return err
	}
	s.logger.Info("Disconnected from database")
	return nil
}
